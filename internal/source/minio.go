package source

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/ppiankov/claimwatch/internal/model"
)

// maxSnapshotBytes caps how much of an object is read
const maxSnapshotBytes = 64 << 20

// MinioSource reads a snapshot object from an S3-compatible bucket
type MinioSource struct {
	client *minio.Client
	bucket string
	object string
}

// NewMinioClient connects to the configured endpoint
func NewMinioClient(cfg model.MinioConfig) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is not configured")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return client, nil
}

// NewMinioSource creates a source for bucket/object
func NewMinioSource(client *minio.Client, bucket, object string) *MinioSource {
	return &MinioSource{client: client, bucket: bucket, object: object}
}

// Name returns the minio URI of the object
func (s *MinioSource) Name() string {
	return "minio://" + s.bucket + "/" + s.object
}

// Key rate-limits per endpoint
func (s *MinioSource) Key() string {
	return "minio:" + s.client.EndpointURL().Host
}

// Load downloads and decodes the snapshot object
func (s *MinioSource) Load(ctx context.Context) ([]model.TaggedRow, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", s.Name(), err)
	}
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(io.LimitReader(obj, maxSnapshotBytes))
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", s.Name(), err)
	}
	return DecodeSnapshot(data)
}
