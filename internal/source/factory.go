package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/ppiankov/claimwatch/internal/model"
)

// Opener resolves source URIs, sharing backend connections between them
type Opener struct {
	cfg model.SourcesConfig

	mu    sync.Mutex
	db    *sql.DB
	minio *minio.Client
}

// NewOpener creates an opener; connections are made on first use
func NewOpener(cfg model.SourcesConfig) *Opener {
	return &Opener{cfg: cfg}
}

// Open returns the source for uri:
//
//	path/to/snapshot.json, file:///abs/path.json
//	minio://bucket/object/key.json
//	postgres://<user_id>
func (o *Opener) Open(ctx context.Context, uri string) (Source, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, fmt.Errorf("%w: empty", ErrUnsupportedURI)
	}

	scheme, rest, hasScheme := strings.Cut(uri, "://")
	if !hasScheme {
		return NewFileSource(uri), nil
	}

	switch scheme {
	case "file":
		if rest == "" {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedURI, uri)
		}
		return NewFileSource(rest), nil

	case "minio", "s3":
		bucket, object, ok := strings.Cut(rest, "/")
		if !ok || bucket == "" || object == "" {
			return nil, fmt.Errorf("%w: expected minio://bucket/object, got %s", ErrUnsupportedURI, uri)
		}
		client, err := o.minioClient()
		if err != nil {
			return nil, err
		}
		return NewMinioSource(client, bucket, object), nil

	case "postgres":
		userID := strings.Trim(rest, "/")
		if userID == "" || strings.Contains(userID, "/") {
			return nil, fmt.Errorf("%w: expected postgres://<user_id>, got %s", ErrUnsupportedURI, uri)
		}
		db, err := o.database(ctx)
		if err != nil {
			return nil, err
		}
		return NewPostgresSource(db, userID), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURI, uri)
	}
}

// Close releases the database pool if one was opened
func (o *Opener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.db == nil {
		return nil
	}
	err := o.db.Close()
	o.db = nil
	return err
}

func (o *Opener) minioClient() (*minio.Client, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.minio != nil {
		return o.minio, nil
	}
	client, err := NewMinioClient(o.cfg.Minio)
	if err != nil {
		return nil, err
	}
	o.minio = client
	return client, nil
}

func (o *Opener) database(ctx context.Context) (*sql.DB, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.db != nil {
		return o.db, nil
	}
	db, err := OpenPostgres(ctx, o.cfg.Postgres.DSN)
	if err != nil {
		return nil, err
	}
	o.db = db
	return db, nil
}
