package source

import (
	"context"
	"fmt"
	"os"

	"github.com/ppiankov/claimwatch/internal/model"
)

// FileSource reads a snapshot from a local JSON file
type FileSource struct {
	path string
}

// NewFileSource creates a file-backed source
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name returns the file path
func (s *FileSource) Name() string {
	return s.path
}

// Key returns the shared key for local files
func (s *FileSource) Key() string {
	return "file"
}

// Load reads and decodes the snapshot file
func (s *FileSource) Load(ctx context.Context) ([]model.TaggedRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return DecodeSnapshot(data)
}
