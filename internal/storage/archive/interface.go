// Package archive stores immutable documents such as validation reports on
// the local filesystem or an S3-compatible bucket.
package archive

import (
	"context"
	"fmt"

	"github.com/newthinker/edgeval/internal/core"
)

// Storage is a flat key-value store for documents. Keys are slash-separated
// relative paths. Reading a missing key fails with core.ErrNoData; any other
// backend failure is core.ErrStorageFailed.
type Storage interface {
	// Write stores data at the given path, replacing existing content
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths under the prefix, sorted
	List(ctx context.Context, prefix string) ([]string, error)

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// Config selects and configures a backend
type Config struct {
	Type string // "localfs" (default) or "s3"
	Path string
	S3   S3Config
}

// Open creates the backend described by cfg
func Open(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", "localfs":
		return NewLocalFS(cfg.Path)
	case "s3":
		return NewS3(cfg.S3)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown storage type %q", cfg.Type))
	}
}

func notFound(path string) error {
	return core.WrapError(core.ErrNoData, fmt.Errorf("no document at %s", path))
}

func failed(op, path string, err error) error {
	return core.WrapError(core.ErrStorageFailed, fmt.Errorf("%s %s: %w", op, path, err))
}
