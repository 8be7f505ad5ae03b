package persistence

import (
	"context"
	"io"
	"strings"
)

// Backend is where snapshots are read from and written to.
type Backend interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// Create returns a writer whose content becomes visible at path only
	// after a successful Close.
	Create(ctx context.Context, path string) (io.WriteCloser, error)
}

// aborter is implemented by writers that can discard pending output.
type aborter interface {
	Abort()
}

const gcsScheme = "gs://"

// Router sends gs:// paths to GCS and everything else to Files.
type Router struct {
	Files *FileBackend
	GCS   *GCSBackend
}

func NewRouter(dataDir string) *Router {
	return &Router{
		Files: NewFileBackend(dataDir),
		GCS:   NewGCSBackend(),
	}
}

func (r *Router) pick(path string) Backend {
	if strings.HasPrefix(path, gcsScheme) {
		return r.GCS
	}
	return r.Files
}

func (r *Router) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	return r.pick(path).Open(ctx, path)
}

func (r *Router) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	return r.pick(path).Create(ctx, path)
}

func (r *Router) Close() error {
	if r.GCS == nil {
		return nil
	}
	return r.GCS.Close()
}
