package persistence

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
)

// GCSBackend reads and writes gs://bucket/object paths. The storage client
// is created on first use so servers that never touch GCS need no
// credentials.
type GCSBackend struct {
	mu        sync.Mutex
	client    *storage.Client
	newClient func(ctx context.Context) (*storage.Client, error)
}

func NewGCSBackend() *GCSBackend {
	return &GCSBackend{
		newClient: func(ctx context.Context) (*storage.Client, error) {
			return storage.NewClient(ctx)
		},
	}
}

func (g *GCSBackend) getClient(ctx context.Context) (*storage.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	client, err := g.newClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	g.client = client
	return client, nil
}

func (g *GCSBackend) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	bucket, object, err := ParseGCSPath(path)
	if err != nil {
		return nil, err
	}
	client, err := g.getClient(ctx)
	if err != nil {
		return nil, err
	}
	return client.Bucket(bucket).Object(object).NewReader(ctx)
}

func (g *GCSBackend) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	bucket, object, err := ParseGCSPath(path)
	if err != nil {
		return nil, err
	}
	client, err := g.getClient(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	return &gcsWriter{w: w, cancel: cancel}, nil
}

func (g *GCSBackend) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	return err
}

// gcsWriter commits the object on Close; Abort cancels the upload so the
// previous object generation stays in place.
type gcsWriter struct {
	w      *storage.Writer
	cancel context.CancelFunc
}

func (g *gcsWriter) Write(p []byte) (int, error) {
	return g.w.Write(p)
}

func (g *gcsWriter) Close() error {
	defer g.cancel()
	return g.w.Close()
}

func (g *gcsWriter) Abort() {
	g.cancel()
	_ = g.w.Close()
}

func ParseGCSPath(path string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(path, gcsScheme)
	if !ok {
		return "", "", fmt.Errorf("not a gcs path: %q", path)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("gcs path must be gs://bucket/object: %q", path)
	}
	return bucket, object, nil
}
