package persistence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrOutsideDir = errors.New("path escapes data folder")

// FileBackend stores snapshots on the local filesystem. Paths must be
// relative and stay under Dir.
type FileBackend struct {
	Dir string
}

func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{Dir: dir}
}

func (b *FileBackend) resolve(path string) (string, error) {
	if path == "" || filepath.IsAbs(path) || filepath.VolumeName(path) != "" {
		return "", fmt.Errorf("%w: %q", ErrOutsideDir, path)
	}
	base := b.Dir
	if base == "" {
		base = "."
	}
	dst := filepath.Join(base, path)
	rel, err := filepath.Rel(filepath.Clean(base), dst)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrOutsideDir, path)
	}
	return dst, nil
}

func (b *FileBackend) Open(_ context.Context, path string) (io.ReadCloser, error) {
	src, err := b.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.Open(src)
}

func (b *FileBackend) Create(_ context.Context, path string) (io.WriteCloser, error) {
	dst, err := b.resolve(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, err
	}
	tmp := dst + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, err
	}
	return &atomicFile{f: f, tmp: tmp, dst: dst}, nil
}

type atomicFile struct {
	f   *os.File
	tmp string
	dst string
}

func (a *atomicFile) Write(p []byte) (int, error) {
	return a.f.Write(p)
}

func (a *atomicFile) Close() error {
	if err := a.f.Sync(); err != nil {
		a.Abort()
		return err
	}
	if err := a.f.Close(); err != nil {
		_ = os.Remove(a.tmp)
		return err
	}
	return os.Rename(a.tmp, a.dst)
}

func (a *atomicFile) Abort() {
	_ = a.f.Close()
	_ = os.Remove(a.tmp)
}
