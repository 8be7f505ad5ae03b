package persistence

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
)

func WriteSnapshot(w io.Writer, recs []Record) (int, error) {
	bw := bufio.NewWriter(w)
	for i, rec := range recs {
		data, err := Encode(rec)
		if err != nil {
			return i, err
		}
		if _, err := bw.Write(data); err != nil {
			return i, err
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	return len(recs), nil
}

func ReadSnapshot(r io.Reader) ([]Record, error) {
	br := bufio.NewReader(r)
	var out []Record
	for {
		rec, err := DecodeFrom(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, err
		}
		out = append(out, rec)
	}
}

// Load reads every record stored at path. Nothing is returned unless the
// whole snapshot decodes.
func Load(ctx context.Context, b Backend, path string) ([]Record, error) {
	rc, err := b.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer rc.Close()
	recs, err := ReadSnapshot(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return recs, nil
}

// Save writes recs to path. The destination only changes when Close on the
// backend writer succeeds.
func Save(ctx context.Context, b Backend, path string, recs []Record) (int, error) {
	wc, err := b.Create(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	n, err := WriteSnapshot(wc, recs)
	if err != nil {
		if a, ok := wc.(aborter); ok {
			a.Abort()
		} else {
			_ = wc.Close()
		}
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	if err := wc.Close(); err != nil {
		return 0, fmt.Errorf("commit %s: %w", path, err)
	}
	return n, nil
}
