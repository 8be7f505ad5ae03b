package store

import (
	"context"
	"sort"
	"time"

	"github.com/loganszeto/udpkv/internal/persistence"
)

const defaultIOTimeout = 30 * time.Second

type Options struct {
	// Backend resolves loaddb/savedb paths. Defaults to a file backend
	// rooted at the working directory.
	Backend persistence.Backend
	// IOTimeout bounds a single loaddb or savedb call.
	IOTimeout time.Duration
}

// DataStore is the in-memory Store with snapshot load/save.
type DataStore struct {
	*MemTable
	backend   persistence.Backend
	ioTimeout time.Duration
}

var _ Store = (*DataStore)(nil)

func NewDataStore(opts Options) *DataStore {
	if opts.Backend == nil {
		opts.Backend = persistence.NewFileBackend("")
	}
	if opts.IOTimeout <= 0 {
		opts.IOTimeout = defaultIOTimeout
	}
	return &DataStore{
		MemTable:  NewMemTable(),
		backend:   opts.Backend,
		ioTimeout: opts.IOTimeout,
	}
}

func (s *DataStore) LoadDB(path string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.ioTimeout)
	defer cancel()
	recs, err := persistence.Load(ctx, s.backend, path)
	if err != nil {
		return 0, err
	}
	for _, rec := range recs {
		s.MemTable.Set(rec.Key, rec.Value)
	}
	return len(recs), nil
}

func (s *DataStore) SaveDB(path string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.ioTimeout)
	defer cancel()
	recs := make([]persistence.Record, 0, s.Size())
	s.Range(func(k string, v []byte) bool {
		recs = append(recs, persistence.Record{Key: k, Value: v})
		return true
	})
	sort.Slice(recs, func(i, j int) bool { return recs[i].Key < recs[j].Key })
	return persistence.Save(ctx, s.backend, path, recs)
}

// Close releases backend resources such as a GCS client.
func (s *DataStore) Close() error {
	if c, ok := s.backend.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
