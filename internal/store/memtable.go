package store

import (
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
)

type MemTable struct {
	m *xsync.MapOf[string, []byte]
}

func NewMemTable() *MemTable {
	return &MemTable{
		m: xsync.NewMapOf[string, []byte](),
	}
}

func (t *MemTable) Get(key string) ([]byte, bool) {
	v, ok := t.m.Load(key)
	if !ok {
		return nil, false
	}
	return clone(v), true
}

func (t *MemTable) Set(key string, value []byte) ([]byte, bool) {
	prev, ok := t.m.LoadAndStore(key, clone(value))
	if !ok {
		return nil, false
	}
	return prev, true
}

func (t *MemTable) Remove(key string) ([]byte, bool) {
	return t.m.LoadAndDelete(key)
}

func (t *MemTable) Size() int {
	return t.m.Size()
}

func (t *MemTable) Keys() []string {
	out := make([]string, 0, t.m.Size())
	t.m.Range(func(k string, _ []byte) bool {
		out = append(out, k)
		return true
	})
	sort.Strings(out)
	return out
}

// Range calls fn for every entry in no particular order until fn returns false.
func (t *MemTable) Range(fn func(key string, value []byte) bool) {
	t.m.Range(fn)
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
