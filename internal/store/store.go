package store

// Store is the key/value contract the dispatcher consumes.
type Store interface {
	Get(key string) ([]byte, bool)
	// Set stores value and returns the value it replaced, if any.
	Set(key string, value []byte) ([]byte, bool)
	// Remove deletes key and returns the value it held, if any.
	Remove(key string) ([]byte, bool)
	Size() int
	// Keys returns all keys in ascending order.
	Keys() []string
	// LoadDB merges the snapshot at path into the store and returns the
	// number of records read.
	LoadDB(path string) (int, error)
	// SaveDB writes every entry to path and returns the number written.
	SaveDB(path string) (int, error)
}
