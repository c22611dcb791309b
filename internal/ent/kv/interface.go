package kv

// KeyVal is a persistent key-value store for opaque blobs that must
// survive between crawl runs.
type KeyVal interface {
	// Open opens a key-value store.
	Open() error

	// Close closes a key-value store.
	Close() error

	// GetValue returns a value for a given key, or nil when the key does
	// not exist.
	GetValue(key []byte) ([]byte, error)

	// SetValue sets a key-value pair.
	SetValue(key, val []byte) error
}
