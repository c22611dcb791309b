package kvio

import (
	"errors"
	"log/slog"

	"github.com/dgraph-io/badger/v2"
	"github.com/gnames/gnsys"
	"github.com/iiifsearch/canvasindexer/internal/ent/kv"
)

type kvio struct {
	dir string
	kv  *badger.DB
}

// New returns a new instance of kvio. Unlike a scratch store the
// directory is not cleaned: its contents carry state between runs.
func New(dir string) (kv.KeyVal, error) {
	res := kvio{
		dir: dir,
	}

	err := gnsys.MakeDir(dir)
	if err != nil {
		slog.Error("Cannot create directory", "error", err, "dir", dir)
		return nil, err
	}

	return &res, nil
}

// Open opens a key-value store.
func (k *kvio) Open() error {
	if k.kv != nil {
		slog.Warn("key-value store is not nil")
	}
	options := badger.DefaultOptions(k.dir)
	options.Logger = nil

	bdb, err := badger.Open(options)
	if err != nil {
		return err
	}
	k.kv = bdb
	return nil
}

// Close closes a key-value store.
func (k *kvio) Close() error {
	if k.kv == nil {
		slog.Warn("key-value store is nil")
		return nil
	}
	err := k.kv.Close()
	k.kv = nil
	return err
}

// GetValue returns a value for a given key.
func (k *kvio) GetValue(key []byte) ([]byte, error) {
	if k.kv == nil {
		return nil, errors.New("key-value store is not open")
	}
	txn := k.kv.NewTransaction(false)
	defer txn.Discard()
	val, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var res []byte
	return val.ValueCopy(res)
}

// SetValue sets a key-value pair.
func (k *kvio) SetValue(key, val []byte) error {
	if k.kv == nil {
		return errors.New("key-value store is not open")
	}
	txn := k.kv.NewTransaction(true)
	defer txn.Discard()
	if err := txn.Set(key, val); err != nil {
		return err
	}
	return txn.Commit()
}
