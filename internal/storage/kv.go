package storage

import "errors"

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("storage closed")

// KV is the raw byte-level key/value backend behind a Store.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}
