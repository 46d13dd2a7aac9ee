package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

// PebbleKV persists values in a Pebble database directory.
type PebbleKV struct {
	db *pebble.DB
}

// OpenPebble opens (creating if needed) the database at path.
func OpenPebble(path string) (*PebbleKV, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", path, err)
	}
	return &PebbleKV{db: db}, nil
}

func (p *PebbleKV) Get(key string) ([]byte, bool, error) {
	v, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (p *PebbleKV) Set(key string, value []byte) error {
	return p.db.Set([]byte(key), value, pebble.Sync)
}

func (p *PebbleKV) Delete(key string) error {
	return p.db.Delete([]byte(key), pebble.Sync)
}

func (p *PebbleKV) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
