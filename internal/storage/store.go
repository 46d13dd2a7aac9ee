package storage

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Collection keys. Device-local keys (user, sent ids) are read through a
// device scope; the message collection lives in the root scope.
const (
	KeyUser     = "vibecheck_user"
	KeyMessages = "vibecheck_messages"
	KeySentIDs  = "vibecheck_sent_ids"
)

// Store is a JSON view over a KV backend rooted at a key prefix.
type Store struct {
	kv     KV
	prefix string
	log    *zap.Logger
}

// New wraps kv. A nil logger disables failure logging.
func New(kv KV, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: kv, log: logger.Named("storage")}
}

// Scope returns a Store whose keys are nested under name.
func (s *Store) Scope(name string) *Store {
	return &Store{kv: s.kv, prefix: s.prefix + name + "/", log: s.log}
}

// DeviceScope is the scope holding one device's local collections.
func (s *Store) DeviceScope(deviceID string) *Store {
	return s.Scope("device").Scope(deviceID)
}

func (s *Store) key(k string) string { return s.prefix + k }

// Load decodes the value under key. Missing, unreadable or corrupt values
// all come back as (zero, false); failures are logged, never returned.
func Load[T any](s *Store, key string) (T, bool) {
	var zero T
	raw, ok, err := s.kv.Get(s.key(key))
	if err != nil {
		s.log.Warn("load failed", zap.String("key", s.key(key)), zap.Error(err))
		return zero, false
	}
	if !ok {
		return zero, false
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		s.log.Warn("decode failed, treating as absent", zap.String("key", s.key(key)), zap.Error(err))
		return zero, false
	}
	return out, true
}

// Save encodes v as JSON under key.
func (s *Store) Save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(s.key(key), data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (s *Store) Remove(key string) error {
	if err := s.kv.Delete(s.key(key)); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.kv.Close()
}
