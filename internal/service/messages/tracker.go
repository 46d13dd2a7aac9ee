package messages

import (
	"slices"
	"sync"

	"github.com/zhouzirui/vibecheck/backend/internal/storage"
)

// Tracker records which message ids a device authored. It is the only link
// between an anonymous sender and their outgoing messages.
type Tracker struct {
	mu    sync.Mutex
	store *storage.Store
}

// NewTracker reads and writes device scopes under store.
func NewTracker(store *storage.Store) *Tracker {
	return &Tracker{store: store}
}

// IDs returns the ids sent from deviceID.
func (t *Tracker) IDs(deviceID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids, _ := storage.Load[[]string](t.store.DeviceScope(deviceID), storage.KeySentIDs)
	return ids
}

// Record adds id to deviceID's sent set.
func (t *Tracker) Record(deviceID, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	scope := t.store.DeviceScope(deviceID)
	ids, _ := storage.Load[[]string](scope, storage.KeySentIDs)
	if slices.Contains(ids, id) {
		return nil
	}
	return scope.Save(storage.KeySentIDs, append(ids, id))
}
