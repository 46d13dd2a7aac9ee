package device

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/vibecheck/backend/internal/metrics"
)

var (
	ErrDeviceRequired = errors.New("device id is required")
	ErrInvalidDevice  = errors.New("device id must be a uuid")
)

// DefaultIdleTTL is used when Deps.IdleTTL is zero.
const DefaultIdleTTL = 30 * time.Minute

// Manager hands out one Controller per device id. Controllers unused for
// the idle TTL and without subscribers are closed and dropped; their
// persisted user and sent ids survive, only view state is lost.
type Manager struct {
	mu        sync.RWMutex
	devices   map[string]*Controller
	deps      Deps
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewManager bootstraps an empty device registry.
func NewManager(deps Deps) *Manager {
	ttl := deps.IdleTTL
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &Manager{
		devices:   make(map[string]*Controller),
		deps:      deps,
		ttl:       ttl,
		now:       time.Now,
		lastSweep: time.Now(),
	}
}

// NewDeviceID mints an id for a browser that has none yet.
func NewDeviceID() string {
	return uuid.NewString()
}

// Get returns the controller for deviceID, creating it on first use.
func (m *Manager) Get(deviceID string) (*Controller, error) {
	if deviceID == "" {
		return nil, ErrDeviceRequired
	}
	parsed, err := uuid.Parse(deviceID)
	if err != nil {
		return nil, ErrInvalidDevice
	}
	deviceID = parsed.String()

	now := m.now()

	// touch under the read lock so a concurrent sweep cannot evict c
	// between lookup and use.
	m.mu.RLock()
	c, ok := m.devices[deviceID]
	sweepDue := now.Sub(m.lastSweep) >= m.ttl/2
	if ok && !sweepDue {
		c.touch(now)
	}
	m.mu.RUnlock()
	if ok && !sweepDue {
		return c, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if sweepDue {
		m.sweepLocked(now)
	}
	c, ok = m.devices[deviceID]
	if !ok {
		c = NewController(deviceID, m.deps)
		m.devices[deviceID] = c
	}
	c.touch(now)
	metrics.ActiveDevices.Set(float64(len(m.devices)))
	return c, nil
}

// Len returns the number of controllers held.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.devices)
}

func (m *Manager) sweepLocked(now time.Time) {
	m.lastSweep = now
	cutoff := now.Add(-m.ttl)
	for id, c := range m.devices {
		if c.idle(cutoff) {
			c.Close()
			delete(m.devices, id)
		}
	}
}

// Close shuts down every controller.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.devices {
		c.Close()
		delete(m.devices, id)
	}
	metrics.ActiveDevices.Set(0)
}
