package geofence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/opsportal/backend-go/internal/pkg/geo"
)

// Fix is one reported device location sample.
type Fix struct {
	Point    geo.Point
	Accuracy float64 // reported accuracy in meters
}

// Reading is the live distance-to-office state for one worker. Distance is
// nil until a fix has been reported; consumers must treat nil as "no
// location yet", never as zero or in-range.
type Reading struct {
	Distance  *float64  `json:"distance"`
	Accuracy  float64   `json:"accuracy"`
	Loading   bool      `json:"loading"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type entry struct {
	reading   Reading
	fix       Fix
	updatedAt time.Time
}

// Monitor tracks the latest distance-to-office reading per worker while a
// check-in view is active. Entries are released explicitly when the flow
// ends and swept when stale, so an abandoned client never leaves a
// lingering entry behind.
type Monitor struct {
	mu        sync.RWMutex
	entries   map[string]entry
	ttl       time.Duration
	onReading func(userID string, r Reading)
}

func NewMonitor(ttl time.Duration) *Monitor {
	return &Monitor{
		entries: make(map[string]entry),
		ttl:     ttl,
	}
}

// OnReading registers a callback invoked for every reported fix, used to
// push live readings to the presentation layer.
func (m *Monitor) OnReading(fn func(userID string, r Reading)) {
	m.onReading = fn
}

// Report feeds a new fix for a worker and returns the updated reading
// against the given office point.
func (m *Monitor) Report(userID string, fix Fix, office geo.Point) Reading {
	distance := geo.Distance(fix.Point, office)
	now := time.Now()

	r := Reading{
		Distance:  &distance,
		Accuracy:  fix.Accuracy,
		Loading:   false,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.entries[userID] = entry{reading: r, fix: fix, updatedAt: now}
	m.mu.Unlock()

	if m.onReading != nil {
		m.onReading(userID, r)
	}

	return r
}

// Reading returns the latest reading for a worker. Before any fix arrives
// the reading is loading with a nil distance.
func (m *Monitor) Reading(userID string) Reading {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[userID]
	if !ok {
		return Reading{Distance: nil, Loading: true}
	}
	return e.reading
}

// LastFix returns the most recent reported location for a worker, used to
// stamp the check-in coordinate on the record.
func (m *Monitor) LastFix(userID string) (Fix, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[userID]
	if !ok {
		return Fix{}, false
	}
	return e.fix, true
}

// Forget releases the entry for a worker. Called on every flow exit path.
func (m *Monitor) Forget(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID)
}

// Sweep evicts entries that have not received a fix within the TTL.
// Registered as a cron job.
func (m *Monitor) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for userID, e := range m.entries {
		if e.updatedAt.Before(cutoff) {
			delete(m.entries, userID)
			evicted++
		}
	}

	if evicted > 0 {
		slog.Info("Geofence sweep evicted stale entries", "count", evicted)
	}
	return nil
}
