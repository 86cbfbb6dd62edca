package clock

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Clock is the read side of a synchronized time source. Consumers that only
// need the adjusted time depend on this rather than the Synchronizer.
type Clock interface {
	Now() time.Time
	Synced() bool
}

// Synchronizer estimates the offset between the local clock and a trusted
// reference clock by timing a lightweight HTTP probe and reading the
// server-reported Date header. Every "now" used for lateness decisions and
// record timestamps goes through Now() so a tampered device clock cannot
// fabricate an on-time check-in.
//
// When the probe fails the offset stays at zero and the engine trusts the
// local clock. That is an accepted weakening of the anti-spoofing
// guarantee, not a blocking condition.
type Synchronizer struct {
	probeURL    string
	resyncEvery time.Duration
	client      *http.Client
	onTick      func(now time.Time, synced bool)

	mu     sync.RWMutex
	offset time.Duration
	synced bool
}

func NewSynchronizer(probeURL string, resyncEvery time.Duration) *Synchronizer {
	return &Synchronizer{
		probeURL:    probeURL,
		resyncEvery: resyncEvery,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// OnTick registers a callback invoked once per second while Run is active,
// so a live clock display can stay current without re-probing.
func (s *Synchronizer) OnTick(fn func(now time.Time, synced bool)) {
	s.onTick = fn
}

// Now returns the local clock adjusted by the estimated offset.
func (s *Synchronizer) Now() time.Time {
	return time.Now().Add(s.Offset())
}

// Offset returns the current estimated offset to the reference clock.
func (s *Synchronizer) Offset() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.offset
}

// Synced reports whether at least one probe has succeeded.
func (s *Synchronizer) Synced() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.synced
}

// Sync performs one probe against the reference endpoint and updates the
// offset. The estimate assumes symmetric network latency: one-way latency
// is half the round trip, and the server timestamp is advanced by it before
// being compared to the local receive time.
func (s *Synchronizer) Sync(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.probeURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build clock probe request: %w", err)
	}

	t0 := time.Now()
	resp, err := s.client.Do(req)
	t1 := time.Now()
	if err != nil {
		return fmt.Errorf("clock probe failed: %w", err)
	}
	defer resp.Body.Close()

	dateHeader := resp.Header.Get("Date")
	if dateHeader == "" {
		return fmt.Errorf("clock probe response has no Date header")
	}

	serverTime, err := http.ParseTime(dateHeader)
	if err != nil {
		return fmt.Errorf("failed to parse Date header %q: %w", dateHeader, err)
	}

	latency := t1.Sub(t0) / 2
	estimatedServerTime := serverTime.Add(latency)
	offset := estimatedServerTime.Sub(t1)

	s.mu.Lock()
	s.offset = offset
	s.synced = true
	s.mu.Unlock()

	return nil
}

// Run performs an initial probe, then keeps the offset fresh on the resync
// interval and emits a once-per-second tick. It returns when ctx is
// cancelled; both tickers are stopped on every exit path.
func (s *Synchronizer) Run(ctx context.Context) {
	if err := s.Sync(ctx); err != nil {
		slog.Warn("Clock sync degraded to local time", "error", err)
	}

	resync := time.NewTicker(s.resyncEvery)
	defer resync.Stop()

	tick := time.NewTicker(time.Second)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-resync.C:
			if err := s.Sync(ctx); err != nil {
				slog.Warn("Clock re-sync failed, keeping previous offset", "error", err)
			}
		case <-tick.C:
			if s.onTick != nil {
				s.onTick(s.Now(), s.Synced())
			}
		}
	}
}
