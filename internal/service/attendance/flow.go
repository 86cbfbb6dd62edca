package attendance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/opsportal/backend-go/internal/domain/attendance"
	"github.com/opsportal/backend-go/internal/pkg/geo"
)

// flow is one worker's in-progress check-in or check-out transition. A flow
// exists only between IDLE and SUCCESS; once finalized or cancelled it is
// removed, which is how the machine returns to IDLE.
type flow struct {
	userID   string
	tenantID string
	stage    attendance.Stage
	checkOut bool

	// Frozen at the guard step, never recomputed.
	isLate     bool
	lateReason *string
	shiftID    *string
	location   geo.Point

	// For check-out: the open record being patched.
	openRecordID string

	// Captured selfie, preserved across transient failures so the worker
	// can retry without recapturing. Cleared on every flow exit.
	frame     []byte
	frameName string

	// Only one finalize may be in flight per flow.
	submitting bool

	startedAt time.Time
}

// FlowStore holds in-progress flows keyed by worker. All flow mutation
// happens under its mutex via withFlow, so transition ordering is safe
// even though requests arrive concurrently.
type FlowStore struct {
	mu    sync.Mutex
	flows map[string]*flow
	ttl   time.Duration
}

func NewFlowStore(ttl time.Duration) *FlowStore {
	return &FlowStore{
		flows: make(map[string]*flow),
		ttl:   ttl,
	}
}

// put registers a new flow for a worker, replacing any stale one.
func (s *FlowStore) put(f *flow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.startedAt = time.Now()
	s.flows[f.userID] = f
}

// stage returns the worker's current stage, IDLE when no flow exists.
func (s *FlowStore) stage(userID string) attendance.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.flows[userID]; ok {
		return f.stage
	}
	return attendance.StageIdle
}

// withFlow runs fn against the worker's flow under the store lock.
// Returns ErrNoActiveFlow when none exists.
func (s *FlowStore) withFlow(userID string, fn func(*flow) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flows[userID]
	if !ok {
		return attendance.ErrNoActiveFlow
	}
	return fn(f)
}

// remove drops the worker's flow and releases its captured frame.
func (s *FlowStore) remove(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.flows[userID]; ok {
		f.frame = nil
		delete(s.flows, userID)
	}
}

// beginSubmit marks the flow as having a finalize in flight. Refused when
// one is already pending or the flow is not at the SELFIE stage.
func (s *FlowStore) beginSubmit(userID string) error {
	return s.withFlow(userID, func(f *flow) error {
		if f.stage != attendance.StageSelfie {
			return attendance.ErrInvalidStage
		}
		if f.submitting {
			return attendance.ErrSubmissionInFlight
		}
		f.submitting = true
		return nil
	})
}

func (s *FlowStore) endSubmit(userID string) {
	_ = s.withFlow(userID, func(f *flow) error {
		f.submitting = false
		return nil
	})
}

// Sweep drops flows abandoned past the TTL, releasing their frames.
// Registered as a cron job.
func (s *FlowStore) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	expired := 0
	for userID, f := range s.flows {
		if f.startedAt.Before(cutoff) && !f.submitting {
			f.frame = nil
			delete(s.flows, userID)
			expired++
		}
	}

	if expired > 0 {
		slog.Info("Expired abandoned attendance flows", "count", expired)
	}
	return nil
}
