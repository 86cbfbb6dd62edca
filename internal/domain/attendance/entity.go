package attendance

import (
	"time"

	"github.com/opsportal/backend-go/internal/pkg/geo"
)

// Status makes the open/closed distinction explicit. On the wire a record
// is open purely by the absence of time_out; Status is derived, never
// stored, so the representation stays backward-compatible.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// Record is one worker's activity for one logical work session. Date and
// IsLate are fixed at check-in and never recomputed, even when the
// check-out lands after local midnight.
type Record struct {
	ID                string
	UserID            string
	TenantID          string
	Date              string // "YYYY-MM-DD", organization-local
	TimeIn            string // "HH:MM:SS" wall clock
	TimeOut           *string
	IsLate            bool
	LateReason        *string
	Location          geo.Point
	ShiftID           *string
	SelfieURL         *string
	CheckOutSelfieURL *string
	CreatedAt         time.Time // server-observed, authoritative order marker
}

// Status derives the session state from the absence of TimeOut.
func (r Record) Status() Status {
	if r.TimeOut == nil {
		return StatusOpen
	}
	return StatusClosed
}
