package shift

import (
	"github.com/opsportal/backend-go/internal/pkg/timeutil"
)

// Shift is one scheduling template a worker may select before checking in
// under the SHIFT work strategy.
type Shift struct {
	ID          string
	TenantID    string
	Name        string
	StartTime   string // "HH:MM"
	EndTime     string
	IsOvernight bool
}

// DurationMinutes returns the shift length, wrapping across midnight for
// overnight shifts so "22:00"-"02:00" is 240 minutes, never negative.
func (s Shift) DurationMinutes() (int, error) {
	return timeutil.SpanMinutes(s.StartTime, s.EndTime)
}
