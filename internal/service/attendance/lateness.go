package attendance

import (
	"fmt"
	"time"

	"github.com/opsportal/backend-go/internal/domain/tenant"
	"github.com/opsportal/backend-go/internal/pkg/timeutil"
)

// EvaluateLateness decides whether a check-in at now is late. limitClock is
// the office-hours start under FIXED or the selected shift's start under
// SHIFT; now must already be in the organization's reference timezone.
//
// The boundary is inclusive of the grace window: with start 08:00 and a
// 15-minute grace, 08:15:00 exactly is still on time; lateness requires
// being strictly after the threshold. The result is consumed exactly once,
// at check-in, and frozen on the record.
func EvaluateLateness(strategy tenant.WorkStrategy, now time.Time, limitClock string, graceMinutes int) (bool, error) {
	if strategy == tenant.StrategyFlexible {
		// No threshold exists under flexible hours.
		return false, nil
	}

	threshold, err := timeutil.At(now, limitClock, now.Location())
	if err != nil {
		return false, fmt.Errorf("invalid lateness limit %q: %w", limitClock, err)
	}
	threshold = threshold.Add(time.Duration(graceMinutes) * time.Minute)

	return now.After(threshold), nil
}
