package tenant

import (
	"github.com/opsportal/backend-go/internal/pkg/geo"
)

// WorkStrategy is the tenant-wide policy for what "on time" means.
type WorkStrategy string

const (
	// StrategyFixed uses a single daily office-hours window.
	StrategyFixed WorkStrategy = "FIXED"
	// StrategyShift uses the start time of the shift the worker selected.
	StrategyShift WorkStrategy = "SHIFT"
	// StrategyFlexible has no lateness concept at all.
	StrategyFlexible WorkStrategy = "FLEXIBLE"
)

func (s WorkStrategy) Valid() bool {
	switch s {
	case StrategyFixed, StrategyShift, StrategyFlexible:
		return true
	}
	return false
}

// OfficeHours is the daily window used under the FIXED strategy.
type OfficeHours struct {
	Start string `json:"start"` // "HH:MM"
	End   string `json:"end"`
}

// Policy is the subset of tenant configuration the attendance engine
// consumes.
type Policy struct {
	TenantID        string
	WorkStrategy    WorkStrategy
	RadiusTolerance float64 // meters
	LateGracePeriod int     // minutes
	OfficeLocation  geo.Point
	OfficeHours     OfficeHours
	Timezone        string // IANA name, the organization's reference timezone
}
