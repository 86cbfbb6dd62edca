package attendance

import (
	"testing"
	"time"

	"github.com/opsportal/backend-go/internal/domain/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(t *testing.T, clock string) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)
	parsed, err := time.ParseInLocation("2006-01-02 15:04:05", "2025-03-14 "+clock, loc)
	require.NoError(t, err)
	return parsed
}

func TestEvaluateLateness_FixedBoundary(t *testing.T) {
	// officeHours.start = 08:00, grace = 15 minutes.
	cases := []struct {
		arrival string
		late    bool
	}{
		{"07:55:00", false},
		{"08:14:59", false},
		{"08:15:00", false}, // exactly at the grace boundary is on time
		{"08:15:01", true},
		{"08:20:00", true},
	}

	for _, c := range cases {
		late, err := EvaluateLateness(tenant.StrategyFixed, at(t, c.arrival), "08:00", 15)
		require.NoError(t, err)
		assert.Equal(t, c.late, late, "arrival at %s", c.arrival)
	}
}

func TestEvaluateLateness_ShiftUsesShiftStart(t *testing.T) {
	late, err := EvaluateLateness(tenant.StrategyShift, at(t, "22:20:00"), "22:00", 10)
	require.NoError(t, err)
	assert.True(t, late)

	late, err = EvaluateLateness(tenant.StrategyShift, at(t, "22:05:00"), "22:00", 10)
	require.NoError(t, err)
	assert.False(t, late)
}

func TestEvaluateLateness_FlexibleNeverLate(t *testing.T) {
	late, err := EvaluateLateness(tenant.StrategyFlexible, at(t, "15:45:00"), "08:00", 0)
	require.NoError(t, err)
	assert.False(t, late)
}

func TestEvaluateLateness_ZeroGrace(t *testing.T) {
	late, err := EvaluateLateness(tenant.StrategyFixed, at(t, "08:00:01"), "08:00", 0)
	require.NoError(t, err)
	assert.True(t, late)

	late, err = EvaluateLateness(tenant.StrategyFixed, at(t, "08:00:00"), "08:00", 0)
	require.NoError(t, err)
	assert.False(t, late)
}

func TestEvaluateLateness_DottedLimitClock(t *testing.T) {
	late, err := EvaluateLateness(tenant.StrategyFixed, at(t, "08:20:00"), "08.00", 15)
	require.NoError(t, err)
	assert.True(t, late)
}

func TestEvaluateLateness_InvalidLimit(t *testing.T) {
	_, err := EvaluateLateness(tenant.StrategyFixed, at(t, "08:00:00"), "nonsense", 15)
	assert.Error(t, err)
}
