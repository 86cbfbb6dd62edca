package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock_SeparatorAlias(t *testing.T) {
	dotted, err := ParseClock("08.30")
	require.NoError(t, err)

	colon, err := ParseClock("08:30")
	require.NoError(t, err)

	assert.Equal(t, colon, dotted)
	assert.Equal(t, 8*60+30, colon)
}

func TestParseClock_WithSeconds(t *testing.T) {
	mins, err := ParseClock("23:50:10")
	require.NoError(t, err)
	assert.Equal(t, 23*60+50, mins)

	secs, err := ParseClockSeconds("23:50:10")
	require.NoError(t, err)
	assert.Equal(t, (23*60+50)*60+10, secs)
}

func TestParseClock_Invalid(t *testing.T) {
	cases := []string{"", "8", "25:00", "08:61", "ab:cd", "08:30:99"}
	for _, c := range cases {
		_, err := ParseClock(c)
		assert.Error(t, err, "expected error for %q", c)
	}
}

func TestSpanMinutes_SameDay(t *testing.T) {
	span, err := SpanMinutes("08:00", "17:00")
	require.NoError(t, err)
	assert.Equal(t, 9*60, span)
}

func TestSpanMinutes_Overnight(t *testing.T) {
	span, err := SpanMinutes("22:00", "02:00")
	require.NoError(t, err)
	assert.Equal(t, 4*60, span)
	assert.Positive(t, span)
}

func TestAt_RebuildsInstant(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	day := time.Date(2025, 3, 14, 0, 0, 0, 0, loc)
	instant, err := At(day, "23:50", loc)
	require.NoError(t, err)

	assert.Equal(t, 23, instant.Hour())
	assert.Equal(t, 50, instant.Minute())
	assert.Equal(t, 14, instant.Day())
	assert.Equal(t, loc, instant.Location())
}
