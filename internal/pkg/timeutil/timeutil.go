package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// ParseClock parses a wall-clock string into minutes since midnight.
// Accepts "HH:MM" and "HH:MM:SS"; "." is accepted as a separator alias
// for ":" since some clients send "08.30". Seconds are ignored for the
// minute count.
func ParseClock(s string) (int, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(s), ".", ":")
	parts := strings.Split(normalized, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid clock string: %q", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}

	if hour < 0 || hour > 23 {
		return 0, fmt.Errorf("hour out of range in %q", s)
	}
	if minute < 0 || minute > 59 {
		return 0, fmt.Errorf("minute out of range in %q", s)
	}

	if len(parts) == 3 {
		second, err := strconv.Atoi(parts[2])
		if err != nil || second < 0 || second > 59 {
			return 0, fmt.Errorf("invalid second in %q", s)
		}
	}

	return hour*60 + minute, nil
}

// ParseClockSeconds parses a wall-clock string into seconds since midnight,
// with the same format rules as ParseClock.
func ParseClockSeconds(s string) (int, error) {
	minutes, err := ParseClock(s)
	if err != nil {
		return 0, err
	}

	normalized := strings.ReplaceAll(strings.TrimSpace(s), ".", ":")
	parts := strings.Split(normalized, ":")
	seconds := 0
	if len(parts) == 3 {
		seconds, _ = strconv.Atoi(parts[2])
	}

	return minutes*60 + seconds, nil
}

// SpanMinutes returns the duration in minutes from start to end wall-clock
// strings. An end earlier than start is treated as crossing midnight, so
// "22:00" to "02:00" yields 240 rather than a negative span.
func SpanMinutes(start, end string) (int, error) {
	startMins, err := ParseClock(start)
	if err != nil {
		return 0, err
	}
	endMins, err := ParseClock(end)
	if err != nil {
		return 0, err
	}

	span := endMins - startMins
	if span < 0 {
		span += minutesPerDay
	}
	return span, nil
}

// At rebuilds an absolute instant from a calendar day and a wall-clock
// string, in the given location.
func At(day time.Time, clock string, loc *time.Location) (time.Time, error) {
	seconds, err := ParseClockSeconds(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		seconds/3600, (seconds/60)%60, seconds%60, 0, loc), nil
}

// FormatClock renders an instant as "HH:MM:SS" in the given location.
func FormatClock(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04:05")
}

// DateString renders an instant as "YYYY-MM-DD" in the given location.
func DateString(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
