package attendance

import (
	"time"

	"github.com/opsportal/backend-go/internal/domain/attendance"
	"github.com/opsportal/backend-go/internal/pkg/timeutil"
)

// abandonedAfter is the window past its check-in instant after which an
// un-closed session from the previous day is treated as abandoned rather
// than active. Organizations with shifts longer than 24 hours would need a
// different threshold; the source behavior does not address that case.
const abandonedAfter = 24 * time.Hour

// ResolveOpenSession decides which record, if any, represents the worker's
// current session at now. records must be the worker's recent history,
// newest first; loc is the organization's reference timezone.
//
// A record dated today wins outright, closed or open: the worker either has
// an open session or has already completed today's. Otherwise a record
// dated exactly yesterday with no check-out is still the active session
// when its check-in instant is less than 24 hours ago, so a worker who
// checked in at 23:50 and checks out at 00:20 sees one continuous session
// rather than an orphaned record. Older or staler candidates are ignored.
func ResolveOpenSession(records []attendance.Record, now time.Time, loc *time.Location) *attendance.Record {
	today := timeutil.DateString(now, loc)
	yesterday := timeutil.DateString(now.AddDate(0, 0, -1), loc)

	for i := range records {
		if records[i].Date == today {
			return &records[i]
		}
	}

	for i := range records {
		rec := &records[i]
		if rec.Date != yesterday || rec.TimeOut != nil {
			continue
		}

		checkIn, ok := effectiveCheckIn(rec, loc)
		if !ok {
			continue
		}
		if now.Sub(checkIn) < abandonedAfter {
			return rec
		}
	}

	return nil
}

// effectiveCheckIn returns the instant the record was opened, preferring
// the server-observed CreatedAt over reconstructing from date + time_in.
func effectiveCheckIn(rec *attendance.Record, loc *time.Location) (time.Time, bool) {
	if !rec.CreatedAt.IsZero() {
		return rec.CreatedAt, true
	}

	day, err := time.ParseInLocation("2006-01-02", rec.Date, loc)
	if err != nil {
		return time.Time{}, false
	}
	instant, err := timeutil.At(day, rec.TimeIn, loc)
	if err != nil {
		return time.Time{}, false
	}
	return instant, true
}
