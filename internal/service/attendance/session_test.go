package attendance

import (
	"testing"
	"time"

	"github.com/opsportal/backend-go/internal/domain/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jakarta(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)
	return loc
}

func TestResolveOpenSession_TodayRecordWins(t *testing.T) {
	loc := jakarta(t)
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, loc)

	timeOut := "17:00:00"
	records := []attendance.Record{
		{ID: "today-closed", UserID: "w1", Date: "2025-03-14", TimeIn: "08:00:00", TimeOut: &timeOut},
		{ID: "old", UserID: "w1", Date: "2025-03-12", TimeIn: "08:00:00"},
	}

	got := ResolveOpenSession(records, now, loc)
	require.NotNil(t, got)
	assert.Equal(t, "today-closed", got.ID)
	assert.Equal(t, attendance.StatusClosed, got.Status())
}

func TestResolveOpenSession_CrossMidnight(t *testing.T) {
	loc := jakarta(t)

	// Checked in yesterday 23:50, evaluated today 00:20: one continuous
	// session.
	createdAt := time.Date(2025, 3, 13, 23, 50, 0, 0, loc)
	now := time.Date(2025, 3, 14, 0, 20, 0, 0, loc)

	records := []attendance.Record{
		{ID: "overnight", UserID: "w1", Date: "2025-03-13", TimeIn: "23:50:00", CreatedAt: createdAt},
	}

	got := ResolveOpenSession(records, now, loc)
	require.NotNil(t, got)
	assert.Equal(t, "overnight", got.ID)
	assert.Equal(t, attendance.StatusOpen, got.Status())
}

func TestResolveOpenSession_StaleAfter24Hours(t *testing.T) {
	loc := jakarta(t)

	createdAt := time.Date(2025, 3, 13, 23, 50, 0, 0, loc)
	now := createdAt.Add(25 * time.Hour)

	records := []attendance.Record{
		{ID: "overnight", UserID: "w1", Date: "2025-03-13", TimeIn: "23:50:00", CreatedAt: createdAt},
	}

	assert.Nil(t, ResolveOpenSession(records, now, loc))
}

func TestResolveOpenSession_ReconstructsWithoutCreatedAt(t *testing.T) {
	loc := jakarta(t)
	now := time.Date(2025, 3, 14, 0, 20, 0, 0, loc)

	// No CreatedAt: the check-in instant is rebuilt from date + time_in.
	records := []attendance.Record{
		{ID: "overnight", UserID: "w1", Date: "2025-03-13", TimeIn: "23:50"},
	}

	got := ResolveOpenSession(records, now, loc)
	require.NotNil(t, got)
	assert.Equal(t, "overnight", got.ID)
}

func TestResolveOpenSession_ClosedYesterdayIgnored(t *testing.T) {
	loc := jakarta(t)
	now := time.Date(2025, 3, 14, 0, 20, 0, 0, loc)

	timeOut := "23:59:00"
	records := []attendance.Record{
		{ID: "closed", UserID: "w1", Date: "2025-03-13", TimeIn: "15:00:00", TimeOut: &timeOut},
	}

	assert.Nil(t, ResolveOpenSession(records, now, loc))
}

func TestResolveOpenSession_NoRecords(t *testing.T) {
	loc := jakarta(t)
	assert.Nil(t, ResolveOpenSession(nil, time.Now().In(loc), loc))
}
