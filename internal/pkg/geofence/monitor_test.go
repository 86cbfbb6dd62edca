package geofence

import (
	"context"
	"testing"
	"time"

	"github.com/opsportal/backend-go/internal/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var office = geo.Point{Lat: -6.2088, Lng: 106.8456}

func TestReading_NoFixYet(t *testing.T) {
	m := NewMonitor(10 * time.Minute)

	r := m.Reading("worker-1")
	assert.True(t, r.Loading)
	assert.Nil(t, r.Distance)
}

func TestReport_ComputesDistance(t *testing.T) {
	m := NewMonitor(10 * time.Minute)

	r := m.Report("worker-1", Fix{Point: office, Accuracy: 12}, office)
	require.NotNil(t, r.Distance)
	assert.Equal(t, 0.0, *r.Distance)
	assert.False(t, r.Loading)
	assert.Equal(t, 12.0, r.Accuracy)

	// Latest fix replaces the previous one.
	away := geo.Point{Lat: office.Lat + 0.01, Lng: office.Lng}
	r = m.Report("worker-1", Fix{Point: away, Accuracy: 8}, office)
	require.NotNil(t, r.Distance)
	assert.Greater(t, *r.Distance, 1000.0)

	got := m.Reading("worker-1")
	assert.Equal(t, *r.Distance, *got.Distance)
}

func TestReport_NotifiesSubscriber(t *testing.T) {
	m := NewMonitor(10 * time.Minute)

	var gotUser string
	var gotReading Reading
	m.OnReading(func(userID string, r Reading) {
		gotUser = userID
		gotReading = r
	})

	m.Report("worker-1", Fix{Point: office, Accuracy: 5}, office)
	assert.Equal(t, "worker-1", gotUser)
	require.NotNil(t, gotReading.Distance)
}

func TestForget_ReleasesEntry(t *testing.T) {
	m := NewMonitor(10 * time.Minute)
	m.Report("worker-1", Fix{Point: office, Accuracy: 5}, office)

	m.Forget("worker-1")

	r := m.Reading("worker-1")
	assert.True(t, r.Loading)
	assert.Nil(t, r.Distance)
}

func TestSweep_EvictsStaleEntries(t *testing.T) {
	m := NewMonitor(time.Millisecond)
	m.Report("worker-1", Fix{Point: office, Accuracy: 5}, office)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, m.Sweep(context.Background()))

	r := m.Reading("worker-1")
	assert.True(t, r.Loading)
}
