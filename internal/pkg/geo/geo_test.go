package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance_IdenticalPoints(t *testing.T) {
	points := []Point{
		{Lat: 0, Lng: 0},
		{Lat: -6.2088, Lng: 106.8456},
		{Lat: 89.9, Lng: 179.9},
		{Lat: -33.8688, Lng: 151.2093},
	}

	for _, p := range points {
		assert.Equal(t, 0.0, Distance(p, p))
	}
}

func TestDistance_Symmetric(t *testing.T) {
	a := Point{Lat: -6.2088, Lng: 106.8456}  // Jakarta
	b := Point{Lat: -7.7956, Lng: 110.3695}  // Yogyakarta

	assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)
}

func TestDistance_OneDegreeMeridian(t *testing.T) {
	// One degree of latitude along a meridian is ~111 km.
	a := Point{Lat: 0, Lng: 0}
	b := Point{Lat: 1, Lng: 0}

	d := Distance(a, b)
	assert.InDelta(t, 111000, d, 500)
}

func TestDistance_Antipodal(t *testing.T) {
	a := Point{Lat: 0, Lng: 0}
	b := Point{Lat: 0, Lng: 180}

	d := Distance(a, b)
	// Half the Earth's circumference at the equator.
	assert.InDelta(t, 20015086, d, 10000)
}

func TestDistance_ShortRange(t *testing.T) {
	// Two points ~100m apart in central Jakarta.
	a := Point{Lat: -6.20880, Lng: 106.84560}
	b := Point{Lat: -6.20970, Lng: 106.84560}

	d := Distance(a, b)
	assert.InDelta(t, 100, d, 5)
}
