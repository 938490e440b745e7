package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineMeters(t *testing.T) {
	sf := Point{Lat: 37.7749, Lng: -122.4194}
	la := Point{Lat: 34.0522, Lng: -118.2437}

	d := HaversineMeters(sf, la)
	// Known distance SF-LA is roughly 559 km.
	assert.InDelta(t, 559000, d, 5000)

	assert.Equal(t, 0, HaversineMeters(sf, sf))
	assert.Equal(t, HaversineMeters(sf, la), HaversineMeters(la, sf), "symmetric")
}

func TestMetersToMiles(t *testing.T) {
	assert.InDelta(t, 1.0, MetersToMiles(1609), 0.001)
	assert.Equal(t, 12.35, RoundMiles(12.3456))
}

func TestFingerprintPoints(t *testing.T) {
	a := []Point{{37.01, -121.01}, {37.02, -121.02}}
	b := []Point{{37.01, -121.01}, {37.02, -121.02}}
	c := []Point{{37.02, -121.02}, {37.01, -121.01}}

	assert.Equal(t, FingerprintPoints(a), FingerprintPoints(b))
	assert.NotEqual(t, FingerprintPoints(a), FingerprintPoints(c), "order matters")

	// Sub-precision jitter collapses to the same fingerprint.
	jittered := []Point{{37.0100000004, -121.01}, {37.02, -121.0199999996}}
	assert.Equal(t, FingerprintPoints(a), FingerprintPoints(jittered))
}
