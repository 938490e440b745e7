package matrix

import (
	"context"

	"github.com/routewise/routewise/internal/geo"
)

// HaversineBackend estimates matrices from great-circle distances and a
// fixed average speed. It never fails and serves as the fallback when the
// road-network backend is unreachable.
type HaversineBackend struct {
	SpeedMPH float64
}

// NewHaversineBackend creates a backend assuming the given average speed.
func NewHaversineBackend(speedMPH float64) *HaversineBackend {
	if speedMPH <= 0 {
		speedMPH = 30
	}
	return &HaversineBackend{SpeedMPH: speedMPH}
}

// Table computes a symmetric matrix with zero diagonals. Travel time is
// distance at SpeedMPH, floored to whole minutes, minimum 1 for distinct
// points.
func (b *HaversineBackend) Table(_ context.Context, points []geo.Point) (*Matrix, error) {
	n := len(points)
	dist, travel := newEmptyTables(n)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			m := geo.HaversineMeters(points[i], points[j])
			t := travelMinutes(m, b.SpeedMPH)
			dist[i][j], dist[j][i] = m, m
			travel[i][j], travel[j][i] = t, t
		}
	}

	return &Matrix{DistanceMeters: dist, TravelMin: travel, Source: SourceFallback}, nil
}

// travelMinutes converts a distance at the given speed to whole minutes,
// minimum 1 for any nonzero distance.
func travelMinutes(meters int, speedMPH float64) int {
	if meters == 0 {
		return 0
	}
	min := int(geo.MetersToMiles(meters) / speedMPH * 60)
	if min < 1 {
		min = 1
	}
	return min
}
