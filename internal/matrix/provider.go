// Package matrix computes travel distance/time matrices for ordered point
// lists, with a road-network backend, a great-circle fallback, and a
// fingerprint-keyed cache in front.
package matrix

import (
	"context"

	"github.com/routewise/routewise/internal/geo"
)

// Source identifies which backend produced a matrix.
type Source string

const (
	SourceOSRM Source = "osrm"
	// SourceFallback marks matrices estimated from great-circle distance,
	// not real driving data.
	SourceFallback Source = "fallback"
)

// Matrix holds pairwise travel metrics for an ordered point list. Both
// tables are n x n with zero diagonals.
type Matrix struct {
	// DistanceMeters[i][j] is the travel distance from point i to point j.
	DistanceMeters [][]int
	// TravelMin[i][j] is the travel time in whole minutes, at least 1 for
	// any i != j.
	TravelMin [][]int
	// Source records which backend produced the tables.
	Source Source
}

// Size returns the number of points the matrix covers.
func (m *Matrix) Size() int {
	return len(m.DistanceMeters)
}

// TotalDistanceMeters sums the distances along an index path.
func (m *Matrix) TotalDistanceMeters(path []int) int {
	total := 0
	for i := 1; i < len(path); i++ {
		total += m.DistanceMeters[path[i-1]][path[i]]
	}
	return total
}

// TotalTravelMin sums the travel minutes along an index path.
func (m *Matrix) TotalTravelMin(path []int) int {
	total := 0
	for i := 1; i < len(path); i++ {
		total += m.TravelMin[path[i-1]][path[i]]
	}
	return total
}

// Provider produces a matrix for an ordered point list. Implementations
// must return tables whose indices match the input order.
type Provider interface {
	Table(ctx context.Context, points []geo.Point) (*Matrix, error)
}

func newEmptyTables(n int) (dist, travel [][]int) {
	dist = make([][]int, n)
	travel = make([][]int, n)
	for i := range dist {
		dist[i] = make([]int, n)
		travel[i] = make([]int, n)
	}
	return dist, travel
}
