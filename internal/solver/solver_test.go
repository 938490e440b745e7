package solver

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineMatrices builds dist/travel tables for locations at the given
// kilometer marks along a straight road. Travel is 2 min per km.
func lineMatrices(kmMarks []int) (dist, travel [][]int) {
	n := len(kmMarks)
	dist = make([][]int, n)
	travel = make([][]int, n)
	for i := range dist {
		dist[i] = make([]int, n)
		travel[i] = make([]int, n)
		for j := range dist[i] {
			if i == j {
				continue
			}
			d := kmMarks[i] - kmMarks[j]
			if d < 0 {
				d = -d
			}
			dist[i][j] = d * 1000
			t := d * 2
			if t < 1 {
				t = 1
			}
			travel[i][j] = t
		}
	}
	return dist, travel
}

func testSolver() *Solver {
	return New(100*time.Millisecond, 300*time.Millisecond)
}

func TestSolveSingleVehicle(t *testing.T) {
	// Depot at km 0, stops at km 10, 20, 30.
	dist, travel := lineMatrices([]int{0, 10, 20, 30})
	p := &Problem{
		Dist:   dist,
		Travel: travel,
		Stops: []Stop{
			{ID: "a", Loc: 1, ServiceMin: 10},
			{ID: "b", Loc: 2, ServiceMin: 10},
			{ID: "c", Loc: 3, ServiceMin: 10},
		},
		Vehicles: []Vehicle{{ID: "v1", StartLoc: 0, EndLoc: 0, CapacityStops: 10}},
	}

	sol, err := testSolver().Solve(context.Background(), p, EffortQuick)
	require.NoError(t, err)

	require.Len(t, sol.Routes, 1)
	assert.Len(t, sol.Routes[0].Stops, 3)
	// Out-and-back along the line is 60 km.
	assert.Equal(t, 60000, sol.TotalDistanceMeters())
	// 120 min driving plus 30 min service.
	assert.Equal(t, 150, sol.Routes[0].DurationMin)
}

func TestSolveRespectsCapacity(t *testing.T) {
	dist, travel := lineMatrices([]int{0, 5, 10, 15, 20})
	p := &Problem{
		Dist:   dist,
		Travel: travel,
		Stops: []Stop{
			{ID: "a", Loc: 1, ServiceMin: 5},
			{ID: "b", Loc: 2, ServiceMin: 5},
			{ID: "c", Loc: 3, ServiceMin: 5},
			{ID: "d", Loc: 4, ServiceMin: 5},
		},
		Vehicles: []Vehicle{
			{ID: "v1", StartLoc: 0, EndLoc: 0, CapacityStops: 2},
			{ID: "v2", StartLoc: 0, EndLoc: 0, CapacityStops: 2},
		},
	}

	sol, err := testSolver().Solve(context.Background(), p, EffortQuick)
	require.NoError(t, err)

	assigned := 0
	for _, r := range sol.Routes {
		assert.LessOrEqual(t, len(r.Stops), 2)
		assigned += len(r.Stops)
	}
	assert.Equal(t, 4, assigned, "every stop assigned exactly once")
}

func TestSolveInfeasibleCapacity(t *testing.T) {
	dist, travel := lineMatrices([]int{0, 5, 10})
	p := &Problem{
		Dist:   dist,
		Travel: travel,
		Stops: []Stop{
			{ID: "a", Loc: 1, ServiceMin: 5},
			{ID: "b", Loc: 2, ServiceMin: 5},
		},
		Vehicles: []Vehicle{{ID: "v1", StartLoc: 0, EndLoc: 0, CapacityStops: 1}},
	}

	_, err := testSolver().Solve(context.Background(), p, EffortQuick)
	var infeasible *InfeasibleError
	require.ErrorAs(t, err, &infeasible)
}

func TestSolveInfeasibleDuration(t *testing.T) {
	dist, travel := lineMatrices([]int{0, 5})
	p := &Problem{
		Dist:   dist,
		Travel: travel,
		// Service alone exceeds the duration cap.
		Stops:    []Stop{{ID: "a", Loc: 1, ServiceMin: 500}},
		Vehicles: []Vehicle{{ID: "v1", StartLoc: 0, EndLoc: 0, CapacityStops: 10}},
	}

	_, err := testSolver().Solve(context.Background(), p, EffortQuick)
	var infeasible *InfeasibleError
	require.ErrorAs(t, err, &infeasible)
	assert.Equal(t, "a", infeasible.StopID)
}

func TestSolveDistinctStartEnd(t *testing.T) {
	// Start depot at km 0, end depot at km 30, stops between.
	dist, travel := lineMatrices([]int{0, 10, 20, 30})
	p := &Problem{
		Dist:   dist,
		Travel: travel,
		Stops: []Stop{
			{ID: "a", Loc: 1, ServiceMin: 10},
			{ID: "b", Loc: 2, ServiceMin: 10},
		},
		Vehicles: []Vehicle{{ID: "v1", StartLoc: 0, EndLoc: 3, CapacityStops: 10}},
	}

	sol, err := testSolver().Solve(context.Background(), p, EffortQuick)
	require.NoError(t, err)
	// Straight pass through the line, no backtracking.
	assert.Equal(t, 30000, sol.TotalDistanceMeters())
	assert.Equal(t, []int{0, 1}, sol.Routes[0].Stops)
}

func TestSolveDeterministic(t *testing.T) {
	dist, travel := lineMatrices([]int{0, 7, 3, 12, 9, 18, 25, 1})
	p := &Problem{
		Dist:   dist,
		Travel: travel,
		Stops: []Stop{
			{ID: "a", Loc: 1, ServiceMin: 10},
			{ID: "b", Loc: 2, ServiceMin: 15},
			{ID: "c", Loc: 3, ServiceMin: 10},
			{ID: "d", Loc: 4, ServiceMin: 20},
			{ID: "e", Loc: 5, ServiceMin: 10},
			{ID: "f", Loc: 6, ServiceMin: 10},
			{ID: "g", Loc: 7, ServiceMin: 5},
		},
		Vehicles: []Vehicle{
			{ID: "v1", StartLoc: 0, EndLoc: 0, CapacityStops: 5},
			{ID: "v2", StartLoc: 0, EndLoc: 0, CapacityStops: 5},
		},
		SpanCostCoefficient: 5000,
	}

	s := testSolver()
	sol1, err := s.Solve(context.Background(), p, EffortQuick)
	require.NoError(t, err)
	sol2, err := s.Solve(context.Background(), p, EffortQuick)
	require.NoError(t, err)
	assert.Equal(t, sol1, sol2)
}

func TestSolveThoroughNotWorse(t *testing.T) {
	dist, travel := lineMatrices([]int{0, 14, 3, 22, 9, 31, 17, 6, 27, 11})
	stops := make([]Stop, 9)
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"}
	for i := range stops {
		stops[i] = Stop{ID: ids[i], Loc: i + 1, ServiceMin: 10}
	}
	p := &Problem{
		Dist:   dist,
		Travel: travel,
		Stops:  stops,
		Vehicles: []Vehicle{
			{ID: "v1", StartLoc: 0, EndLoc: 0, CapacityStops: 6},
			{ID: "v2", StartLoc: 0, EndLoc: 0, CapacityStops: 6},
		},
		SpanCostCoefficient: 4000,
	}

	s := testSolver()
	quick, err := s.Solve(context.Background(), p, EffortQuick)
	require.NoError(t, err)
	thorough, err := s.Solve(context.Background(), p, EffortThorough)
	require.NoError(t, err)

	assert.LessOrEqual(t, thorough.Cost(p), quick.Cost(p))
}

func TestSolveEmptyStops(t *testing.T) {
	dist, travel := lineMatrices([]int{0})
	p := &Problem{
		Dist:     dist,
		Travel:   travel,
		Vehicles: []Vehicle{{ID: "v1", StartLoc: 0, EndLoc: 0, CapacityStops: 5}},
	}

	sol, err := testSolver().Solve(context.Background(), p, EffortQuick)
	require.NoError(t, err)
	assert.Empty(t, sol.Routes[0].Stops)
	assert.Equal(t, 0, sol.TotalDistanceMeters())
}

func TestSolveCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dist, travel := lineMatrices([]int{0, 5})
	p := &Problem{
		Dist:     dist,
		Travel:   travel,
		Stops:    []Stop{{ID: "a", Loc: 1, ServiceMin: 5}},
		Vehicles: []Vehicle{{ID: "v1", StartLoc: 0, EndLoc: 0, CapacityStops: 5}},
	}

	_, err := testSolver().Solve(ctx, p, EffortQuick)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestApplyRestoresRoutesOnInfeasibleChange(t *testing.T) {
	dist, travel := lineMatrices([]int{0, 5, 10, 15, 20})
	p := &Problem{
		Dist:   dist,
		Travel: travel,
		Stops: []Stop{
			{ID: "a", Loc: 1, ServiceMin: 5},
			{ID: "b", Loc: 2, ServiceMin: 5},
			{ID: "c", Loc: 3, ServiceMin: 5},
			{ID: "d", Loc: 4, ServiceMin: 5},
		},
		Vehicles: []Vehicle{
			{ID: "v1", StartLoc: 0, EndLoc: 0, CapacityStops: 2},
			{ID: "v2", StartLoc: 0, EndLoc: 0, CapacityStops: 2},
		},
	}
	sol := &Solution{Routes: []Route{
		{Vehicle: 0, Stops: []int{0, 1}},
		{Vehicle: 1, Stops: []int{2, 3}},
	}}
	st := &searchState{p: p, stop: func() bool { return false }}

	// The shrunk first route is feasible, the grown second one exceeds
	// capacity. Whichever order the map iterates, no stop may vanish.
	// Repeats cover both iteration orders.
	for i := 0; i < 16; i++ {
		ok := st.apply(sol, map[int][]int{0: {0}, 1: {2, 3, 1}})
		require.False(t, ok)
		require.Equal(t, []int{0, 1}, sol.Routes[0].Stops)
		require.Equal(t, []int{2, 3}, sol.Routes[1].Stops)
	}
}

func TestEvalRouteScalesServiceByEfficiency(t *testing.T) {
	dist, travel := lineMatrices([]int{0, 10})
	p := &Problem{
		Dist:     dist,
		Travel:   travel,
		Stops:    []Stop{{ID: "a", Loc: 1, ServiceMin: 20}},
		Vehicles: []Vehicle{{StartLoc: 0, EndLoc: 0, CapacityStops: 5, Efficiency: 1.5}},
	}
	ev := p.evalRoute(p.Vehicles[0], []int{0})
	require.True(t, ev.feasible)
	// 40 min driving plus 20 min of service done in 13 on this vehicle's
	// clock.
	assert.Equal(t, 53, ev.durMin)
}

func TestEvalRouteSlackPerStop(t *testing.T) {
	dist, travel := lineMatrices([]int{0, 10, 20})
	w1, w2 := 60, 120
	p := &Problem{
		Dist:   dist,
		Travel: travel,
		Stops: []Stop{
			{ID: "a", Loc: 1, ServiceMin: 10, WindowStart: &w1},
			{ID: "b", Loc: 2, ServiceMin: 10, WindowStart: &w2},
		},
		Vehicles: []Vehicle{{StartLoc: 0, EndLoc: 0, CapacityStops: 5}},
	}

	// Waits of 40 and 30 minutes: each under the per-stop slack cap even
	// though they sum past it.
	ev := p.evalRoute(p.Vehicles[0], []int{0, 1})
	require.True(t, ev.feasible)
	assert.Equal(t, 170, ev.durMin)
}

func TestEvalRouteWindows(t *testing.T) {
	dist, travel := lineMatrices([]int{0, 10})
	early := 40
	p := &Problem{Dist: dist, Travel: travel, Vehicles: []Vehicle{{StartLoc: 0, EndLoc: 0, CapacityStops: 5}}}

	// Arrival at minute 20; window opens at 40 so the vehicle waits 20 min.
	p.Stops = []Stop{{ID: "a", Loc: 1, ServiceMin: 10, WindowStart: &early}}
	ev := p.evalRoute(p.Vehicles[0], []int{0})
	require.True(t, ev.feasible)
	assert.Equal(t, 70, ev.durMin)

	// Window already closed on arrival.
	tooEarly := 5
	p.Stops = []Stop{{ID: "a", Loc: 1, ServiceMin: 10, WindowEnd: &tooEarly}}
	ev = p.evalRoute(p.Vehicles[0], []int{0})
	assert.False(t, ev.feasible)

	// Waiting beyond the slack budget is infeasible.
	farOut := 200
	p.Stops = []Stop{{ID: "a", Loc: 1, ServiceMin: 10, WindowStart: &farOut}}
	ev = p.evalRoute(p.Vehicles[0], []int{0})
	assert.False(t, ev.feasible)
}

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := NewPool(2)

	var active, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.Do(context.Background(), func() error {
				cur := active.Add(1)
				for {
					p := peak.Load()
					if cur <= p || peak.CompareAndSwap(p, cur) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				active.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestPoolCanceledWhileWaiting(t *testing.T) {
	pool := NewPool(1)
	release := make(chan struct{})
	go pool.Do(context.Background(), func() error {
		<-release
		return nil
	})
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := pool.Do(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}
