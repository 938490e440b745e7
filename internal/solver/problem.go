// Package solver implements the vehicle-routing core: cheapest-insertion
// construction, local-search improvement, and guided local search for the
// thorough mode. Arc costs are distance meters; route duration and stop
// capacity act as hard constraints.
package solver

import (
	"fmt"
	"math"
)

// Default constraint values applied when the corresponding Problem field is
// zero.
const (
	DefaultMaxRouteMin    = 480
	DefaultSlackMin       = 60
	DefaultMaxRouteMeters = 200000
)

// Stop is one visit to schedule. Loc indexes the problem matrices.
type Stop struct {
	ID         string
	Loc        int
	ServiceMin int
	// Optional arrival window in minutes from route start. Nil means
	// unconstrained. Arriving early waits; arriving after WindowEnd is
	// infeasible.
	WindowStart *int
	WindowEnd   *int
}

// Vehicle is one route to build. StartLoc/EndLoc index the problem matrices
// and may differ.
type Vehicle struct {
	ID            string
	StartLoc      int
	EndLoc        int
	CapacityStops int
	// Efficiency divides stop service times on this vehicle's clock: a 1.5
	// vehicle works through a 30-minute visit in 20. Zero means 1.0.
	Efficiency float64
}

// serviceMin is the vehicle-local service time for a stop: the base minutes
// divided by efficiency, rounded to the nearest minute.
func (v Vehicle) serviceMin(base int) int {
	if v.Efficiency <= 0 || v.Efficiency == 1 {
		return base
	}
	return int(math.Round(float64(base) / v.Efficiency))
}

// Problem is a complete routing instance. Dist and Travel are full matrices
// over every location referenced by stops and vehicles.
type Problem struct {
	Dist   [][]int // meters
	Travel [][]int // minutes

	Stops    []Stop
	Vehicles []Vehicle

	// MaxRouteMin caps each route's duration including service and waiting.
	MaxRouteMin int
	// SlackMin caps waiting time at each stop.
	SlackMin int
	// MaxRouteMeters caps each route's driven distance.
	MaxRouteMeters int
	// SpanCostCoefficient weights the longest route's duration in the
	// objective, trading distance for workload balance.
	SpanCostCoefficient int
}

// Validate checks matrix shape and index bounds.
func (p *Problem) Validate() error {
	n := len(p.Dist)
	if len(p.Travel) != n {
		return fmt.Errorf("solver: matrix size mismatch: %d dist rows, %d travel rows", n, len(p.Travel))
	}
	for i := 0; i < n; i++ {
		if len(p.Dist[i]) != n || len(p.Travel[i]) != n {
			return fmt.Errorf("solver: matrix row %d is not square", i)
		}
	}
	if len(p.Vehicles) == 0 {
		return fmt.Errorf("solver: no vehicles")
	}
	for _, v := range p.Vehicles {
		if v.StartLoc < 0 || v.StartLoc >= n || v.EndLoc < 0 || v.EndLoc >= n {
			return fmt.Errorf("solver: vehicle %s references location out of range", v.ID)
		}
		if v.CapacityStops < 0 {
			return fmt.Errorf("solver: vehicle %s has negative capacity", v.ID)
		}
		if v.Efficiency < 0 {
			return fmt.Errorf("solver: vehicle %s has negative efficiency", v.ID)
		}
	}
	for _, s := range p.Stops {
		if s.Loc < 0 || s.Loc >= n {
			return fmt.Errorf("solver: stop %s references location out of range", s.ID)
		}
	}
	return nil
}

func (p *Problem) maxRouteMin() int {
	if p.MaxRouteMin > 0 {
		return p.MaxRouteMin
	}
	return DefaultMaxRouteMin
}

func (p *Problem) slackMin() int {
	if p.SlackMin > 0 {
		return p.SlackMin
	}
	return DefaultSlackMin
}

func (p *Problem) maxRouteMeters() int {
	if p.MaxRouteMeters > 0 {
		return p.MaxRouteMeters
	}
	return DefaultMaxRouteMeters
}

// Route is one vehicle's ordered stop-index list in a solution.
type Route struct {
	Vehicle        int
	Stops          []int // indices into Problem.Stops
	DistanceMeters int
	DurationMin    int
}

// Solution is a feasible assignment of every stop to a route. Routes are
// indexed parallel to Problem.Vehicles; unused vehicles get empty routes.
type Solution struct {
	Routes []Route
}

// TotalDistanceMeters sums driven distance across routes.
func (s *Solution) TotalDistanceMeters() int {
	total := 0
	for _, r := range s.Routes {
		total += r.DistanceMeters
	}
	return total
}

// MaxDurationMin returns the longest route duration.
func (s *Solution) MaxDurationMin() int {
	max := 0
	for _, r := range s.Routes {
		if r.DurationMin > max {
			max = r.DurationMin
		}
	}
	return max
}

// Cost is the optimization objective: total distance plus the span
// coefficient times the longest route duration.
func (s *Solution) Cost(p *Problem) int {
	return s.TotalDistanceMeters() + p.SpanCostCoefficient*s.MaxDurationMin()
}

// routeEval is the result of simulating a route front to back.
type routeEval struct {
	feasible bool
	distM    int
	durMin   int
}

// evalRoute simulates vehicle v visiting stops in order, checking capacity,
// duration, distance, per-stop waiting slack, and stop windows.
func (p *Problem) evalRoute(v Vehicle, stops []int) routeEval {
	if len(stops) > v.CapacityStops {
		return routeEval{}
	}

	t := 0
	dist := 0
	loc := v.StartLoc
	for _, si := range stops {
		s := p.Stops[si]
		t += p.Travel[loc][s.Loc]
		dist += p.Dist[loc][s.Loc]
		if s.WindowStart != nil && t < *s.WindowStart {
			if *s.WindowStart-t > p.slackMin() {
				return routeEval{}
			}
			t = *s.WindowStart
		}
		if s.WindowEnd != nil && t > *s.WindowEnd {
			return routeEval{}
		}
		t += v.serviceMin(s.ServiceMin)
		loc = s.Loc
	}
	t += p.Travel[loc][v.EndLoc]
	dist += p.Dist[loc][v.EndLoc]

	if len(stops) == 0 {
		return routeEval{feasible: true}
	}
	if t > p.maxRouteMin() || dist > p.maxRouteMeters() {
		return routeEval{}
	}
	return routeEval{feasible: true, distM: dist, durMin: t}
}
