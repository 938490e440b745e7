package solver

import "fmt"

// InfeasibleError reports that no feasible assignment exists for at least
// one stop. Callers surface the reason instead of failing the request.
type InfeasibleError struct {
	StopID string
	Reason string
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("solver: no feasible route for stop %s: %s", e.StopID, e.Reason)
}

// construct builds a first solution by repeated cheapest feasible insertion:
// on each pass the globally cheapest (stop, vehicle, position) insertion by
// distance increase is applied, until every stop is routed or some stop has
// no feasible slot.
func construct(p *Problem) (*Solution, error) {
	sol := &Solution{Routes: make([]Route, len(p.Vehicles))}
	for i := range sol.Routes {
		sol.Routes[i].Vehicle = i
	}

	unassigned := make([]int, len(p.Stops))
	for i := range unassigned {
		unassigned[i] = i
	}

	for len(unassigned) > 0 {
		bestStop := -1
		bestVehicle := -1
		bestPos := -1
		bestDelta := 0
		var bestEval routeEval

		for ui, si := range unassigned {
			for vi := range p.Vehicles {
				r := &sol.Routes[vi]
				base := r.DistanceMeters
				for pos := 0; pos <= len(r.Stops); pos++ {
					cand := insertAt(r.Stops, si, pos)
					ev := p.evalRoute(p.Vehicles[vi], cand)
					if !ev.feasible {
						continue
					}
					delta := ev.distM - base
					if bestStop == -1 || delta < bestDelta {
						bestStop, bestVehicle, bestPos = ui, vi, pos
						bestDelta = delta
						bestEval = ev
					}
				}
			}
		}

		if bestStop == -1 {
			return nil, &InfeasibleError{
				StopID: p.Stops[unassigned[0]].ID,
				Reason: "no vehicle can absorb the remaining stops within capacity and duration limits",
			}
		}

		r := &sol.Routes[bestVehicle]
		r.Stops = insertAt(r.Stops, unassigned[bestStop], bestPos)
		r.DistanceMeters = bestEval.distM
		r.DurationMin = bestEval.durMin
		unassigned = append(unassigned[:bestStop], unassigned[bestStop+1:]...)
	}

	return sol, nil
}

// insertAt returns a new slice with v inserted at pos.
func insertAt(s []int, v, pos int) []int {
	out := make([]int, 0, len(s)+1)
	out = append(out, s[:pos]...)
	out = append(out, v)
	out = append(out, s[pos:]...)
	return out
}
