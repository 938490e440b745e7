package solver

// guidedSearch runs guided local search on top of plain local search: after
// each descent to a local optimum, the arcs with the highest utility
// (distance over accumulated penalty) get penalized, steering the next
// descent away from expensive arcs. The best solution by TRUE cost across
// all descents is returned.
func guidedSearch(p *Problem, sol *Solution, stop func() bool) *Solution {
	n := len(p.Dist)
	pen := make([][]int, n)
	for i := range pen {
		pen[i] = make([]int, n)
	}

	// Lambda scales penalties to the instance: a fraction of the mean used
	// arc cost of the starting solution.
	lambda := meanArcCost(p, sol) / 10
	if lambda < 1 {
		lambda = 1
	}

	best := sol.clone()
	bestCost := best.Cost(p)

	st := &searchState{p: p, pen: pen, lambda: lambda, stop: stop}
	cur := sol.clone()
	for !stop() {
		localSearch(cur, st)
		if c := cur.Cost(p); c < bestCost {
			best = cur.clone()
			bestCost = c
		}
		penalizeWorstArcs(p, cur, pen)
	}
	return best
}

// penalizeWorstArcs increments the penalty of every used arc whose utility
// dist/(1+penalty) is maximal.
func penalizeWorstArcs(p *Problem, sol *Solution, pen [][]int) {
	maxUtil := -1.0
	type arc struct{ a, b int }
	var worst []arc

	visit := func(a, b int) {
		util := float64(p.Dist[a][b]) / float64(1+pen[a][b])
		if util > maxUtil {
			maxUtil = util
			worst = worst[:0]
		}
		if util == maxUtil {
			worst = append(worst, arc{a, b})
		}
	}

	for _, r := range sol.Routes {
		if len(r.Stops) == 0 {
			continue
		}
		v := p.Vehicles[r.Vehicle]
		loc := v.StartLoc
		for _, si := range r.Stops {
			next := p.Stops[si].Loc
			visit(loc, next)
			loc = next
		}
		visit(loc, v.EndLoc)
	}

	for _, a := range worst {
		pen[a.a][a.b]++
	}
}

// meanArcCost averages the distance of arcs the solution uses.
func meanArcCost(p *Problem, sol *Solution) int {
	total, count := 0, 0
	for _, r := range sol.Routes {
		if len(r.Stops) == 0 {
			continue
		}
		v := p.Vehicles[r.Vehicle]
		loc := v.StartLoc
		for _, si := range r.Stops {
			next := p.Stops[si].Loc
			total += p.Dist[loc][next]
			count++
			loc = next
		}
		total += p.Dist[loc][v.EndLoc]
		count++
	}
	if count == 0 {
		return 0
	}
	return total / count
}

func (s *Solution) clone() *Solution {
	out := &Solution{Routes: make([]Route, len(s.Routes))}
	for i, r := range s.Routes {
		stops := make([]int, len(r.Stops))
		copy(stops, r.Stops)
		out.Routes[i] = Route{Vehicle: r.Vehicle, Stops: stops, DistanceMeters: r.DistanceMeters, DurationMin: r.DurationMin}
	}
	return out
}
