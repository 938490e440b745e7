package solver

// searchState carries the pieces shared by the improvement operators: the
// problem, an optional arc-penalty table for guided search, and the lambda
// weight applied to penalties in the augmented objective.
type searchState struct {
	p      *Problem
	pen    [][]int // nil outside guided search
	lambda int
	stop   func() bool
}

// augCost is the search objective: true cost plus lambda-weighted penalties
// of every arc the solution uses.
func (st *searchState) augCost(sol *Solution) int {
	c := sol.Cost(st.p)
	if st.pen == nil || st.lambda == 0 {
		return c
	}
	for _, r := range sol.Routes {
		c += st.lambda * st.routePenalty(r.Vehicle, r.Stops)
	}
	return c
}

// routePenalty sums arc penalties along a route including depot arcs.
func (st *searchState) routePenalty(vi int, stops []int) int {
	if st.pen == nil || len(stops) == 0 {
		return 0
	}
	v := st.p.Vehicles[vi]
	total := 0
	loc := v.StartLoc
	for _, si := range stops {
		next := st.p.Stops[si].Loc
		total += st.pen[loc][next]
		loc = next
	}
	total += st.pen[loc][v.EndLoc]
	return total
}

// apply installs new stop orders for the given routes if every changed route
// stays feasible and the augmented objective improves. Returns true when the
// move was taken.
func (st *searchState) apply(sol *Solution, changes map[int][]int) bool {
	before := st.augCost(sol)

	saved := make(map[int]Route, len(changes))
	restore := func() {
		for vi, r := range saved {
			sol.Routes[vi] = r
		}
	}
	for vi, stops := range changes {
		ev := st.p.evalRoute(st.p.Vehicles[vi], stops)
		if !ev.feasible {
			restore()
			return false
		}
		saved[vi] = sol.Routes[vi]
		sol.Routes[vi] = Route{Vehicle: vi, Stops: stops, DistanceMeters: ev.distM, DurationMin: ev.durMin}
	}

	if st.augCost(sol) < before {
		return true
	}
	restore()
	return false
}

// localSearch improves sol in place until no operator finds an improving
// move or st.stop() fires.
func localSearch(sol *Solution, st *searchState) {
	for {
		if st.stop() {
			return
		}
		improved := st.twoOpt(sol) || st.orOpt(sol) || st.relocate(sol) || st.swap(sol)
		if !improved {
			return
		}
	}
}

// twoOpt reverses segments within a single route.
func (st *searchState) twoOpt(sol *Solution) bool {
	for vi := range sol.Routes {
		stops := sol.Routes[vi].Stops
		for i := 0; i < len(stops)-1; i++ {
			for j := i + 1; j < len(stops); j++ {
				cand := make([]int, len(stops))
				copy(cand, stops)
				for l, r := i, j; l < r; l, r = l+1, r-1 {
					cand[l], cand[r] = cand[r], cand[l]
				}
				if st.apply(sol, map[int][]int{vi: cand}) {
					return true
				}
			}
		}
		if st.stop() {
			return false
		}
	}
	return false
}

// orOpt moves short segments (length 1 to 3) to another position within the
// same route.
func (st *searchState) orOpt(sol *Solution) bool {
	for vi := range sol.Routes {
		stops := sol.Routes[vi].Stops
		for segLen := 1; segLen <= 3 && segLen < len(stops); segLen++ {
			for i := 0; i+segLen <= len(stops); i++ {
				rest := make([]int, 0, len(stops)-segLen)
				rest = append(rest, stops[:i]...)
				rest = append(rest, stops[i+segLen:]...)
				seg := stops[i : i+segLen]
				for pos := 0; pos <= len(rest); pos++ {
					if pos == i {
						continue
					}
					cand := make([]int, 0, len(stops))
					cand = append(cand, rest[:pos]...)
					cand = append(cand, seg...)
					cand = append(cand, rest[pos:]...)
					if st.apply(sol, map[int][]int{vi: cand}) {
						return true
					}
				}
			}
		}
		if st.stop() {
			return false
		}
	}
	return false
}

// relocate moves one stop from its route to any position in another route.
func (st *searchState) relocate(sol *Solution) bool {
	for from := range sol.Routes {
		fromStops := sol.Routes[from].Stops
		for i := range fromStops {
			shrunk := make([]int, 0, len(fromStops)-1)
			shrunk = append(shrunk, fromStops[:i]...)
			shrunk = append(shrunk, fromStops[i+1:]...)
			for to := range sol.Routes {
				if to == from {
					continue
				}
				toStops := sol.Routes[to].Stops
				for pos := 0; pos <= len(toStops); pos++ {
					cand := insertAt(toStops, fromStops[i], pos)
					if st.apply(sol, map[int][]int{from: shrunk, to: cand}) {
						return true
					}
				}
			}
		}
		if st.stop() {
			return false
		}
	}
	return false
}

// swap exchanges one stop between two routes.
func (st *searchState) swap(sol *Solution) bool {
	for a := range sol.Routes {
		for b := a + 1; b < len(sol.Routes); b++ {
			aStops, bStops := sol.Routes[a].Stops, sol.Routes[b].Stops
			for i := range aStops {
				for j := range bStops {
					ca := make([]int, len(aStops))
					copy(ca, aStops)
					cb := make([]int, len(bStops))
					copy(cb, bStops)
					ca[i], cb[j] = bStops[j], aStops[i]
					if st.apply(sol, map[int][]int{a: ca, b: cb}) {
						return true
					}
				}
			}
		}
		if st.stop() {
			return false
		}
	}
	return false
}
