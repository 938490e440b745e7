package solver

import (
	"context"
	"time"
)

// Effort selects how much search a solve spends.
type Effort string

const (
	// EffortQuick does a single local-search descent. Used by incremental
	// re-optimization where latency matters.
	EffortQuick Effort = "quick"
	// EffortThorough adds guided local search on top. Used by full rebuilds.
	EffortThorough Effort = "thorough"
)

// Solver runs routing solves under per-effort wall-clock budgets. Solves are
// deterministic: the same problem and effort always yields the same result.
type Solver struct {
	QuickLimit    time.Duration
	ThoroughLimit time.Duration
}

// New creates a solver with the given budgets. Zero values get defaults of
// 30s quick and 120s thorough.
func New(quickLimit, thoroughLimit time.Duration) *Solver {
	if quickLimit <= 0 {
		quickLimit = 30 * time.Second
	}
	if thoroughLimit <= 0 {
		thoroughLimit = 120 * time.Second
	}
	return &Solver{QuickLimit: quickLimit, ThoroughLimit: thoroughLimit}
}

// Solve builds routes for every stop in p. An instance with no feasible
// assignment returns an *InfeasibleError; callers report the reason rather
// than treating it as an internal failure. A solve interrupted by the
// deadline still returns the best solution found so far.
func (s *Solver) Solve(ctx context.Context, p *Problem, effort Effort) (*Solution, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	limit := s.QuickLimit
	if effort == EffortThorough {
		limit = s.ThoroughLimit
	}
	deadline := time.Now().Add(limit)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	stop := func() bool {
		return ctx.Err() != nil || time.Now().After(deadline)
	}

	sol, err := construct(p)
	if err != nil {
		return nil, err
	}
	if len(p.Stops) == 0 {
		return sol, nil
	}

	localSearch(sol, &searchState{p: p, stop: stop})
	if effort == EffortThorough {
		sol = guidedSearch(p, sol, stop)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return sol, nil
}
