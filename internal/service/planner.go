package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/routewise/routewise/internal/geo"
	"github.com/routewise/routewise/internal/matrix"
	"github.com/routewise/routewise/internal/model"
	"github.com/routewise/routewise/internal/solver"
)

// Speed selects the solve budget and metaheuristic.
type Speed string

const (
	SpeedQuick    Speed = "quick"
	SpeedThorough Speed = "thorough"
)

// Span cost coefficients weight workday balance against raw distance.
const (
	spanCostQuick    = 5000
	spanCostThorough = 4000
)

func (s Speed) effort() solver.Effort {
	if s == SpeedThorough {
		return solver.EffortThorough
	}
	return solver.EffortQuick
}

func (s Speed) spanCost() int {
	if s == SpeedThorough {
		return spanCostThorough
	}
	return spanCostQuick
}

// StopResult is one resolved stop on an optimized route.
type StopResult struct {
	CustomerID         string  `json:"customer_id"`
	Name               string  `json:"name"`
	Address            string  `json:"address"`
	Lat                float64 `json:"lat"`
	Lng                float64 `json:"lng"`
	Sequence           int     `json:"sequence"`
	ServiceDurationMin int     `json:"service_duration_min"`
}

// RouteResult is one vehicle-day route in an optimize response.
type RouteResult struct {
	TechID             string       `json:"tech_id"`
	TechName           string       `json:"tech_name"`
	TechColor          string       `json:"tech_color"`
	ServiceDay         model.Weekday `json:"service_day"`
	StartLocation      geo.Point    `json:"start_location"`
	EndLocation        geo.Point    `json:"end_location"`
	Stops              []StopResult `json:"stops"`
	TotalCustomers     int          `json:"total_customers"`
	TotalDistanceMiles float64      `json:"total_distance_miles"`
	TotalDurationMin   int          `json:"total_duration_minutes"`
}

// SkippedCustomer names a customer excluded from a solve and why.
type SkippedCustomer struct {
	CustomerID string `json:"customer_id"`
	Reason     string `json:"reason"`
}

// FailedDay records a day whose solve failed inside a multi-day run.
type FailedDay struct {
	Day    model.Weekday `json:"day"`
	Reason string        `json:"reason"`
}

// daySolve is the outcome of solving one day.
type daySolve struct {
	routes  []RouteResult
	source  matrix.Source
	skipped []SkippedCustomer
	message string
}

// solveDay routes the given customers among the given techs for one day.
// Customers without coordinates are dropped into the skipped list before the
// matrix is built. An infeasible instance yields empty routes plus a message,
// not an error.
func (c *Core) solveDay(ctx context.Context, day model.Weekday, techs []model.Tech, customers []model.Customer, speed Speed) (daySolve, error) {
	out := daySolve{}

	routable := make([]model.Customer, 0, len(customers))
	for _, cust := range customers {
		if !cust.HasCoordinates() {
			out.skipped = append(out.skipped, SkippedCustomer{CustomerID: cust.ID, Reason: "no coordinates"})
			continue
		}
		routable = append(routable, cust)
	}
	if len(techs) == 0 || len(routable) == 0 {
		return out, nil
	}

	// Depot points first (start, end per tech), then customer points.
	points := make([]geo.Point, 0, 2*len(techs)+len(routable))
	vehicles := make([]solver.Vehicle, len(techs))
	baseWorkStart := techs[0].WorkStartMin
	for i, tech := range techs {
		points = append(points, tech.StartPoint(), tech.EndPoint())
		vehicles[i] = solver.Vehicle{
			ID:            tech.ID,
			StartLoc:      2 * i,
			EndLoc:        2*i + 1,
			CapacityStops: tech.StopCapacity(),
			Efficiency:    tech.EfficiencyMultiplier,
		}
		if tech.WorkStartMin < baseWorkStart {
			baseWorkStart = tech.WorkStartMin
		}
	}

	stops := make([]solver.Stop, len(routable))
	for j, cust := range routable {
		points = append(points, cust.Point())
		stops[j] = solver.Stop{
			ID:         cust.ID,
			Loc:        2*len(techs) + j,
			ServiceMin: cust.EffectiveServiceMin(),
		}
		// Customer windows are minutes of day; the solver clock starts at
		// the fleet's earliest work start.
		if cust.TimeWindowStart != nil {
			ws := *cust.TimeWindowStart - baseWorkStart
			if ws < 0 {
				ws = 0
			}
			stops[j].WindowStart = &ws
		}
		if cust.TimeWindowEnd != nil {
			we := *cust.TimeWindowEnd - baseWorkStart
			stops[j].WindowEnd = &we
		}
	}

	mtx, err := c.Matrix.Table(ctx, points)
	if err != nil {
		return out, internal("matrix computation failed", err)
	}
	out.source = mtx.Source

	// One tech, one customer: no search needed. Distance is the direct
	// out-and-back lookup; duration is service only.
	if len(techs) == 1 && len(routable) == 1 {
		tech, cust := techs[0], routable[0]
		custLoc := stops[0].Loc
		distM := mtx.DistanceMeters[vehicles[0].StartLoc][custLoc] + mtx.DistanceMeters[custLoc][vehicles[0].EndLoc]
		out.routes = []RouteResult{{
			TechID:        tech.ID,
			TechName:      tech.Name,
			TechColor:     tech.Color,
			ServiceDay:    day,
			StartLocation: tech.StartPoint(),
			EndLocation:   tech.EndPoint(),
			Stops: []StopResult{{
				CustomerID:         cust.ID,
				Name:               cust.Name,
				Address:            cust.Address,
				Lat:                *cust.Lat,
				Lng:                *cust.Lng,
				Sequence:           1,
				ServiceDurationMin: cust.EffectiveServiceMin(),
			}},
			TotalCustomers:     1,
			TotalDistanceMiles: geo.RoundMiles(geo.MetersToMiles(distM)),
			TotalDurationMin:   scaledServiceMin(tech, cust.EffectiveServiceMin()),
		}}
		return out, nil
	}

	problem := &solver.Problem{
		Dist:                mtx.DistanceMeters,
		Travel:              mtx.TravelMin,
		Stops:               stops,
		Vehicles:            vehicles,
		SpanCostCoefficient: speed.spanCost(),
	}

	var sol *solver.Solution
	err = c.Pool.Do(ctx, func() error {
		var solveErr error
		sol, solveErr = c.Solver.Solve(ctx, problem, speed.effort())
		return solveErr
	})
	if err != nil {
		var infeasible *solver.InfeasibleError
		if errors.As(err, &infeasible) {
			out.message = fmt.Sprintf("no feasible solution for %s: %s", day, infeasible.Reason)
			return out, nil
		}
		return out, err
	}

	byID := make(map[string]model.Customer, len(routable))
	for _, cust := range routable {
		byID[cust.ID] = cust
	}
	for vi, route := range sol.Routes {
		if len(route.Stops) == 0 {
			continue
		}
		tech := techs[vi]
		rr := RouteResult{
			TechID:             tech.ID,
			TechName:           tech.Name,
			TechColor:          tech.Color,
			ServiceDay:         day,
			StartLocation:      tech.StartPoint(),
			EndLocation:        tech.EndPoint(),
			TotalCustomers:     len(route.Stops),
			TotalDistanceMiles: geo.RoundMiles(geo.MetersToMiles(route.DistanceMeters)),
			TotalDurationMin:   route.DurationMin,
		}
		for seq, si := range route.Stops {
			cust := byID[stops[si].ID]
			rr.Stops = append(rr.Stops, StopResult{
				CustomerID:         cust.ID,
				Name:               cust.Name,
				Address:            cust.Address,
				Lat:                *cust.Lat,
				Lng:                *cust.Lng,
				Sequence:           seq + 1,
				ServiceDurationMin: cust.EffectiveServiceMin(),
			})
		}
		out.routes = append(out.routes, rr)
	}
	return out, nil
}

// solveSingleTech routes one tech's customers for one day.
func (c *Core) solveSingleTech(ctx context.Context, day model.Weekday, tech model.Tech, customers []model.Customer, speed Speed) (daySolve, error) {
	return c.solveDay(ctx, day, []model.Tech{tech}, customers, speed)
}

// effectiveAssignments returns customer_id -> tech_id for every non-expired
// temp assignment on (tenant, day), newest date winning.
func (c *Core) effectiveAssignments(tenantID string, day model.Weekday) (map[string]string, error) {
	temps, err := c.Store.TempAssignments.ListEffective(tenantID, day, c.today())
	if err != nil {
		return nil, internal("load temp assignments", err)
	}
	overlay := make(map[string]string, len(temps))
	for _, t := range temps {
		overlay[t.CustomerID] = t.TechID
	}
	return overlay, nil
}

// effectiveTechID resolves the tech serving a customer today: temp overlay
// first, permanent assignment otherwise.
func effectiveTechID(cust model.Customer, overlay map[string]string) string {
	if techID, ok := overlay[cust.ID]; ok {
		return techID
	}
	return cust.AssignedTechID
}

// scaledServiceMin is a tech's clock time for a visit, efficiency applied.
func scaledServiceMin(tech model.Tech, base int) int {
	if tech.EfficiencyMultiplier <= 0 || tech.EfficiencyMultiplier == 1 {
		return base
	}
	return int(math.Round(float64(base) / tech.EfficiencyMultiplier))
}

// shortAddress keeps the first two comma-separated parts of an address.
func shortAddress(addr string) string {
	parts := strings.Split(addr, ",")
	if len(parts) <= 2 {
		return strings.TrimSpace(addr)
	}
	return strings.TrimSpace(parts[0]) + ", " + strings.TrimSpace(parts[1])
}
