package service

import (
	"context"
	"log"

	"github.com/routewise/routewise/internal/matrix"
	"github.com/routewise/routewise/internal/model"
)

// Mode selects the optimization strategy.
type Mode string

const (
	// ModeRefine reorders each tech's own customers; no reassignment.
	ModeRefine Mode = "refine"
	// ModeFullPerDay reassigns all eligible customers among techs, one day
	// at a time.
	ModeFullPerDay Mode = "full_per_day"
	// ModeCrossDay additionally lets unlocked customers change service day
	// to balance the week.
	ModeCrossDay Mode = "cross_day"
)

// OptimizeRequest carries one optimize call's parameters.
type OptimizeRequest struct {
	Mode                Mode          `json:"mode"`
	ServiceDay          model.Weekday `json:"service_day,omitempty"`
	SelectedTechIDs     []string      `json:"selected_tech_ids,omitempty"`
	UnlockedCustomerIDs []string      `json:"unlocked_customer_ids,omitempty"`
	Speed               Speed         `json:"speed,omitempty"`
	IncludeUnassigned   bool          `json:"include_unassigned,omitempty"`
	IncludePending      bool          `json:"include_pending,omitempty"`
	IncludeSaturday     bool          `json:"include_saturday,omitempty"`
	IncludeSunday       bool          `json:"include_sunday,omitempty"`
}

// OptimizeSummary aggregates an optimize run.
type OptimizeSummary struct {
	Mode           Mode              `json:"mode"`
	Days           []model.Weekday   `json:"days"`
	TotalRoutes    int               `json:"total_routes"`
	TotalCustomers int               `json:"total_customers"`
	Skipped        []SkippedCustomer `json:"skipped,omitempty"`
	FailedDays     []FailedDay       `json:"failed_days,omitempty"`
	MatrixSource   matrix.Source     `json:"matrix_source,omitempty"`
}

// OptimizeResult is the optimize response: routes in day-enum order plus a
// summary. Message is set when a day was infeasible.
type OptimizeResult struct {
	Routes  []RouteResult   `json:"routes"`
	Summary OptimizeSummary `json:"summary"`
	Message string          `json:"message,omitempty"`
}

// daySet returns the days an all-days run covers: Monday through Friday,
// extended by the weekend flags.
func (r OptimizeRequest) daySet() []model.Weekday {
	days := []model.Weekday{model.Monday, model.Tuesday, model.Wednesday, model.Thursday, model.Friday}
	if r.IncludeSaturday {
		days = append(days, model.Saturday)
	}
	if r.IncludeSunday {
		days = append(days, model.Sunday)
	}
	return days
}

func (r OptimizeRequest) validate() *ServiceError {
	switch r.Mode {
	case ModeRefine, ModeFullPerDay, ModeCrossDay:
	default:
		return invalidArg("unknown mode: " + string(r.Mode))
	}
	switch r.Speed {
	case "", SpeedQuick, SpeedThorough:
	default:
		return invalidArg("unknown speed: " + string(r.Speed))
	}
	if r.ServiceDay != "" && !r.ServiceDay.IsValid() {
		return invalidArg("invalid service_day: " + string(r.ServiceDay))
	}
	if r.Mode == ModeRefine && r.ServiceDay == "" {
		return invalidArg("refine mode requires service_day")
	}
	return nil
}

// Optimize runs one optimization request for a tenant. Multi-day runs are
// resilient: a failed day lands in summary.failed_days and the remaining
// days still solve.
func (c *Core) Optimize(ctx context.Context, tenantID string, req OptimizeRequest) (*OptimizeResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.Speed == "" {
		req.Speed = SpeedQuick
	}

	techs, err := c.selectedTechs(tenantID, req.SelectedTechIDs)
	if err != nil {
		return nil, err
	}
	customers, err := c.Store.Fleet.ListActiveCustomers(tenantID)
	if err != nil {
		return nil, internal("load customers", err)
	}
	if req.IncludePending {
		pending, err := c.pendingCustomers(tenantID)
		if err != nil {
			return nil, err
		}
		customers = append(customers, pending...)
	}

	result := &OptimizeResult{Summary: OptimizeSummary{Mode: req.Mode}}

	switch req.Mode {
	case ModeRefine:
		err = c.optimizeRefine(ctx, tenantID, req, techs, customers, result)
	case ModeFullPerDay:
		err = c.optimizeFullPerDay(ctx, req, techs, customers, result)
	case ModeCrossDay:
		err = c.optimizeCrossDay(ctx, req, techs, customers, result)
	}
	if err != nil {
		return nil, err
	}

	result.Summary.TotalRoutes = len(result.Routes)
	for _, r := range result.Routes {
		result.Summary.TotalCustomers += r.TotalCustomers
	}
	return result, nil
}

// optimizeRefine keeps the tech-to-customer mapping and reorders each tech's
// route independently.
func (c *Core) optimizeRefine(ctx context.Context, tenantID string, req OptimizeRequest, techs []model.Tech, customers []model.Customer, result *OptimizeResult) error {
	day := req.ServiceDay
	result.Summary.Days = []model.Weekday{day}

	overlay, err := c.effectiveAssignments(tenantID, day)
	if err != nil {
		return err
	}

	groups := make(map[string][]model.Customer)
	for _, cust := range customers {
		if !cust.ServesOn(day) {
			continue
		}
		techID := effectiveTechID(cust, overlay)
		if techID == "" {
			continue
		}
		groups[techID] = append(groups[techID], cust)
	}

	for _, tech := range techs {
		group := groups[tech.ID]
		if len(group) == 0 {
			continue
		}
		solve, err := c.solveSingleTech(ctx, day, tech, group, req.Speed)
		if err != nil {
			return err
		}
		c.mergeDaySolve(result, day, solve)
	}
	return nil
}

// optimizeFullPerDay reassigns eligible customers among the techs. With a
// service_day it solves just that day; otherwise every day in the day set.
func (c *Core) optimizeFullPerDay(ctx context.Context, req OptimizeRequest, techs []model.Tech, customers []model.Customer, result *OptimizeResult) error {
	days := req.daySet()
	if req.ServiceDay != "" {
		days = []model.Weekday{req.ServiceDay}
	}
	result.Summary.Days = days

	for _, day := range days {
		var eligible []model.Customer
		for _, cust := range customers {
			if !cust.ServesOn(day) {
				continue
			}
			if cust.AssignedTechID == "" && !req.IncludeUnassigned {
				continue
			}
			eligible = append(eligible, cust)
		}
		if err := c.solveAndMerge(ctx, day, techs, eligible, req.Speed, result); err != nil {
			return err
		}
	}
	return nil
}

// solveAndMerge solves one day inside a multi-day run, converting hard
// failures into failed_days entries.
func (c *Core) solveAndMerge(ctx context.Context, day model.Weekday, techs []model.Tech, eligible []model.Customer, speed Speed, result *OptimizeResult) error {
	if len(eligible) == 0 {
		return nil
	}
	solve, err := c.solveDay(ctx, day, techs, eligible, speed)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("[optimize] day %s failed: %v", day, err)
		result.Summary.FailedDays = append(result.Summary.FailedDays, FailedDay{Day: day, Reason: err.Error()})
		return nil
	}
	c.mergeDaySolve(result, day, solve)
	return nil
}

// mergeDaySolve appends one day's routes and bookkeeping to the result.
func (c *Core) mergeDaySolve(result *OptimizeResult, day model.Weekday, solve daySolve) {
	result.Routes = append(result.Routes, solve.routes...)
	result.Summary.Skipped = append(result.Summary.Skipped, solve.skipped...)
	if solve.message != "" {
		if result.Message != "" {
			result.Message += "; "
		}
		result.Message += solve.message
	}
	// Fallback is sticky: one estimated day taints the whole run.
	if solve.source != "" && result.Summary.MatrixSource != matrix.SourceFallback {
		result.Summary.MatrixSource = solve.source
	}
}

// selectedTechs loads the tenant's active techs, optionally narrowed to ids.
// An id outside the tenant is a NOT_FOUND.
func (c *Core) selectedTechs(tenantID string, ids []string) ([]model.Tech, error) {
	techs, err := c.Store.Fleet.ListActiveTechs(tenantID)
	if err != nil {
		return nil, internal("load techs", err)
	}
	if len(ids) == 0 {
		return techs, nil
	}
	byID := make(map[string]model.Tech, len(techs))
	for _, t := range techs {
		byID[t.ID] = t
	}
	selected := make([]model.Tech, 0, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			return nil, notFound("tech not found: " + id)
		}
		selected = append(selected, t)
	}
	return selected, nil
}

func (c *Core) pendingCustomers(tenantID string) ([]model.Customer, error) {
	all, err := c.Store.Fleet.ListCustomersByStatus(tenantID, model.StatusPending)
	if err != nil {
		return nil, internal("load pending customers", err)
	}
	return all, nil
}
