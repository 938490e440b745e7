package service

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/routewise/routewise/internal/geo"
	"github.com/routewise/routewise/internal/model"
	"github.com/routewise/routewise/internal/store"
)

// StopView is one resolved stop in a persisted-route response.
type StopView struct {
	StopID     string  `json:"stop_id"`
	CustomerID string  `json:"customer_id"`
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Sequence   int     `json:"sequence"`
	ServiceMin int     `json:"service_min"`
}

// RouteView is a persisted route joined with tech attributes and resolved
// customers.
type RouteView struct {
	RouteID            string        `json:"route_id"`
	TechID             string        `json:"tech_id"`
	TechName           string        `json:"tech_name"`
	TechColor          string        `json:"tech_color"`
	ServiceDay         model.Weekday `json:"service_day"`
	RouteDate          model.Date    `json:"route_date"`
	StartLocation      geo.Point     `json:"start_location"`
	EndLocation        geo.Point     `json:"end_location"`
	Stops              []StopView    `json:"stops"`
	TotalCustomers     int           `json:"total_customers"`
	TotalDistanceMiles float64       `json:"total_distance_miles"`
	TotalDurationMin   int           `json:"total_duration_minutes"`
}

// SaveRoutes persists an optimize result for one day. The save is
// transactional: every tech is verified against the tenant first, then all
// existing routes for (tenant, day) are replaced regardless of date.
// Returns the new route ids.
func (c *Core) SaveRoutes(tenantID string, day model.Weekday, routes []RouteResult) ([]string, error) {
	if !day.IsValid() {
		return nil, invalidArg("invalid service_day: " + string(day))
	}

	for _, r := range routes {
		if _, err := c.Store.Fleet.GetTech(tenantID, r.TechID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, notFound("tech not found: " + r.TechID)
			}
			return nil, internal("verify tech", err)
		}
	}

	now := c.nowNs()
	date := c.today()
	records := make([]model.TechRoute, 0, len(routes))
	ids := make([]string, 0, len(routes))
	for _, r := range routes {
		rec := model.TechRoute{
			ID:                 uuid.NewString(),
			TenantID:           tenantID,
			TechID:             r.TechID,
			ServiceDay:         day,
			RouteDate:          date,
			TotalDistanceMiles: r.TotalDistanceMiles,
			TotalDurationMin:   r.TotalDurationMin,
			CreatedAtNs:        now,
			UpdatedAtNs:        now,
		}
		for i, s := range r.Stops {
			rec.Stops = append(rec.Stops, model.RouteStop{
				StopID:     uuid.NewString(),
				CustomerID: s.CustomerID,
				Sequence:   i + 1,
				ServiceMin: s.ServiceDurationMin,
			})
		}
		records = append(records, rec)
		ids = append(ids, rec.ID)
	}

	if err := c.Store.Routes.ReplaceRoutesForDay(tenantID, day, records); err != nil {
		return nil, internal("save routes", err)
	}
	return ids, nil
}

// GetDayRoutes returns the persisted routes for (tenant, day, date),
// materializing them first if none exist: one single-tech solve per active
// tech with eligible customers. Once persisted a day is never re-solved.
func (c *Core) GetDayRoutes(ctx context.Context, tenantID string, day model.Weekday, date model.Date) ([]RouteView, error) {
	if !day.IsValid() {
		return nil, invalidArg("invalid service_day: " + string(day))
	}
	if date.IsZero() {
		date = c.today()
	}

	routes, err := c.Store.Routes.ListDayRoutes(tenantID, day, date)
	if err != nil {
		return nil, internal("load day routes", err)
	}
	if len(routes) == 0 {
		if err := c.materializeDay(ctx, tenantID, day, date); err != nil {
			return nil, err
		}
		routes, err = c.Store.Routes.ListDayRoutes(tenantID, day, date)
		if err != nil {
			return nil, internal("reload day routes", err)
		}
	}

	return c.resolveRoutes(tenantID, routes)
}

// materializeDay builds and persists one route per active tech with eligible
// customers for (tenant, day, date). Techs with nothing to do get no row.
func (c *Core) materializeDay(ctx context.Context, tenantID string, day model.Weekday, date model.Date) error {
	unlock := c.lockDay(tenantID, day, date)
	defer unlock()

	// Re-check under the lock: a concurrent reader may have materialized.
	existing, err := c.Store.Routes.ListDayRoutes(tenantID, day, date)
	if err != nil {
		return internal("load day routes", err)
	}
	if len(existing) > 0 {
		return nil
	}

	techs, err := c.Store.Fleet.ListActiveTechs(tenantID)
	if err != nil {
		return internal("load techs", err)
	}
	customers, err := c.Store.Fleet.ListActiveCustomers(tenantID)
	if err != nil {
		return internal("load customers", err)
	}
	overlay, err := c.effectiveAssignments(tenantID, day)
	if err != nil {
		return err
	}

	for _, tech := range techs {
		var group []model.Customer
		for _, cust := range customers {
			if cust.ServesOn(day) && effectiveTechID(cust, overlay) == tech.ID {
				group = append(group, cust)
			}
		}
		if len(group) == 0 {
			continue
		}
		if err := c.regenerateTechRoute(ctx, tenantID, tech, day, date, group); err != nil {
			return err
		}
	}
	return nil
}

// regenerateTechRoute solves one tech's day and upserts the resulting route.
// A solve with no routable customers removes any stale row instead.
func (c *Core) regenerateTechRoute(ctx context.Context, tenantID string, tech model.Tech, day model.Weekday, date model.Date, group []model.Customer) error {
	solve, err := c.solveSingleTech(ctx, day, tech, group, SpeedQuick)
	if err != nil {
		return err
	}
	if len(solve.routes) == 0 {
		if err := c.Store.Routes.DeleteTechRoute(tenantID, tech.ID, day, date); err != nil {
			return internal("delete tech route", err)
		}
		return nil
	}

	rr := solve.routes[0]
	now := c.nowNs()
	rec := model.TechRoute{
		ID:                 uuid.NewString(),
		TenantID:           tenantID,
		TechID:             tech.ID,
		ServiceDay:         day,
		RouteDate:          date,
		TotalDistanceMiles: rr.TotalDistanceMiles,
		TotalDurationMin:   rr.TotalDurationMin,
		CreatedAtNs:        now,
		UpdatedAtNs:        now,
	}
	for i, s := range rr.Stops {
		rec.Stops = append(rec.Stops, model.RouteStop{
			StopID:     uuid.NewString(),
			CustomerID: s.CustomerID,
			Sequence:   i + 1,
			ServiceMin: s.ServiceDurationMin,
		})
	}
	if err := c.Store.Routes.UpsertRoute(rec); err != nil {
		return internal("persist tech route", err)
	}
	return nil
}

// GetRouteDetail returns one persisted route with resolved stops.
func (c *Core) GetRouteDetail(tenantID, routeID string) (*RouteView, error) {
	route, err := c.Store.Routes.GetRoute(tenantID, routeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("route not found: " + routeID)
		}
		return nil, internal("load route", err)
	}
	views, err := c.resolveRoutes(tenantID, []model.TechRoute{route})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// DeleteDayRoutes removes every persisted route for (tenant, day) and
// reports how many were removed.
func (c *Core) DeleteDayRoutes(tenantID string, day model.Weekday) (int64, error) {
	if !day.IsValid() {
		return 0, invalidArg("invalid service_day: " + string(day))
	}
	n, err := c.Store.Routes.DeleteRoutesForDay(tenantID, day)
	if err != nil {
		return 0, internal("delete day routes", err)
	}
	return n, nil
}

// StopOrder is one (stop, sequence) pair in a reorder request.
type StopOrder struct {
	StopID      string `json:"stop_id"`
	NewSequence int    `json:"new_sequence"`
}

// ReorderStops reorders a route's stops by the requested sequences, then
// resequences densely 1..N whatever the input looked like.
func (c *Core) ReorderStops(tenantID, routeID string, orders []StopOrder) (*RouteView, error) {
	route, err := c.Store.Routes.GetRoute(tenantID, routeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("route not found: " + routeID)
		}
		return nil, internal("load route", err)
	}

	known := make(map[string]bool, len(route.Stops))
	for _, s := range route.Stops {
		known[s.StopID] = true
	}
	requested := make(map[string]int, len(orders))
	for _, o := range orders {
		if !known[o.StopID] {
			return nil, notFound("stop not found on route: " + o.StopID)
		}
		requested[o.StopID] = o.NewSequence
	}

	for i := range route.Stops {
		if seq, ok := requested[route.Stops[i].StopID]; ok {
			route.Stops[i].Sequence = seq
		}
	}
	sort.SliceStable(route.Stops, func(i, j int) bool {
		return route.Stops[i].Sequence < route.Stops[j].Sequence
	})
	(&route).Resequence()
	route.UpdatedAtNs = c.nowNs()

	if err := c.Store.Routes.UpdateRouteStops(route); err != nil {
		return nil, internal("update route", err)
	}
	views, err := c.resolveRoutes(tenantID, []model.TechRoute{route})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// MoveStop moves a stop from its route to targetRouteID at insertSeq
// (clamped to [1, len(target)+1]), resequencing both routes densely. No
// re-optimization happens; aggregates on both routes go stale until the next
// solve.
func (c *Core) MoveStop(tenantID, stopID, targetRouteID string, insertSeq int) (source, target *RouteView, err error) {
	targetRoute, err := c.Store.Routes.GetRoute(tenantID, targetRouteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, notFound("route not found: " + targetRouteID)
		}
		return nil, nil, internal("load route", err)
	}

	dayRoutes, err := c.Store.Routes.ListDayRoutes(tenantID, targetRoute.ServiceDay, targetRoute.RouteDate)
	if err != nil {
		return nil, nil, internal("load day routes", err)
	}
	var sourceRoute *model.TechRoute
	var moved model.RouteStop
	for i := range dayRoutes {
		for j, s := range dayRoutes[i].Stops {
			if s.StopID == stopID {
				sourceRoute = &dayRoutes[i]
				moved = s
				sourceRoute.Stops = append(sourceRoute.Stops[:j], sourceRoute.Stops[j+1:]...)
				break
			}
		}
		if sourceRoute != nil {
			break
		}
	}
	if sourceRoute == nil {
		return nil, nil, notFound("stop not found: " + stopID)
	}

	if sourceRoute.ID == targetRoute.ID {
		targetRoute = *sourceRoute
	}
	if insertSeq < 1 {
		insertSeq = 1
	}
	if insertSeq > len(targetRoute.Stops)+1 {
		insertSeq = len(targetRoute.Stops) + 1
	}
	targetRoute.Stops = append(targetRoute.Stops[:insertSeq-1],
		append([]model.RouteStop{moved}, targetRoute.Stops[insertSeq-1:]...)...)

	now := c.nowNs()
	(&targetRoute).Resequence()
	targetRoute.UpdatedAtNs = now
	if err := c.Store.Routes.UpdateRouteStops(targetRoute); err != nil {
		return nil, nil, internal("update target route", err)
	}
	if sourceRoute.ID != targetRoute.ID {
		sourceRoute.Resequence()
		sourceRoute.UpdatedAtNs = now
		if err := c.Store.Routes.UpdateRouteStops(*sourceRoute); err != nil {
			return nil, nil, internal("update source route", err)
		}
	} else {
		sourceRoute = &targetRoute
	}

	views, err := c.resolveRoutes(tenantID, []model.TechRoute{*sourceRoute, targetRoute})
	if err != nil {
		return nil, nil, err
	}
	return &views[0], &views[1], nil
}

// resolveRoutes joins persisted routes with tech attributes and customer
// display records. Customers outside the tenant resolve to nothing and keep
// only their id.
func (c *Core) resolveRoutes(tenantID string, routes []model.TechRoute) ([]RouteView, error) {
	views := make([]RouteView, 0, len(routes))
	for _, route := range routes {
		view := RouteView{
			RouteID:            route.ID,
			TechID:             route.TechID,
			ServiceDay:         route.ServiceDay,
			RouteDate:          route.RouteDate,
			TotalCustomers:     len(route.Stops),
			TotalDistanceMiles: route.TotalDistanceMiles,
			TotalDurationMin:   route.TotalDurationMin,
		}
		if tech, err := c.Store.Fleet.GetTech(tenantID, route.TechID); err == nil {
			view.TechName = tech.Name
			view.TechColor = tech.Color
			view.StartLocation = tech.StartPoint()
			view.EndLocation = tech.EndPoint()
		}
		for _, s := range route.Stops {
			sv := StopView{
				StopID:     s.StopID,
				CustomerID: s.CustomerID,
				Sequence:   s.Sequence,
				ServiceMin: s.ServiceMin,
			}
			if cust, err := c.Store.Fleet.GetCustomer(tenantID, s.CustomerID); err == nil {
				sv.Name = cust.Name
				sv.Address = shortAddress(cust.Address)
				if cust.HasCoordinates() {
					sv.Lat = *cust.Lat
					sv.Lng = *cust.Lng
				}
			}
			view.Stops = append(view.Stops, sv)
		}
		views = append(views, view)
	}
	return views, nil
}
