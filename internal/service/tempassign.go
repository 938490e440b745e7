package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/routewise/routewise/internal/model"
	"github.com/routewise/routewise/internal/store"
)

// TempAssignmentResult is the set_temp_assignment response: the regenerated
// routes for every affected tech, reflecting state after the temp row and
// route rewrites are persisted.
type TempAssignmentResult struct {
	Assignment    *model.TempAssignment `json:"assignment,omitempty"`
	UpdatedRoutes []RouteView           `json:"updated_routes"`
}

// SetTempAssignment moves a customer to a tech for one service day, dated
// today, and incrementally re-routes the affected techs. Serialized per
// (tenant, day, date) so concurrent moves on the same day cannot leave
// routes inconsistent with the temp rows.
func (c *Core) SetTempAssignment(ctx context.Context, tenantID, customerID, techID string, day model.Weekday) (*TempAssignmentResult, error) {
	if !day.IsValid() {
		return nil, invalidArg("invalid service_day: " + string(day))
	}

	cust, err := c.Store.Fleet.GetCustomer(tenantID, customerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound("customer not found: " + customerID)
		}
		return nil, internal("load customer", err)
	}
	if techID != "" {
		if _, err := c.Store.Fleet.GetTech(tenantID, techID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, notFound("tech not found: " + techID)
			}
			return nil, internal("load tech", err)
		}
	}

	today := c.today()
	unlock := c.lockDay(tenantID, day, today)
	defer unlock()

	// Expired temps go first so the previous-tech read below cannot see one.
	if _, err := c.Store.TempAssignments.DeleteExpired(today.AddDays(-model.TempAssignmentTTLDays)); err != nil {
		return nil, internal("purge expired temp assignments", err)
	}

	overlay, err := c.effectiveAssignments(tenantID, day)
	if err != nil {
		return nil, err
	}
	prevTech := effectiveTechID(cust, overlay)

	// Clear the customer's whole override history for the day. Overlays pick
	// the newest date, so leaving older rows behind would resurrect them.
	if err := c.Store.TempAssignments.DeleteForCustomerDay(tenantID, customerID, day); err != nil {
		return nil, internal("delete temp assignments", err)
	}

	result := &TempAssignmentResult{}
	if techID != cust.AssignedTechID {
		a := model.TempAssignment{
			ID:             uuid.NewString(),
			TenantID:       tenantID,
			CustomerID:     customerID,
			TechID:         techID,
			ServiceDay:     day,
			AssignmentDate: today,
			CreatedAtNs:    c.nowNs(),
		}
		if err := c.Store.TempAssignments.Upsert(a); err != nil {
			return nil, internal("save temp assignment", err)
		}
		result.Assignment = &a
	}

	affected := make([]string, 0, 2)
	for _, id := range []string{prevTech, techID} {
		if id != "" && !contains(affected, id) {
			affected = append(affected, id)
		}
	}

	views, err := c.rerouteTechs(ctx, tenantID, day, today, affected)
	if err != nil {
		return nil, err
	}
	result.UpdatedRoutes = views
	return result, nil
}

// rerouteTechs deletes and re-solves the day routes for the given techs
// using the effective assignment as of now. Caller must hold the day lock.
func (c *Core) rerouteTechs(ctx context.Context, tenantID string, day model.Weekday, date model.Date, techIDs []string) ([]RouteView, error) {
	if len(techIDs) == 0 {
		return nil, nil
	}

	customers, err := c.Store.Fleet.ListActiveCustomers(tenantID)
	if err != nil {
		return nil, internal("load customers", err)
	}
	overlay, err := c.effectiveAssignments(tenantID, day)
	if err != nil {
		return nil, err
	}

	var updated []model.TechRoute
	for _, techID := range techIDs {
		tech, err := c.Store.Fleet.GetTech(tenantID, techID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, notFound("tech not found: " + techID)
			}
			return nil, internal("load tech", err)
		}

		if err := c.Store.Routes.DeleteTechRoute(tenantID, techID, day, date); err != nil {
			return nil, internal("delete tech route", err)
		}

		var group []model.Customer
		for _, cust := range customers {
			if cust.ServesOn(day) && effectiveTechID(cust, overlay) == techID {
				group = append(group, cust)
			}
		}
		if len(group) == 0 {
			continue
		}
		if err := c.regenerateTechRoute(ctx, tenantID, tech, day, date, group); err != nil {
			return nil, err
		}
		route, err := c.Store.Routes.GetTechRoute(tenantID, techID, day, date)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, internal("reload tech route", err)
		}
		updated = append(updated, route)
	}

	return c.resolveRoutes(tenantID, updated)
}

// ListTempAssignments returns a tenant's temp assignments, newest first.
func (c *Core) ListTempAssignments(tenantID string) ([]model.TempAssignment, error) {
	all, err := c.Store.TempAssignments.ListByTenant(tenantID)
	if err != nil {
		return nil, internal("list temp assignments", err)
	}
	return all, nil
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
