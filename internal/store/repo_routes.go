package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/routewise/routewise/internal/model"
)

// RouteRepo wraps the tech_routes table. All writes are serialized by an
// internal mutex.
type RouteRepo struct {
	db *sql.DB
	mu sync.Mutex
}

// NewRouteRepo creates a RouteRepo for the given routes.db connection.
func NewRouteRepo(db *sql.DB) *RouteRepo {
	return &RouteRepo{db: db}
}

const routeColumns = `id, tenant_id, tech_id, service_day, route_date, stops_json,
	total_distance_miles, total_duration_min, created_at_ns, updated_at_ns`

// ReplaceDayRoutes atomically replaces every route for (tenant, day, date)
// with the given set: delete-then-insert in one transaction so a failed save
// never leaves a day half-written.
func (r *RouteRepo) ReplaceDayRoutes(tenantID string, day model.Weekday, date model.Date, routes []model.TechRoute) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace day routes: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM tech_routes WHERE tenant_id = ? AND service_day = ? AND route_date = ?`,
		tenantID, string(day), string(date),
	); err != nil {
		return fmt.Errorf("delete day routes: %w", err)
	}

	for _, route := range routes {
		stopsJSON, err := json.Marshal(route.Stops)
		if err != nil {
			return fmt.Errorf("marshal stops for route %s: %w", route.ID, err)
		}
		if _, err := tx.Exec(`
			INSERT INTO tech_routes (`+routeColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, route.ID, route.TenantID, route.TechID, string(route.ServiceDay), string(route.RouteDate),
			string(stopsJSON), route.TotalDistanceMiles, route.TotalDurationMin,
			route.CreatedAtNs, route.UpdatedAtNs); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("insert route %s: %w", route.ID, ErrConflict)
			}
			return fmt.Errorf("insert route %s: %w", route.ID, err)
		}
	}

	return tx.Commit()
}

// ReplaceRoutesForDay atomically replaces every route for (tenant, day)
// regardless of route_date. This is the full-save contract: an optimize save
// supersedes any previously materialized date for that day.
func (r *RouteRepo) ReplaceRoutesForDay(tenantID string, day model.Weekday, routes []model.TechRoute) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace day: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM tech_routes WHERE tenant_id = ? AND service_day = ?`,
		tenantID, string(day),
	); err != nil {
		return fmt.Errorf("delete day routes: %w", err)
	}

	for _, route := range routes {
		stopsJSON, err := json.Marshal(route.Stops)
		if err != nil {
			return fmt.Errorf("marshal stops for route %s: %w", route.ID, err)
		}
		if _, err := tx.Exec(`
			INSERT INTO tech_routes (`+routeColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, route.ID, route.TenantID, route.TechID, string(route.ServiceDay), string(route.RouteDate),
			string(stopsJSON), route.TotalDistanceMiles, route.TotalDurationMin,
			route.CreatedAtNs, route.UpdatedAtNs); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("insert route %s: %w", route.ID, ErrConflict)
			}
			return fmt.Errorf("insert route %s: %w", route.ID, err)
		}
	}

	return tx.Commit()
}

// UpsertRoute inserts or replaces the route for its
// (tenant, tech, service_day, route_date) slot.
func (r *RouteRepo) UpsertRoute(route model.TechRoute) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stopsJSON, err := json.Marshal(route.Stops)
	if err != nil {
		return fmt.Errorf("marshal stops for route %s: %w", route.ID, err)
	}
	_, err = r.db.Exec(`
		INSERT INTO tech_routes (`+routeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, tech_id, service_day, route_date) DO UPDATE SET
			stops_json           = excluded.stops_json,
			total_distance_miles = excluded.total_distance_miles,
			total_duration_min   = excluded.total_duration_min,
			updated_at_ns        = excluded.updated_at_ns
	`, route.ID, route.TenantID, route.TechID, string(route.ServiceDay), string(route.RouteDate),
		string(stopsJSON), route.TotalDistanceMiles, route.TotalDurationMin,
		route.CreatedAtNs, route.UpdatedAtNs)
	return err
}

// DeleteTechRoute removes the route for (tenant, tech, day, date), if any.
func (r *RouteRepo) DeleteTechRoute(tenantID, techID string, day model.Weekday, date model.Date) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(
		`DELETE FROM tech_routes WHERE tenant_id = ? AND tech_id = ? AND service_day = ? AND route_date = ?`,
		tenantID, techID, string(day), string(date),
	)
	return err
}

// DeleteRoutesForDay removes every route for (tenant, day) regardless of
// date and reports how many were removed.
func (r *RouteRepo) DeleteRoutesForDay(tenantID string, day model.Weekday) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.Exec(
		`DELETE FROM tech_routes WHERE tenant_id = ? AND service_day = ?`,
		tenantID, string(day),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetRoute loads one route by id within a tenant.
func (r *RouteRepo) GetRoute(tenantID, routeID string) (model.TechRoute, error) {
	row := r.db.QueryRow(
		`SELECT `+routeColumns+` FROM tech_routes WHERE tenant_id = ? AND id = ?`,
		tenantID, routeID,
	)
	return scanRoute(row)
}

// ListDayRoutes returns every route for (tenant, day, date).
func (r *RouteRepo) ListDayRoutes(tenantID string, day model.Weekday, date model.Date) ([]model.TechRoute, error) {
	rows, err := r.db.Query(
		`SELECT `+routeColumns+` FROM tech_routes
		 WHERE tenant_id = ? AND service_day = ? AND route_date = ?
		 ORDER BY tech_id`,
		tenantID, string(day), string(date),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.TechRoute
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, route)
	}
	return result, rows.Err()
}

// GetTechRoute loads the route for (tenant, tech, day, date), if any.
func (r *RouteRepo) GetTechRoute(tenantID, techID string, day model.Weekday, date model.Date) (model.TechRoute, error) {
	row := r.db.QueryRow(
		`SELECT `+routeColumns+` FROM tech_routes
		 WHERE tenant_id = ? AND tech_id = ? AND service_day = ? AND route_date = ?`,
		tenantID, techID, string(day), string(date),
	)
	return scanRoute(row)
}

// UpdateRouteStops rewrites a route's stop list and aggregate metrics.
func (r *RouteRepo) UpdateRouteStops(route model.TechRoute) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stopsJSON, err := json.Marshal(route.Stops)
	if err != nil {
		return fmt.Errorf("marshal stops for route %s: %w", route.ID, err)
	}

	res, err := r.db.Exec(`
		UPDATE tech_routes
		SET stops_json = ?, total_distance_miles = ?, total_duration_min = ?, updated_at_ns = ?
		WHERE tenant_id = ? AND id = ?
	`, string(stopsJSON), route.TotalDistanceMiles, route.TotalDurationMin, route.UpdatedAtNs,
		route.TenantID, route.ID)
	if err != nil {
		return fmt.Errorf("update route %s: %w", route.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDayRoutes removes every route for (tenant, day, date) and reports
// how many were removed.
func (r *RouteRepo) DeleteDayRoutes(tenantID string, day model.Weekday, date model.Date) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.Exec(
		`DELETE FROM tech_routes WHERE tenant_id = ? AND service_day = ? AND route_date = ?`,
		tenantID, string(day), string(date),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteRoutesBefore removes routes dated strictly before cutoff, across all
// tenants. Used by the retention sweeper.
func (r *RouteRepo) DeleteRoutesBefore(cutoff model.Date) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.Exec(`DELETE FROM tech_routes WHERE route_date < ?`, string(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountRoutes returns the number of stored routes for a tenant.
func (r *RouteRepo) CountRoutes(tenantID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM tech_routes WHERE tenant_id = ?`, tenantID).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoute(row rowScanner) (model.TechRoute, error) {
	var route model.TechRoute
	var day, date, stopsJSON string
	err := row.Scan(&route.ID, &route.TenantID, &route.TechID, &day, &date, &stopsJSON,
		&route.TotalDistanceMiles, &route.TotalDurationMin, &route.CreatedAtNs, &route.UpdatedAtNs)
	if err == sql.ErrNoRows {
		return model.TechRoute{}, ErrNotFound
	}
	if err != nil {
		return model.TechRoute{}, fmt.Errorf("scan tech_route: %w", err)
	}
	route.ServiceDay = model.Weekday(day)
	route.RouteDate = model.Date(date)
	if err := json.Unmarshal([]byte(stopsJSON), &route.Stops); err != nil {
		return model.TechRoute{}, fmt.Errorf("unmarshal stops for route %s: %w", route.ID, err)
	}
	return route, nil
}
