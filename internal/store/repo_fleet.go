package store

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/routewise/routewise/internal/model"
)

// FleetRepo wraps the techs and customers read-model tables. The optimizer
// only reads these; writes come from the seed loader and tests.
type FleetRepo struct {
	db *sql.DB
	mu sync.Mutex
}

// NewFleetRepo creates a FleetRepo.
func NewFleetRepo(db *sql.DB) *FleetRepo {
	return &FleetRepo{db: db}
}

// UpsertTech inserts or updates a tech by id.
func (r *FleetRepo) UpsertTech(t model.Tech) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`
		INSERT INTO techs (id, tenant_id, name, color, start_lat, start_lng, end_lat, end_lng,
		                   work_start_min, work_end_min, max_stops_per_day, efficiency_multiplier, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tenant_id             = excluded.tenant_id,
			name                  = excluded.name,
			color                 = excluded.color,
			start_lat             = excluded.start_lat,
			start_lng             = excluded.start_lng,
			end_lat               = excluded.end_lat,
			end_lng               = excluded.end_lng,
			work_start_min        = excluded.work_start_min,
			work_end_min          = excluded.work_end_min,
			max_stops_per_day     = excluded.max_stops_per_day,
			efficiency_multiplier = excluded.efficiency_multiplier,
			active                = excluded.active
	`, t.ID, t.TenantID, t.Name, t.Color, t.StartLat, t.StartLng, t.EndLat, t.EndLng,
		t.WorkStartMin, t.WorkEndMin, t.MaxStopsPerDay, t.EfficiencyMultiplier, boolToInt(t.Active))
	return err
}

// GetTech loads one tech by id within a tenant.
func (r *FleetRepo) GetTech(tenantID, techID string) (model.Tech, error) {
	row := r.db.QueryRow(
		`SELECT `+techColumns+` FROM techs WHERE tenant_id = ? AND id = ?`,
		tenantID, techID,
	)
	t, err := scanTech(row)
	if err == sql.ErrNoRows {
		return model.Tech{}, ErrNotFound
	}
	return t, err
}

// ListActiveTechs returns a tenant's active techs ordered by name.
func (r *FleetRepo) ListActiveTechs(tenantID string) ([]model.Tech, error) {
	rows, err := r.db.Query(
		`SELECT `+techColumns+` FROM techs WHERE tenant_id = ? AND active = 1 ORDER BY name`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Tech
	for rows.Next() {
		t, err := scanTech(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// UpsertCustomer inserts or updates a customer by id.
func (r *FleetRepo) UpsertCustomer(c model.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`
		INSERT INTO customers (id, tenant_id, name, address, lat, lng, service_type,
		                       visit_duration_min, difficulty, primary_day, days_per_week,
		                       schedule_pattern, locked, tw_start_min, tw_end_min,
		                       assigned_tech_id, active, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tenant_id          = excluded.tenant_id,
			name               = excluded.name,
			address            = excluded.address,
			lat                = excluded.lat,
			lng                = excluded.lng,
			service_type       = excluded.service_type,
			visit_duration_min = excluded.visit_duration_min,
			difficulty         = excluded.difficulty,
			primary_day        = excluded.primary_day,
			days_per_week      = excluded.days_per_week,
			schedule_pattern   = excluded.schedule_pattern,
			locked             = excluded.locked,
			tw_start_min       = excluded.tw_start_min,
			tw_end_min         = excluded.tw_end_min,
			assigned_tech_id   = excluded.assigned_tech_id,
			active             = excluded.active,
			status             = excluded.status
	`, c.ID, c.TenantID, c.Name, c.Address, c.Lat, c.Lng, string(c.ServiceType),
		c.VisitDurationMin, c.Difficulty, string(c.PrimaryDay), c.DaysPerWeek,
		c.SchedulePattern, boolToInt(c.Locked), c.TimeWindowStart, c.TimeWindowEnd,
		c.AssignedTechID, boolToInt(c.Active), string(c.Status))
	return err
}

// GetCustomer loads one customer by id within a tenant.
func (r *FleetRepo) GetCustomer(tenantID, customerID string) (model.Customer, error) {
	row := r.db.QueryRow(
		`SELECT `+customerColumns+` FROM customers WHERE tenant_id = ? AND id = ?`,
		tenantID, customerID,
	)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return model.Customer{}, ErrNotFound
	}
	return c, err
}

// ListActiveCustomers returns a tenant's active customers ordered by name.
func (r *FleetRepo) ListActiveCustomers(tenantID string) ([]model.Customer, error) {
	rows, err := r.db.Query(
		`SELECT `+customerColumns+` FROM customers
		 WHERE tenant_id = ? AND active = 1 AND status = 'active'
		 ORDER BY name`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// ListCustomersByStatus returns a tenant's active-flagged customers with the
// given status, ordered by name.
func (r *FleetRepo) ListCustomersByStatus(tenantID string, status model.CustomerStatus) ([]model.Customer, error) {
	rows, err := r.db.Query(
		`SELECT `+customerColumns+` FROM customers
		 WHERE tenant_id = ? AND active = 1 AND status = ?
		 ORDER BY name`,
		tenantID, string(status),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

const techColumns = `id, tenant_id, name, color, start_lat, start_lng, end_lat, end_lng,
	work_start_min, work_end_min, max_stops_per_day, efficiency_multiplier, active`

const customerColumns = `id, tenant_id, name, address, lat, lng, service_type,
	visit_duration_min, difficulty, primary_day, days_per_week, schedule_pattern,
	locked, tw_start_min, tw_end_min, assigned_tech_id, active, status`

func scanTech(row rowScanner) (model.Tech, error) {
	var t model.Tech
	var active int
	err := row.Scan(&t.ID, &t.TenantID, &t.Name, &t.Color, &t.StartLat, &t.StartLng,
		&t.EndLat, &t.EndLng, &t.WorkStartMin, &t.WorkEndMin, &t.MaxStopsPerDay,
		&t.EfficiencyMultiplier, &active)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Tech{}, err
		}
		return model.Tech{}, fmt.Errorf("scan tech: %w", err)
	}
	t.Active = active != 0
	return t, nil
}

func scanCustomer(row rowScanner) (model.Customer, error) {
	var c model.Customer
	var serviceType, primaryDay, status string
	var locked, active int
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Address, &c.Lat, &c.Lng, &serviceType,
		&c.VisitDurationMin, &c.Difficulty, &primaryDay, &c.DaysPerWeek, &c.SchedulePattern,
		&locked, &c.TimeWindowStart, &c.TimeWindowEnd, &c.AssignedTechID, &active, &status)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Customer{}, err
		}
		return model.Customer{}, fmt.Errorf("scan customer: %w", err)
	}
	c.ServiceType = model.ServiceType(serviceType)
	c.PrimaryDay = model.Weekday(primaryDay)
	c.Status = model.CustomerStatus(status)
	c.Locked = locked != 0
	c.Active = active != 0
	return c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
