package store

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/routewise/routewise/internal/model"
)

// TempAssignmentRepo wraps the temp_assignments table.
type TempAssignmentRepo struct {
	db *sql.DB
	mu sync.Mutex
}

// NewTempAssignmentRepo creates a TempAssignmentRepo.
func NewTempAssignmentRepo(db *sql.DB) *TempAssignmentRepo {
	return &TempAssignmentRepo{db: db}
}

const tempAssignColumns = `id, tenant_id, customer_id, tech_id, service_day, assignment_date, created_at_ns`

// Upsert inserts or replaces the assignment for its
// (tenant, customer, service_day, assignment_date) slot.
func (r *TempAssignmentRepo) Upsert(a model.TempAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`
		INSERT INTO temp_assignments (`+tempAssignColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, customer_id, service_day, assignment_date) DO UPDATE SET
			tech_id       = excluded.tech_id,
			created_at_ns = excluded.created_at_ns
	`, a.ID, a.TenantID, a.CustomerID, a.TechID, string(a.ServiceDay), string(a.AssignmentDate), a.CreatedAtNs)
	return err
}

// ListEffective returns the non-expired assignments for (tenant, day):
// assignment_date within the TTL window ending at today. When a customer has
// several rows in the window the newest assignment_date wins; rows are
// returned oldest first so callers can overlay them in order.
func (r *TempAssignmentRepo) ListEffective(tenantID string, day model.Weekday, today model.Date) ([]model.TempAssignment, error) {
	oldest := today.AddDays(-model.TempAssignmentTTLDays)
	rows, err := r.db.Query(
		`SELECT `+tempAssignColumns+` FROM temp_assignments
		 WHERE tenant_id = ? AND service_day = ? AND assignment_date >= ? AND assignment_date <= ?
		 ORDER BY assignment_date ASC, created_at_ns ASC`,
		tenantID, string(day), string(oldest), string(today),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAssignments(rows)
}

// ListByTenant returns every assignment for a tenant, newest first.
func (r *TempAssignmentRepo) ListByTenant(tenantID string) ([]model.TempAssignment, error) {
	rows, err := r.db.Query(
		`SELECT `+tempAssignColumns+` FROM temp_assignments
		 WHERE tenant_id = ? ORDER BY assignment_date DESC, created_at_ns DESC`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAssignments(rows)
}

// DeleteForCustomerDay removes every assignment for
// (tenant, customer, service_day) regardless of assignment_date. Overrides
// overlay newest-date-first, so a revert has to clear the whole window or a
// stale older row would come back into effect.
func (r *TempAssignmentRepo) DeleteForCustomerDay(tenantID, customerID string, day model.Weekday) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(
		`DELETE FROM temp_assignments
		 WHERE tenant_id = ? AND customer_id = ? AND service_day = ?`,
		tenantID, customerID, string(day),
	)
	return err
}

// DeleteExpired removes assignments dated strictly before cutoff, across all
// tenants. Used by the nightly purge.
func (r *TempAssignmentRepo) DeleteExpired(cutoff model.Date) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.Exec(`DELETE FROM temp_assignments WHERE assignment_date < ?`, string(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func collectAssignments(rows *sql.Rows) ([]model.TempAssignment, error) {
	var result []model.TempAssignment
	for rows.Next() {
		var a model.TempAssignment
		var day, date string
		if err := rows.Scan(&a.ID, &a.TenantID, &a.CustomerID, &a.TechID, &day, &date, &a.CreatedAtNs); err != nil {
			return nil, fmt.Errorf("scan temp_assignment: %w", err)
		}
		a.ServiceDay = model.Weekday(day)
		a.AssignmentDate = model.Date(date)
		result = append(result, a)
	}
	return result, rows.Err()
}
