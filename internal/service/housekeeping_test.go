package service

import (
	"testing"

	"github.com/routewise/routewise/internal/model"
)

func TestPurgeExpiredTempAssignments(t *testing.T) {
	core := newTestCore(t)
	today := core.today()

	fresh := model.TempAssignment{
		ID: "a1", TenantID: testTenant, CustomerID: "c1", TechID: "t1",
		ServiceDay: model.Monday, AssignmentDate: today, CreatedAtNs: core.nowNs(),
	}
	stale := model.TempAssignment{
		ID: "a2", TenantID: testTenant, CustomerID: "c2", TechID: "t1",
		ServiceDay: model.Monday, AssignmentDate: today.AddDays(-(model.TempAssignmentTTLDays + 1)),
		CreatedAtNs: core.nowNs(),
	}
	for _, a := range []model.TempAssignment{fresh, stale} {
		if err := core.Store.TempAssignments.Upsert(a); err != nil {
			t.Fatalf("seed assignment %s: %v", a.ID, err)
		}
	}

	n, err := core.PurgeExpiredTempAssignments()
	if err != nil {
		t.Fatalf("PurgeExpiredTempAssignments: %v", err)
	}
	if n != 1 {
		t.Errorf("purged: got %d, want 1", n)
	}

	remaining, err := core.ListTempAssignments(testTenant)
	if err != nil {
		t.Fatalf("ListTempAssignments: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != "a1" {
		t.Errorf("remaining: got %+v, want only a1", remaining)
	}
}

func TestPurgeStaleRoutes(t *testing.T) {
	core := newTestCore(t)
	today := core.today()

	routes := []model.TechRoute{
		{
			ID: "r-fresh", TenantID: testTenant, TechID: "t1",
			ServiceDay: model.Monday, RouteDate: today,
		},
		{
			ID: "r-stale", TenantID: testTenant, TechID: "t1",
			ServiceDay: model.Monday, RouteDate: today.AddDays(-31),
		},
	}
	for _, r := range routes {
		if err := core.Store.Routes.UpsertRoute(r); err != nil {
			t.Fatalf("seed route %s: %v", r.ID, err)
		}
	}

	n, err := core.PurgeStaleRoutes(30)
	if err != nil {
		t.Fatalf("PurgeStaleRoutes: %v", err)
	}
	if n != 1 {
		t.Errorf("purged: got %d, want 1", n)
	}

	count, err := core.Store.Routes.CountRoutes(testTenant)
	if err != nil {
		t.Fatalf("CountRoutes: %v", err)
	}
	if count != 1 {
		t.Errorf("remaining routes: got %d, want 1", count)
	}
}

func TestNewHousekeeperRejectsBadSchedule(t *testing.T) {
	core := newTestCore(t)
	if _, err := NewHousekeeper(core, "not a cron line", 30); err == nil {
		t.Fatal("expected an error for an invalid schedule")
	}
}

func TestHousekeeperStartStop(t *testing.T) {
	core := newTestCore(t)
	h, err := NewHousekeeper(core, "30 3 * * *", 30)
	if err != nil {
		t.Fatalf("NewHousekeeper: %v", err)
	}
	h.Start()
	h.Stop()
	// Stop is idempotent.
	h.Stop()
}
