package service

import (
	"errors"
	"testing"
	"time"

	"github.com/routewise/routewise/internal/matrix"
	"github.com/routewise/routewise/internal/model"
	"github.com/routewise/routewise/internal/solver"
	"github.com/routewise/routewise/internal/store"
)

const testTenant = "tenant-a"

// testNow is a Monday.
var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func newTestCore(t *testing.T) *Core {
	t.Helper()

	st, err := store.Bootstrap(t.TempDir())
	if err != nil {
		t.Fatalf("bootstrap store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	core := NewCore(
		st,
		matrix.NewHaversineBackend(30),
		solver.New(100*time.Millisecond, 300*time.Millisecond),
		solver.NewPool(2),
	)
	core.Now = func() time.Time { return testNow }
	return core
}

// SF and Oakland depots, roughly 13 km apart.
var (
	sfDepot  = [2]float64{37.7749, -122.4194}
	oakDepot = [2]float64{37.8044, -122.2712}
)

func seedTestTech(t *testing.T, core *Core, id, name string, depot [2]float64, maxStops int) {
	t.Helper()
	tech := model.Tech{
		ID: id, TenantID: testTenant, Name: name, Color: "#336699",
		StartLat: depot[0], StartLng: depot[1],
		EndLat: depot[0], EndLng: depot[1],
		WorkStartMin: 480, WorkEndMin: 1020,
		MaxStopsPerDay: maxStops, EfficiencyMultiplier: 1.0, Active: true,
	}
	if err := core.Store.Fleet.UpsertTech(tech); err != nil {
		t.Fatalf("seed tech %s: %v", id, err)
	}
}

func seedTestCustomer(t *testing.T, core *Core, cust model.Customer) {
	t.Helper()
	if cust.TenantID == "" {
		cust.TenantID = testTenant
	}
	if cust.Name == "" {
		cust.Name = "Customer " + cust.ID
	}
	if cust.VisitDurationMin == 0 {
		cust.VisitDurationMin = 30
	}
	if cust.Difficulty == 0 {
		cust.Difficulty = 1
	}
	if cust.DaysPerWeek == 0 {
		cust.DaysPerWeek = 1
	}
	if cust.PrimaryDay == "" {
		cust.PrimaryDay = model.Monday
	}
	if cust.ServiceType == "" {
		cust.ServiceType = model.ServiceResidential
	}
	if cust.Status == "" {
		cust.Status = model.StatusActive
	}
	cust.Active = true
	if err := core.Store.Fleet.UpsertCustomer(cust); err != nil {
		t.Fatalf("seed customer %s: %v", cust.ID, err)
	}
}

func geocoded(id, techID string, lat, lng float64) model.Customer {
	return model.Customer{
		ID: id, AssignedTechID: techID,
		Lat: ptr(lat), Lng: ptr(lng),
		Address: id + " Street, San Francisco, CA, USA",
	}
}

func assertServiceErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("error type: got %T (%v), want *ServiceError", err, err)
	}
	if svcErr.Code != code {
		t.Fatalf("error code: got %q, want %q", svcErr.Code, code)
	}
}

func routeByTech(routes []RouteResult, techID string) *RouteResult {
	for i := range routes {
		if routes[i].TechID == techID {
			return &routes[i]
		}
	}
	return nil
}

func routeCustomerIDs(r RouteResult) []string {
	ids := make([]string, len(r.Stops))
	for i, s := range r.Stops {
		ids[i] = s.CustomerID
	}
	return ids
}

func containsID(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
