package service

import (
	"context"
	"testing"

	"github.com/routewise/routewise/internal/model"
)

func optimizeMonday(t *testing.T, core *Core) *OptimizeResult {
	t.Helper()
	result, err := core.Optimize(context.Background(), testTenant, OptimizeRequest{
		Mode:       ModeFullPerDay,
		ServiceDay: model.Monday,
	})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	return result
}

func TestSaveRoutesReplacesDay(t *testing.T) {
	core := newTestCore(t)
	seedTestTech(t, core, "t1", "Alice", sfDepot, 10)
	seedTestCustomer(t, core, geocoded("c1", "t1", 37.78, -122.41))
	seedTestCustomer(t, core, geocoded("c2", "t1", 37.79, -122.43))

	result := optimizeMonday(t, core)
	first, err := core.SaveRoutes(testTenant, model.Monday, result.Routes)
	if err != nil {
		t.Fatalf("SaveRoutes: %v", err)
	}
	second, err := core.SaveRoutes(testTenant, model.Monday, result.Routes)
	if err != nil {
		t.Fatalf("SaveRoutes again: %v", err)
	}
	if first[0] == second[0] {
		t.Error("a re-save must mint new route ids")
	}

	// The second save replaced the first; only one route remains.
	views, err := core.GetDayRoutes(context.Background(), testTenant, model.Monday, "")
	if err != nil {
		t.Fatalf("GetDayRoutes: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("routes after re-save: got %d, want 1", len(views))
	}
	if views[0].RouteID != second[0] {
		t.Errorf("surviving route: got %q, want %q", views[0].RouteID, second[0])
	}
}

func TestSaveRoutesUnknownTech(t *testing.T) {
	core := newTestCore(t)
	_, err := core.SaveRoutes(testTenant, model.Monday, []RouteResult{{TechID: "ghost"}})
	assertServiceErrorCode(t, err, "NOT_FOUND")
}

func TestGetDayRoutesMaterializesOnce(t *testing.T) {
	core := newTestCore(t)
	seedTestTech(t, core, "t1", "Alice", sfDepot, 10)
	seedTestCustomer(t, core, geocoded("c1", "t1", 37.78, -122.41))
	seedTestCustomer(t, core, geocoded("c2", "t1", 37.79, -122.43))

	views, err := core.GetDayRoutes(context.Background(), testTenant, model.Monday, "")
	if err != nil {
		t.Fatalf("GetDayRoutes: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("materialized routes: got %d, want 1", len(views))
	}
	if len(views[0].Stops) != 2 {
		t.Fatalf("stops: got %d, want 2", len(views[0].Stops))
	}
	if views[0].TechName != "Alice" {
		t.Errorf("tech_name: got %q, want %q", views[0].TechName, "Alice")
	}

	// A second read serves the persisted route; no re-solve, same id.
	again, err := core.GetDayRoutes(context.Background(), testTenant, model.Monday, "")
	if err != nil {
		t.Fatalf("GetDayRoutes again: %v", err)
	}
	if again[0].RouteID != views[0].RouteID {
		t.Errorf("route id changed between reads: %q vs %q", again[0].RouteID, views[0].RouteID)
	}
}

func TestGetDayRoutesTenantIsolation(t *testing.T) {
	core := newTestCore(t)
	seedTestTech(t, core, "t1", "Alice", sfDepot, 10)
	seedTestCustomer(t, core, geocoded("c1", "t1", 37.78, -122.41))

	views, err := core.GetDayRoutes(context.Background(), testTenant, model.Monday, "")
	if err != nil {
		t.Fatalf("GetDayRoutes: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("tenant-a routes: got %d, want 1", len(views))
	}

	other, err := core.GetDayRoutes(context.Background(), "tenant-b", model.Monday, "")
	if err != nil {
		t.Fatalf("GetDayRoutes tenant-b: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("tenant-b routes: got %d, want 0", len(other))
	}

	_, err = core.GetRouteDetail("tenant-b", views[0].RouteID)
	assertServiceErrorCode(t, err, "NOT_FOUND")
}

func TestReorderStopsIsIdempotent(t *testing.T) {
	core := newTestCore(t)
	seedTestTech(t, core, "t1", "Alice", sfDepot, 10)
	seedTestCustomer(t, core, geocoded("c1", "t1", 37.78, -122.41))
	seedTestCustomer(t, core, geocoded("c2", "t1", 37.79, -122.43))
	seedTestCustomer(t, core, geocoded("c3", "t1", 37.77, -122.42))

	views, err := core.GetDayRoutes(context.Background(), testTenant, model.Monday, "")
	if err != nil {
		t.Fatalf("GetDayRoutes: %v", err)
	}
	route := views[0]
	if len(route.Stops) != 3 {
		t.Fatalf("stops: got %d, want 3", len(route.Stops))
	}

	// Send the last stop to the front using a sparse sequence.
	orders := []StopOrder{{StopID: route.Stops[2].StopID, NewSequence: 0}}

	once, err := core.ReorderStops(testTenant, route.RouteID, orders)
	if err != nil {
		t.Fatalf("ReorderStops: %v", err)
	}
	twice, err := core.ReorderStops(testTenant, route.RouteID, orders)
	if err != nil {
		t.Fatalf("ReorderStops again: %v", err)
	}

	if once.Stops[0].CustomerID != route.Stops[2].CustomerID {
		t.Errorf("front stop: got %q, want %q", once.Stops[0].CustomerID, route.Stops[2].CustomerID)
	}
	for i := range once.Stops {
		if once.Stops[i].Sequence != i+1 {
			t.Errorf("stop %d: sequence %d, want %d", i, once.Stops[i].Sequence, i+1)
		}
		if once.Stops[i].CustomerID != twice.Stops[i].CustomerID {
			t.Errorf("reorder not idempotent at %d: %q vs %q", i, once.Stops[i].CustomerID, twice.Stops[i].CustomerID)
		}
	}
}

func TestReorderStopsUnknownStop(t *testing.T) {
	core := newTestCore(t)
	seedTestTech(t, core, "t1", "Alice", sfDepot, 10)
	seedTestCustomer(t, core, geocoded("c1", "t1", 37.78, -122.41))

	views, err := core.GetDayRoutes(context.Background(), testTenant, model.Monday, "")
	if err != nil {
		t.Fatalf("GetDayRoutes: %v", err)
	}
	_, err = core.ReorderStops(testTenant, views[0].RouteID, []StopOrder{{StopID: "ghost", NewSequence: 1}})
	assertServiceErrorCode(t, err, "NOT_FOUND")
}

func TestMoveStopBetweenRoutes(t *testing.T) {
	core := newTestCore(t)
	seedTestTech(t, core, "t1", "Alice", sfDepot, 10)
	seedTestTech(t, core, "t2", "Bob", oakDepot, 10)
	seedTestCustomer(t, core, geocoded("c1", "t1", 37.78, -122.41))
	seedTestCustomer(t, core, geocoded("c2", "t1", 37.79, -122.43))
	seedTestCustomer(t, core, geocoded("c3", "t2", 37.80, -122.27))

	views, err := core.GetDayRoutes(context.Background(), testTenant, model.Monday, "")
	if err != nil {
		t.Fatalf("GetDayRoutes: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("routes: got %d, want 2", len(views))
	}
	var t1View, t2View RouteView
	for _, v := range views {
		switch v.TechID {
		case "t1":
			t1View = v
		case "t2":
			t2View = v
		}
	}

	moved := t1View.Stops[0]
	source, target, err := core.MoveStop(testTenant, moved.StopID, t2View.RouteID, 1)
	if err != nil {
		t.Fatalf("MoveStop: %v", err)
	}

	if len(source.Stops) != len(t1View.Stops)-1 {
		t.Errorf("source stops: got %d, want %d", len(source.Stops), len(t1View.Stops)-1)
	}
	if len(target.Stops) != len(t2View.Stops)+1 {
		t.Errorf("target stops: got %d, want %d", len(target.Stops), len(t2View.Stops)+1)
	}
	if target.Stops[0].StopID != moved.StopID {
		t.Errorf("moved stop should lead the target route, got %q", target.Stops[0].StopID)
	}
	for _, v := range []*RouteView{source, target} {
		for i, s := range v.Stops {
			if s.Sequence != i+1 {
				t.Errorf("route %s stop %d: sequence %d, want %d", v.RouteID, i, s.Sequence, i+1)
			}
		}
	}
}

func TestMoveStopClampsSequence(t *testing.T) {
	core := newTestCore(t)
	seedTestTech(t, core, "t1", "Alice", sfDepot, 10)
	seedTestCustomer(t, core, geocoded("c1", "t1", 37.78, -122.41))
	seedTestCustomer(t, core, geocoded("c2", "t1", 37.79, -122.43))

	views, err := core.GetDayRoutes(context.Background(), testTenant, model.Monday, "")
	if err != nil {
		t.Fatalf("GetDayRoutes: %v", err)
	}
	route := views[0]

	// Same-route move with an absurd target sequence lands at the end.
	_, target, err := core.MoveStop(testTenant, route.Stops[0].StopID, route.RouteID, 99)
	if err != nil {
		t.Fatalf("MoveStop: %v", err)
	}
	last := target.Stops[len(target.Stops)-1]
	if last.StopID != route.Stops[0].StopID {
		t.Errorf("stop should land last, got order %+v", target.Stops)
	}
}

func TestDeleteDayRoutes(t *testing.T) {
	core := newTestCore(t)
	seedTestTech(t, core, "t1", "Alice", sfDepot, 10)
	seedTestCustomer(t, core, geocoded("c1", "t1", 37.78, -122.41))

	if _, err := core.GetDayRoutes(context.Background(), testTenant, model.Monday, ""); err != nil {
		t.Fatalf("GetDayRoutes: %v", err)
	}
	n, err := core.DeleteDayRoutes(testTenant, model.Monday)
	if err != nil {
		t.Fatalf("DeleteDayRoutes: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted: got %d, want 1", n)
	}
}
