package service

import (
	"context"
	"testing"

	"github.com/routewise/routewise/internal/model"
)

var weekdaySet = []model.Weekday{model.Monday, model.Tuesday, model.Wednesday, model.Thursday, model.Friday}

func singleDay(id string, day model.Weekday, locked bool) model.Customer {
	return model.Customer{
		ID: id, PrimaryDay: day, DaysPerWeek: 1, Locked: locked,
	}
}

func TestBalanceDaysMovesUnlockedSingleDay(t *testing.T) {
	customers := []model.Customer{
		singleDay("a", model.Monday, false),
		singleDay("b", model.Monday, false),
		singleDay("c", model.Monday, false),
	}
	plan := balanceDays(customers, map[string]bool{"c": true}, weekdaySet)

	if !plan["a"][model.Monday] || !plan["b"][model.Monday] {
		t.Errorf("customers outside the unlocked set must keep their day, got %v", plan)
	}
	if plan["c"][model.Monday] {
		t.Errorf("unlocked customer should leave the overloaded day, got %v", plan["c"])
	}
	if !plan["c"][model.Tuesday] {
		t.Errorf("unlocked customer should land on the least-loaded day, got %v", plan["c"])
	}
}

func TestBalanceDaysLockedCustomerStays(t *testing.T) {
	customers := []model.Customer{
		singleDay("a", model.Monday, false),
		singleDay("b", model.Monday, true),
	}
	// Locked wins even when named in the unlocked set.
	plan := balanceDays(customers, map[string]bool{"b": true}, weekdaySet)
	if !plan["b"][model.Monday] {
		t.Errorf("locked customer must keep its day, got %v", plan["b"])
	}
}

func TestBalanceDaysKeepsBalancedInput(t *testing.T) {
	customers := make([]model.Customer, 0, len(weekdaySet))
	unlocked := make(map[string]bool, len(weekdaySet))
	for i, day := range weekdaySet {
		id := string(rune('a' + i))
		customers = append(customers, singleDay(id, day, false))
		unlocked[id] = true
	}
	plan := balanceDays(customers, unlocked, weekdaySet)
	// Every day carries one visit; no strictly lower day exists, so nothing
	// moves.
	for i, day := range weekdaySet {
		id := string(rune('a' + i))
		if !plan[id][day] {
			t.Errorf("customer %s should keep %s, got %v", id, day, plan[id])
		}
	}
}

func TestBalanceDaysMultiDayMinimizesVariance(t *testing.T) {
	multi := model.Customer{
		ID: "m", PrimaryDay: model.Monday, DaysPerWeek: 2, SchedulePattern: "MoTu",
	}
	customers := []model.Customer{
		singleDay("a1", model.Monday, true),
		singleDay("a2", model.Monday, true),
		singleDay("b1", model.Tuesday, true),
		singleDay("b2", model.Tuesday, true),
		multi,
	}
	plan := balanceDays(customers, map[string]bool{"m": true}, weekdaySet)

	got := plan["m"]
	if got[model.Monday] || got[model.Tuesday] {
		t.Errorf("multi-day customer should leave the loaded days, got %v", got)
	}
	if len(got) != 2 {
		t.Errorf("multi-day customer must keep %d days, got %v", 2, got)
	}
}

func TestCombinations(t *testing.T) {
	combos := combinations(weekdaySet, 2)
	if len(combos) != 10 {
		t.Fatalf("C(5,2): got %d, want 10", len(combos))
	}
	if combinations(weekdaySet, 0) != nil {
		t.Error("k=0 yields nothing")
	}
	if combinations(weekdaySet, 6) != nil {
		t.Error("k>n yields nothing")
	}
}

func TestOptimizeCrossDayRebalances(t *testing.T) {
	core := newTestCore(t)
	seedTestTech(t, core, "t1", "Alice", sfDepot, 10)
	seedTestCustomer(t, core, geocoded("c1", "t1", 37.78, -122.41))
	seedTestCustomer(t, core, geocoded("c2", "t1", 37.79, -122.43))
	seedTestCustomer(t, core, geocoded("c3", "t1", 37.77, -122.42))

	result, err := core.Optimize(context.Background(), testTenant, OptimizeRequest{
		Mode:                ModeCrossDay,
		UnlockedCustomerIDs: []string{"c3"},
	})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}

	days := make(map[model.Weekday]int)
	for _, r := range result.Routes {
		days[r.ServiceDay] += r.TotalCustomers
	}
	if days[model.Monday] != 2 {
		t.Errorf("monday customers: got %d, want 2", days[model.Monday])
	}
	if days[model.Tuesday] != 1 {
		t.Errorf("tuesday customers: got %d, want 1", days[model.Tuesday])
	}
	if len(result.Summary.Days) != 5 {
		t.Errorf("day set: got %v, want the five weekdays", result.Summary.Days)
	}
}

func TestOptimizeCrossDayWeekendFlags(t *testing.T) {
	core := newTestCore(t)
	seedTestTech(t, core, "t1", "Alice", sfDepot, 10)

	result, err := core.Optimize(context.Background(), testTenant, OptimizeRequest{
		Mode:            ModeCrossDay,
		IncludeSaturday: true,
		IncludeSunday:   true,
	})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if len(result.Summary.Days) != 7 {
		t.Errorf("day set with weekend flags: got %v, want all seven days", result.Summary.Days)
	}
}
