// Package model defines domain structs shared across the persistence layer
// and the optimization core.
package model

import (
	"github.com/routewise/routewise/internal/geo"
)

// ServiceType distinguishes residential and commercial customers.
type ServiceType string

const (
	ServiceResidential ServiceType = "residential"
	ServiceCommercial  ServiceType = "commercial"
)

// IsValid reports whether s is a known service type.
func (s ServiceType) IsValid() bool {
	return s == ServiceResidential || s == ServiceCommercial
}

// CustomerStatus is the lifecycle status of a customer record.
type CustomerStatus string

const (
	StatusPending  CustomerStatus = "pending"
	StatusActive   CustomerStatus = "active"
	StatusInactive CustomerStatus = "inactive"
)

// IsValid reports whether s is a known customer status.
func (s CustomerStatus) IsValid() bool {
	return s == StatusPending || s == StatusActive || s == StatusInactive
}

// Tech is a technician/vehicle in the fleet. Read model: CRUD happens
// upstream; the core only reads.
type Tech struct {
	ID                   string  `json:"id"`
	TenantID             string  `json:"tenant_id"`
	Name                 string  `json:"name"`
	Color                string  `json:"color"`
	StartLat             float64 `json:"start_lat"`
	StartLng             float64 `json:"start_lng"`
	EndLat               float64 `json:"end_lat"`
	EndLng               float64 `json:"end_lng"`
	WorkStartMin         int     `json:"work_start_min"`
	WorkEndMin           int     `json:"work_end_min"`
	MaxStopsPerDay       int     `json:"max_stops_per_day"`
	EfficiencyMultiplier float64 `json:"efficiency_multiplier"`
	Active               bool    `json:"active"`
}

// StartPoint returns the tech's route start depot.
func (t Tech) StartPoint() geo.Point {
	return geo.Point{Lat: t.StartLat, Lng: t.StartLng}
}

// EndPoint returns the tech's route end depot. May equal StartPoint.
func (t Tech) EndPoint() geo.Point {
	return geo.Point{Lat: t.EndLat, Lng: t.EndLng}
}

// SameDepot reports whether the tech starts and ends at the same location.
func (t Tech) SameDepot() bool {
	return t.StartPoint().Equal(t.EndPoint())
}

// StopCapacity is the per-day stop capacity used by the capacity dimension:
// floor(max_stops_per_day * efficiency_multiplier).
func (t Tech) StopCapacity() int {
	c := int(float64(t.MaxStopsPerDay) * t.EfficiencyMultiplier)
	if c < 1 {
		c = 1
	}
	return c
}

// Customer is a service location. Read model: CRUD happens upstream.
// Lat/Lng are nil when the address has not been geocoded yet; such
// customers are excluded from solves and surfaced in skipped lists.
type Customer struct {
	ID               string         `json:"id"`
	TenantID         string         `json:"tenant_id"`
	Name             string         `json:"name"`
	Address          string         `json:"address"`
	Lat              *float64       `json:"lat"`
	Lng              *float64       `json:"lng"`
	ServiceType      ServiceType    `json:"service_type"`
	VisitDurationMin int            `json:"visit_duration_min"`
	Difficulty       int            `json:"difficulty"`
	PrimaryDay       Weekday        `json:"primary_day"`
	DaysPerWeek      int            `json:"days_per_week"`
	SchedulePattern  string         `json:"schedule_pattern"`
	Locked           bool           `json:"locked"`
	TimeWindowStart  *int           `json:"tw_start_min"`
	TimeWindowEnd    *int           `json:"tw_end_min"`
	AssignedTechID   string         `json:"assigned_tech_id"`
	Active           bool           `json:"active"`
	Status           CustomerStatus `json:"status"`
}

// HasCoordinates reports whether the customer has been geocoded.
func (c Customer) HasCoordinates() bool {
	return c.Lat != nil && c.Lng != nil
}

// Point returns the customer location. Only valid when HasCoordinates.
func (c Customer) Point() geo.Point {
	return geo.Point{Lat: *c.Lat, Lng: *c.Lng}
}

// EffectiveServiceMin is the contract service duration:
// visit_duration_min + 5 * max(0, difficulty-1).
func (c Customer) EffectiveServiceMin() int {
	extra := c.Difficulty - 1
	if extra < 0 {
		extra = 0
	}
	return c.VisitDurationMin + 5*extra
}

// RouteStop is one entry of a TechRoute's ordered stop list. Stops live
// inside their owning route row (no separate stop table); StopID exists so
// reorder/move operations can address individual stops.
type RouteStop struct {
	StopID     string `json:"stop_id"`
	CustomerID string `json:"customer_id"`
	Sequence   int    `json:"sequence"`
	ServiceMin int    `json:"service_min"`
}

// TechRoute is a persisted per-tech per-day stop sequence with aggregate
// metrics. Unique per (tenant, tech, service_day, route_date).
type TechRoute struct {
	ID                 string      `json:"id"`
	TenantID           string      `json:"tenant_id"`
	TechID             string      `json:"tech_id"`
	ServiceDay         Weekday     `json:"service_day"`
	RouteDate          Date        `json:"route_date"`
	Stops              []RouteStop `json:"stops"`
	TotalDistanceMiles float64     `json:"total_distance_miles"`
	TotalDurationMin   int         `json:"total_duration_minutes"`
	CreatedAtNs        int64       `json:"created_at_ns"`
	UpdatedAtNs        int64       `json:"updated_at_ns"`
}

// StopCustomerIDs returns the customer ids in stop order.
func (r TechRoute) StopCustomerIDs() []string {
	ids := make([]string, len(r.Stops))
	for i, s := range r.Stops {
		ids[i] = s.CustomerID
	}
	return ids
}

// Resequence renumbers stops densely 1..n in slice order.
func (r *TechRoute) Resequence() {
	for i := range r.Stops {
		r.Stops[i].Sequence = i + 1
	}
}

// TempAssignment is a day-scoped customer→tech override. Unique per
// (tenant, customer, service_day, assignment_date); expires when
// assignment_date < today-6d.
type TempAssignment struct {
	ID             string  `json:"id"`
	TenantID       string  `json:"tenant_id"`
	CustomerID     string  `json:"customer_id"`
	TechID         string  `json:"tech_id"`
	ServiceDay     Weekday `json:"service_day"`
	AssignmentDate Date    `json:"assignment_date"`
	CreatedAtNs    int64   `json:"created_at_ns"`
}

// TempAssignmentTTLDays is the age in days past which a temp assignment
// stops being effective and is purged.
const TempAssignmentTTLDays = 6

// Expired reports whether the assignment is past its TTL relative to today.
func (a TempAssignment) Expired(today Date) bool {
	return a.AssignmentDate.Before(today.AddDays(-TempAssignmentTTLDays))
}
