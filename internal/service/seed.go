package service

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/routewise/routewise/internal/model"
)

// seedFile is the YAML shape for bootstrapping the fleet read model in dev
// and test environments. Production deployments sync these tables from the
// upstream CRM instead.
type seedFile struct {
	Tenants []seedTenant `yaml:"tenants" validate:"required,dive"`
}

type seedTenant struct {
	ID        string         `yaml:"id" validate:"required"`
	Techs     []seedTech     `yaml:"techs" validate:"dive"`
	Customers []seedCustomer `yaml:"customers" validate:"dive"`
}

type seedTech struct {
	ID                   string  `yaml:"id" validate:"required"`
	Name                 string  `yaml:"name" validate:"required"`
	Color                string  `yaml:"color"`
	StartLat             float64 `yaml:"start_lat" validate:"latitude"`
	StartLng             float64 `yaml:"start_lng" validate:"longitude"`
	EndLat               float64 `yaml:"end_lat" validate:"latitude"`
	EndLng               float64 `yaml:"end_lng" validate:"longitude"`
	WorkStartMin         int     `yaml:"work_start_min" validate:"gte=0,lt=1440"`
	WorkEndMin           int     `yaml:"work_end_min" validate:"gtfield=WorkStartMin,lte=1440"`
	MaxStopsPerDay       int     `yaml:"max_stops_per_day" validate:"gte=1"`
	EfficiencyMultiplier float64 `yaml:"efficiency_multiplier" validate:"gt=0"`
	Active               *bool   `yaml:"active"`
}

type seedCustomer struct {
	ID               string   `yaml:"id" validate:"required"`
	Name             string   `yaml:"name" validate:"required"`
	Address          string   `yaml:"address"`
	Lat              *float64 `yaml:"lat" validate:"omitempty,latitude"`
	Lng              *float64 `yaml:"lng" validate:"omitempty,longitude"`
	ServiceType      string   `yaml:"service_type" validate:"omitempty,oneof=residential commercial"`
	VisitDurationMin int      `yaml:"visit_duration_min" validate:"gte=1"`
	Difficulty       int      `yaml:"difficulty" validate:"gte=1,lte=5"`
	PrimaryDay       string   `yaml:"primary_day" validate:"required"`
	DaysPerWeek      int      `yaml:"days_per_week" validate:"gte=1,lte=3"`
	SchedulePattern  string   `yaml:"schedule_pattern"`
	Locked           bool     `yaml:"locked"`
	TimeWindowStart  *int     `yaml:"tw_start_min"`
	TimeWindowEnd    *int     `yaml:"tw_end_min"`
	AssignedTechID   string   `yaml:"assigned_tech_id"`
	Active           *bool    `yaml:"active"`
	Status           string   `yaml:"status" validate:"omitempty,oneof=pending active inactive"`
}

// LoadSeedFile reads a YAML fleet seed and upserts its tenants' techs and
// customers. Idempotent: reloading the same file changes nothing.
func (c *Core) LoadSeedFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("seed: read %s: %w", path, err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("seed: parse %s: %w", path, err)
	}
	if err := validator.New().Struct(&seed); err != nil {
		return fmt.Errorf("seed: validate %s: %w", path, err)
	}

	techCount, custCount := 0, 0
	for _, tenant := range seed.Tenants {
		for _, st := range tenant.Techs {
			tech, err := st.toModel(tenant.ID)
			if err != nil {
				return fmt.Errorf("seed: tech %s: %w", st.ID, err)
			}
			if err := c.Store.Fleet.UpsertTech(tech); err != nil {
				return fmt.Errorf("seed: upsert tech %s: %w", st.ID, err)
			}
			techCount++
		}
		for _, sc := range tenant.Customers {
			cust, err := sc.toModel(tenant.ID)
			if err != nil {
				return fmt.Errorf("seed: customer %s: %w", sc.ID, err)
			}
			if err := c.Store.Fleet.UpsertCustomer(cust); err != nil {
				return fmt.Errorf("seed: upsert customer %s: %w", sc.ID, err)
			}
			custCount++
		}
	}

	log.Printf("[seed] loaded %d techs and %d customers from %s", techCount, custCount, path)
	return nil
}

func (s seedTech) toModel(tenantID string) (model.Tech, error) {
	active := true
	if s.Active != nil {
		active = *s.Active
	}
	return model.Tech{
		ID:                   s.ID,
		TenantID:             tenantID,
		Name:                 s.Name,
		Color:                s.Color,
		StartLat:             s.StartLat,
		StartLng:             s.StartLng,
		EndLat:               s.EndLat,
		EndLng:               s.EndLng,
		WorkStartMin:         s.WorkStartMin,
		WorkEndMin:           s.WorkEndMin,
		MaxStopsPerDay:       s.MaxStopsPerDay,
		EfficiencyMultiplier: s.EfficiencyMultiplier,
		Active:               active,
	}, nil
}

func (s seedCustomer) toModel(tenantID string) (model.Customer, error) {
	day, err := model.ParseWeekday(s.PrimaryDay)
	if err != nil {
		return model.Customer{}, err
	}
	if s.DaysPerWeek > 1 && s.SchedulePattern == "" {
		return model.Customer{}, fmt.Errorf("days_per_week %d requires schedule_pattern", s.DaysPerWeek)
	}

	serviceType := model.ServiceType(s.ServiceType)
	if serviceType == "" {
		serviceType = model.ServiceResidential
	}
	status := model.CustomerStatus(s.Status)
	if status == "" {
		status = model.StatusActive
	}
	active := true
	if s.Active != nil {
		active = *s.Active
	}

	return model.Customer{
		ID:               s.ID,
		TenantID:         tenantID,
		Name:             s.Name,
		Address:          s.Address,
		Lat:              s.Lat,
		Lng:              s.Lng,
		ServiceType:      serviceType,
		VisitDurationMin: s.VisitDurationMin,
		Difficulty:       s.Difficulty,
		PrimaryDay:       day,
		DaysPerWeek:      s.DaysPerWeek,
		SchedulePattern:  s.SchedulePattern,
		Locked:           s.Locked,
		TimeWindowStart:  s.TimeWindowStart,
		TimeWindowEnd:    s.TimeWindowEnd,
		AssignedTechID:   s.AssignedTechID,
		Active:           active,
		Status:           status,
	}, nil
}
