// Package configs loads the plan catalog seeded into Firestore.
package configs

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"rentshare-backend-go/internal/models"
)

// PlanCatalog is the YAML document listing the purchasable and free plans.
type PlanCatalog struct {
	Currency string      `yaml:"currency"`
	Plans    []PlanEntry `yaml:"plans"`
}

// PlanEntry is one plan in the catalog.
type PlanEntry struct {
	ID           string  `yaml:"id"`
	Name         string  `yaml:"name"`
	Type         string  `yaml:"type"`
	Price        float64 `yaml:"price"`
	ListLimit    int     `yaml:"list_limit"`
	RentLimit    int     `yaml:"rent_limit"`
	DurationDays int     `yaml:"duration_days"`
}

// LoadPlanCatalog reads the catalog at path, or at PATH_CONFIG when path is empty.
func LoadPlanCatalog(path string) (*PlanCatalog, error) {
	if path == "" {
		path = os.Getenv("PATH_CONFIG")
	}
	if path == "" {
		path = "configs/plans.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan catalog: %w", err)
	}
	return ParsePlanCatalog(data)
}

// ParsePlanCatalog decodes and validates a catalog document.
func ParsePlanCatalog(data []byte) (*PlanCatalog, error) {
	var cat PlanCatalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("decode plan catalog: %w", err)
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Validate enforces one free plan, unique ids and sane limits.
func (c *PlanCatalog) Validate() error {
	if len(c.Plans) == 0 {
		return errors.New("plan catalog is empty")
	}
	seen := make(map[string]bool, len(c.Plans))
	free := 0
	for _, p := range c.Plans {
		if p.ID == "" {
			return errors.New("plan without id")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate plan id %q", p.ID)
		}
		seen[p.ID] = true
		switch p.Type {
		case models.PlanTypeFree:
			free++
			if p.Price != 0 {
				return fmt.Errorf("free plan %q has a price", p.ID)
			}
		case models.PlanTypeBasic, models.PlanTypePremium:
			if p.Price <= 0 || p.DurationDays <= 0 {
				return fmt.Errorf("paid plan %q needs a price and a duration", p.ID)
			}
		default:
			return fmt.Errorf("plan %q has unknown type %q", p.ID, p.Type)
		}
		if p.ListLimit < 0 || p.RentLimit < 0 {
			return fmt.Errorf("plan %q has a negative limit", p.ID)
		}
	}
	if free != 1 {
		return fmt.Errorf("plan catalog needs exactly one free plan, found %d", free)
	}
	return nil
}

// Models converts the catalog entries into plan documents.
func (c *PlanCatalog) Models() []*models.Plan {
	out := make([]*models.Plan, 0, len(c.Plans))
	for _, p := range c.Plans {
		out = append(out, &models.Plan{
			ID:           p.ID,
			Name:         p.Name,
			PlanType:     p.Type,
			Price:        p.Price,
			Currency:     c.Currency,
			ListLimit:    p.ListLimit,
			RentLimit:    p.RentLimit,
			DurationDays: p.DurationDays,
		})
	}
	return out
}
