package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DeskConfig is one desk seeded into the booking service.
type DeskConfig struct {
	ID       int64  `yaml:"id"`
	Name     string `yaml:"name"`
	IsActive *bool  `yaml:"is_active,omitempty"`
}

// Active reports whether the desk should be listed; desks are active unless disabled.
func (d DeskConfig) Active() bool {
	return d.IsActive == nil || *d.IsActive
}

// DesksConfig is the root of desks.yaml.
type DesksConfig struct {
	Desks []DeskConfig `yaml:"desks"`
}

// LoadDesksConfig loads and validates desks.yaml.
func LoadDesksConfig(path string) (*DesksConfig, error) {
	if path == "" {
		path = defaultDesksFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read desks config: %w", err)
	}

	var cfg DesksConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse desks config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate desks config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *DesksConfig) Validate() error {
	if len(c.Desks) == 0 {
		return fmt.Errorf("no desks defined")
	}

	ids := make(map[int64]bool)
	names := make(map[string]bool)

	for i, desk := range c.Desks {
		if desk.ID <= 0 {
			return fmt.Errorf("desk[%d]: id must be positive, got %d", i, desk.ID)
		}
		if ids[desk.ID] {
			return fmt.Errorf("desk[%d]: duplicate id %d", i, desk.ID)
		}
		ids[desk.ID] = true

		if desk.Name == "" {
			return fmt.Errorf("desk[%d]: name is required", i)
		}
		if names[desk.Name] {
			return fmt.Errorf("desk[%d]: duplicate name '%s'", i, desk.Name)
		}
		names[desk.Name] = true
	}

	return nil
}
