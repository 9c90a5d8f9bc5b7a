package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ServiceConfig configures the development booking service.
type ServiceConfig struct {
	Server struct {
		Address string `yaml:"address"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Desks struct {
		File                  string `yaml:"file"`
		ReloadIntervalSeconds int    `yaml:"reload_interval_seconds"`
	} `yaml:"desks"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`
}

// LoadService reads the booking service config (configs/deskservice.yaml when empty).
func LoadService(path string) (*ServiceConfig, error) {
	if path == "" {
		path = "configs/deskservice.yaml"
	}

	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = []byte(os.ExpandEnv(string(data)))

	var cfg ServiceConfig
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":5000"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/desks.db"
	}
	if cfg.Desks.File == "" {
		cfg.Desks.File = "configs/desks.yaml"
	}
	if cfg.Backup.Path == "" {
		cfg.Backup.Path = "data/backups"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *ServiceConfig) ReloadInterval() time.Duration {
	if c.Desks.ReloadIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Desks.ReloadIntervalSeconds) * time.Second
}

func (c *ServiceConfig) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}
