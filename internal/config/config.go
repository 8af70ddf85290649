package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/BrandonDHaskell/Custos/server/internal/custos/service"
	"github.com/BrandonDHaskell/Custos/server/internal/custos/types"
)

// EnvPrefix marks environment overrides: CUSTOS_HTTP_ADDR -> http_addr.
const EnvPrefix = "CUSTOS_"

type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreSQLite StoreKind = "sqlite"
)

type ClockMode string

const (
	// ClockObserved takes logical time only from callers.
	ClockObserved ClockMode = "observed"
	// ClockWall also advances logical time to the current Unix second.
	ClockWall ClockMode = "wall"
)

// Config corresponds to custos.yml.
type Config struct {
	HTTPAddr string `yaml:"http_addr" koanf:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr" koanf:"grpc_addr"`

	// DB
	Env    string    `yaml:"env" koanf:"env"` // "dev" | "prod"
	Store  StoreKind `yaml:"store" koanf:"store"`
	DBPath string    `yaml:"db_path" koanf:"db_path"`

	// MaintenanceIntervalHours spaces sqlite WAL checkpoints.  0 disables.
	MaintenanceIntervalHours int `yaml:"maintenance_interval_hours" koanf:"maintenance_interval_hours"`

	// Ledger
	Admin              string                   `yaml:"admin" koanf:"admin"`
	MaxRecordsPerOwner int                      `yaml:"max_records_per_owner" koanf:"max_records_per_owner"`
	MaxGrantsPerRecord uint64                   `yaml:"max_grants_per_record" koanf:"max_grants_per_record"`
	AuditEnabled       bool                     `yaml:"audit_enabled" koanf:"audit_enabled"`
	GroupAccess        service.GroupAccessMode  `yaml:"group_access" koanf:"group_access"`
	OwnerBinding       service.OwnerBindingMode `yaml:"owner_binding" koanf:"owner_binding"`
	Clock              ClockMode                `yaml:"clock" koanf:"clock"`
}

func DefaultConfig() *Config {
	return &Config{
		HTTPAddr: ":8080",
		GRPCAddr: ":9090",
		Env:      "dev",
		Store:    StoreSQLite,
		DBPath:   "./data/custos.db",

		MaintenanceIntervalHours: 6,

		MaxRecordsPerOwner: service.DefaultMaxRecordsPerOwner,
		MaxGrantsPerRecord: service.DefaultMaxGrantsPerRecord,
		AuditEnabled:       true,
		GroupAccess:        service.GroupAccessProxy,
		OwnerBinding:       service.OwnerBindingOpen,
		Clock:              ClockObserved,
	}
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (CUSTOS_*).  A missing file is not an
// error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.Env = strings.ToLower(cfg.Env)
	if cfg.Env != "dev" && cfg.Env != "prod" {
		// fail-soft: treat unknown as dev
		cfg.Env = "dev"
	}
	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" && c.GRPCAddr == "" {
		return fmt.Errorf("at least one of http_addr, grpc_addr is required")
	}

	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("db_path is required for the sqlite store")
		}
	default:
		return fmt.Errorf("invalid store %q: must be one of memory, sqlite", c.Store)
	}

	if c.MaintenanceIntervalHours < 0 {
		return fmt.Errorf("maintenance_interval_hours must not be negative")
	}

	if c.MaxRecordsPerOwner < 1 {
		return fmt.Errorf("max_records_per_owner must be positive")
	}
	if c.MaxGrantsPerRecord < 1 {
		return fmt.Errorf("max_grants_per_record must be positive")
	}

	switch c.GroupAccess {
	case service.GroupAccessProxy, service.GroupAccessMembers:
	default:
		return fmt.Errorf("invalid group_access %q: must be one of proxy, members", c.GroupAccess)
	}

	switch c.OwnerBinding {
	case service.OwnerBindingOpen, service.OwnerBindingSubject:
	default:
		return fmt.Errorf("invalid owner_binding %q: must be one of open, subject", c.OwnerBinding)
	}

	switch c.Clock {
	case ClockObserved, ClockWall:
	default:
		return fmt.Errorf("invalid clock %q: must be one of observed, wall", c.Clock)
	}

	return nil
}

func (c *Config) Policy() service.Policy {
	return service.Policy{
		MaxRecordsPerOwner: c.MaxRecordsPerOwner,
		MaxGrantsPerRecord: c.MaxGrantsPerRecord,
		AuditEnabled:       c.AuditEnabled,
		GroupAccess:        c.GroupAccess,
		OwnerBinding:       c.OwnerBinding,
		WallClock:          c.Clock == ClockWall,
	}
}

func (c *Config) MaintenanceInterval() time.Duration {
	return time.Duration(c.MaintenanceIntervalHours) * time.Hour
}

func (c *Config) AdminPrincipal() types.PrincipalID {
	return types.PrincipalID(strings.TrimSpace(c.Admin))
}
