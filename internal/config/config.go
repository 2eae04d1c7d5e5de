// Package config loads server configuration from environment variables and
// optional multiplier table overrides from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/fairbet-labs/plinko-engine/internal/games"
)

// Config holds every tunable of the server process.
type Config struct {
	// Addr is the listen address of the HTTP server.
	Addr string `env:"PLINKO_ADDR" envDefault:":8080"`

	// Store selects the persistence backend, "memory" or "sqlite".
	Store string `env:"PLINKO_STORE" envDefault:"memory"`

	// SQLitePath is the database file used when Store is "sqlite".
	SQLitePath string `env:"PLINKO_SQLITE_PATH" envDefault:"plinko.db"`

	// RequestTimeout bounds every in-flight request.
	RequestTimeout time.Duration `env:"PLINKO_REQUEST_TIMEOUT" envDefault:"30s"`

	// TablesPath optionally points at a YAML file replacing the embedded
	// multiplier tables.
	TablesPath string `env:"PLINKO_TABLES_PATH"`

	// DemoUser and DemoBalance seed a starter account on boot.
	DemoUser    string `env:"PLINKO_DEMO_USER" envDefault:"demo"`
	DemoBalance string `env:"PLINKO_DEMO_BALANCE" envDefault:"1000"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	switch cfg.Store {
	case "memory", "sqlite":
	default:
		return Config{}, fmt.Errorf("unknown store %q (want memory or sqlite)", cfg.Store)
	}

	return cfg, nil
}

// tableFile is the YAML shape of a multiplier override: risk name to row count
// to multiplier list.
type tableFile struct {
	Tables map[string]map[string][]float64 `yaml:"tables"`
}

// ApplyTableOverride replaces the embedded multiplier tables with the contents
// of the YAML file at path. The override must pass the same structural checks
// as the embedded tables.
func ApplyTableOverride(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read tables file: %w", err)
	}

	var file tableFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse tables file: %w", err)
	}
	if len(file.Tables) == 0 {
		return fmt.Errorf("tables file %s has no tables key", path)
	}

	if err := games.OverrideTables(file.Tables); err != nil {
		return fmt.Errorf("apply tables from %s: %w", path, err)
	}
	return nil
}
