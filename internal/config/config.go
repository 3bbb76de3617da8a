// Package config loads process settings from the environment and the energy
// constants from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/vitaup/vitacore/internal/service"
)

const (
	StorageSQLite   = "sqlite"
	StorageSupabase = "supabase"
)

type Config struct {
	UserID   string `env:"VITA_USER_ID,default=local"`
	Storage  string `env:"VITA_STORAGE,default=sqlite"`
	DBPath   string `env:"VITA_DB_PATH"`
	Timezone string `env:"VITA_TIMEZONE"`

	SupabaseURL string `env:"SUPABASE_URL"`
	SupabaseKey string `env:"SUPABASE_SERVICE_KEY"`

	USDAAPIKey       string  `env:"USDA_API_KEY"`
	UPCItemDBKey     string  `env:"UPCITEMDB_API_KEY"`
	UPCItemDBKeyType string  `env:"UPCITEMDB_KEY_TYPE,default=3scale"`
	ProviderRPS      float64 `env:"VITA_PROVIDER_RPS,default=5"`
	ProviderBurst    int     `env:"VITA_PROVIDER_BURST,default=2"`

	VisionURL string `env:"VITA_VISION_URL"`
	VisionKey string `env:"VITA_VISION_KEY"`
	CoachURL  string `env:"VITA_COACH_URL"`
	CoachKey  string `env:"VITA_COACH_KEY"`

	EnergyFile string `env:"VITA_ENERGY_FILE"`
	MaxGlasses int    `env:"VITA_MAX_GLASSES,default=8"`

	ListenAddr string `env:"VITA_LISTEN_ADDR,default=:8080"`
	LogLevel   string `env:"VITA_LOG_LEVEL,default=info"`
	LogJSON    bool   `env:"VITA_LOG_JSON,default=false"`
}

// Load reads envFile when it exists and then decodes the environment.
func Load(envFile string, log *zap.Logger) (Config, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Debug("no env file loaded, using process environment", zap.String("path", envFile))
		}
	}
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	cfg.Storage = strings.ToLower(strings.TrimSpace(cfg.Storage))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage {
	case "", StorageSQLite:
	case StorageSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("supabase storage needs SUPABASE_URL and SUPABASE_SERVICE_KEY")
		}
	default:
		return fmt.Errorf("unsupported storage %q (expected sqlite or supabase)", c.Storage)
	}
	if c.ProviderRPS < 0 {
		return fmt.Errorf("VITA_PROVIDER_RPS must be >= 0")
	}
	if c.MaxGlasses < 0 {
		return fmt.Errorf("VITA_MAX_GLASSES must be >= 0")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the timezone used for calendar days. Empty means the
// machine's local zone.
func (c Config) Location() (*time.Location, error) {
	if strings.TrimSpace(c.Timezone) == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(strings.TrimSpace(c.Timezone))
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// LoadEnergyConfig overlays the YAML file at path on the default constants.
// An empty path returns the defaults.
func LoadEnergyConfig(path string) (service.EnergyConfig, error) {
	cfg := service.DefaultEnergyConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return service.EnergyConfig{}, fmt.Errorf("read energy config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return service.EnergyConfig{}, fmt.Errorf("parse energy config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return service.EnergyConfig{}, fmt.Errorf("energy config %s: %w", path, err)
	}
	return cfg, nil
}
