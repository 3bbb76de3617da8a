// Package app builds the runtime collaborators from a loaded Config.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vitaup/vitacore/internal/config"
	"github.com/vitaup/vitacore/internal/db"
	"github.com/vitaup/vitacore/internal/journal"
	"github.com/vitaup/vitacore/internal/metrics"
	"github.com/vitaup/vitacore/internal/provider/llm"
	"github.com/vitaup/vitacore/internal/provider/openfoodfacts"
	"github.com/vitaup/vitacore/internal/provider/upcitemdb"
	"github.com/vitaup/vitacore/internal/provider/usda"
	"github.com/vitaup/vitacore/internal/provider/vision"
	"github.com/vitaup/vitacore/internal/rowstore"
	"github.com/vitaup/vitacore/internal/service"
)

const providerTimeout = 12 * time.Second

type Runtime struct {
	Config     config.Config
	Location   *time.Location
	DB         *sql.DB
	Journal    *journal.Journal
	Engine     *service.Engine
	Cache      *service.FoodCache
	Finder     *service.Finder
	Coach      *service.Coach
	MaxGlasses int
	UserID     string
	CoachTone  string
	Log        *zap.Logger
}

// Open opens the local database, applies migrations and wires every
// collaborator. Settings stored with `config set` override the environment.
func Open(ctx context.Context, cfg config.Config, log *zap.Logger) (*Runtime, error) {
	if log == nil {
		log = zap.NewNop()
	}
	path := cfg.DBPath
	if path == "" {
		p, err := db.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg.DBPath = path
	sqldb, err := db.OpenMigrated(path)
	if err != nil {
		return nil, err
	}
	rt, err := build(ctx, cfg, sqldb, log)
	if err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return rt, nil
}

func build(ctx context.Context, cfg config.Config, sqldb *sql.DB, log *zap.Logger) (*Runtime, error) {
	stored, err := service.ListConfig(ctx, sqldb)
	if err != nil {
		return nil, err
	}
	applyStoredSettings(&cfg, stored)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	energyCfg, err := config.LoadEnergyConfig(cfg.EnergyFile)
	if err != nil {
		return nil, err
	}
	engine, err := service.NewEngine(energyCfg, log.Named("energy"))
	if err != nil {
		return nil, err
	}
	store, err := newStore(cfg, sqldb)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: providerTimeout}
	fcfg := service.FinderConfig{
		OpenFoodFacts:     &openfoodfacts.Client{HTTPClient: httpClient},
		BarcodeOrder:      service.ParseProviderList(stored[service.ConfigBarcodeOrder]),
		SearchProviders:   service.ParseProviderList(stored[service.ConfigSearchProviders]),
		RequestsPerSecond: cfg.ProviderRPS,
		Burst:             cfg.ProviderBurst,
	}
	if cfg.USDAAPIKey != "" {
		fcfg.USDA = &usda.Client{APIKey: cfg.USDAAPIKey, HTTPClient: httpClient}
	} else {
		log.Debug("USDA_API_KEY not set, usda provider disabled")
	}
	fcfg.UPCItemDB = &upcitemdb.Client{APIKey: cfg.UPCItemDBKey, APIKeyType: cfg.UPCItemDBKeyType, HTTPClient: httpClient}
	if cfg.VisionURL != "" {
		fcfg.Vision = &vision.Client{BaseURL: cfg.VisionURL, APIKey: cfg.VisionKey, HTTPClient: &http.Client{Timeout: 60 * time.Second}}
	}
	cache := service.NewFoodCache(sqldb)
	finder := service.NewFinder(fcfg, cache, log.Named("lookup"), metrics.Recorder{})

	var coachClient *llm.Client
	if cfg.CoachURL != "" {
		coachClient = &llm.Client{BaseURL: cfg.CoachURL, APIKey: cfg.CoachKey, HTTPClient: &http.Client{Timeout: 60 * time.Second}}
	}

	return &Runtime{
		Config:     cfg,
		Location:   loc,
		DB:         sqldb,
		Journal:    journal.New(store),
		Engine:     engine,
		Cache:      cache,
		Finder:     finder,
		Coach:      service.NewCoach(coachClient, log.Named("coach"), metrics.Recorder{}),
		MaxGlasses: cfg.MaxGlasses,
		UserID:     cfg.UserID,
		CoachTone:  stored[service.ConfigCoachTone],
		Log:        log,
	}, nil
}

func newStore(cfg config.Config, sqldb *sql.DB) (rowstore.Store, error) {
	switch cfg.Storage {
	case config.StorageSupabase:
		return rowstore.NewSupabase(rowstore.SupabaseConfig{URL: cfg.SupabaseURL, APIKey: cfg.SupabaseKey})
	case "", config.StorageSQLite:
		return rowstore.NewSQLite(sqldb), nil
	default:
		return nil, fmt.Errorf("unsupported storage %q", cfg.Storage)
	}
}

func applyStoredSettings(cfg *config.Config, stored map[string]string) {
	if v := strings.TrimSpace(stored[service.ConfigUserID]); v != "" {
		cfg.UserID = v
	}
	if v := strings.TrimSpace(stored[service.ConfigTimezone]); v != "" {
		cfg.Timezone = v
	}
	if v := strings.TrimSpace(stored[service.ConfigMaxGlasses]); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxGlasses = n
		}
	}
}

func (r *Runtime) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}
