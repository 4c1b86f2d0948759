// Package app wires the configured adapters into the core services.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/distill/internal/adapters/driven/ai"
	"github.com/custodia-labs/distill/internal/adapters/driven/config/file"
	"github.com/custodia-labs/distill/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/distill/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/distill/internal/adapters/driving/cli"
	"github.com/custodia-labs/distill/internal/connectors/google"
	"github.com/custodia-labs/distill/internal/connectors/google/drive"
	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driven"
	"github.com/custodia-labs/distill/internal/core/services"
	"github.com/custodia-labs/distill/internal/logger"
	"github.com/custodia-labs/distill/internal/resilience"
)

// EnvHome overrides the configuration directory (default ~/.distill).
const EnvHome = "DISTILL_HOME"

// Options controls how the application is assembled.
type Options struct {
	// ConfigDir holds config.toml, prompts/ and the default data dir.
	ConfigDir string

	// ValidateLLM pings the provider before handing it to the services.
	ValidateLLM bool
}

// App is the assembled application.
type App struct {
	Settings *domain.Settings
	Services cli.Services

	closers []func() error
}

// Close releases stores and provider clients.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DefaultConfigDir returns $DISTILL_HOME or ~/.distill.
func DefaultConfigDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".distill"), nil
}

// Build loads settings and wires every service.
func Build(ctx context.Context, opts Options) (*App, error) {
	if opts.ConfigDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		opts.ConfigDir = dir
	}

	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)
	settingsService.SetValidator(ai.NewConfigValidator())

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	prompts, err := file.NewPromptStore(filepath.Join(opts.ConfigDir, "prompts"))
	if err != nil {
		return nil, fmt.Errorf("open prompts: %w", err)
	}

	a := &App{Settings: settings}
	store, counters, err := a.openStores(ctx, settings, opts.ConfigDir)
	if err != nil {
		_ = a.Close() //nolint:errcheck // already failing
		return nil, err
	}

	policy := resilience.Policy{
		Timeout:     settings.Store.Timeout,
		MaxAttempts: settings.Store.MaxAttempts,
		BaseDelay:   settings.Store.Backoff,
	}
	guarded := resilience.NewStore(store, policy)

	index := services.NewIndexService(guarded)
	aliases := services.NewAliasService(guarded)
	query := services.NewQueryService(guarded, index, aliases)
	query.SetScanBuffer(settings.ScanBuffer)

	llm := ai.Init(&settings.LLM, prompts, opts.ValidateLLM)
	for _, w := range llm.Warnings {
		logger.Debug("llm: %s", w)
	}
	a.closers = append(a.closers, func() error { llm.Close(); return nil })

	generation := services.NewGenerationService(guarded, index, aliases, query, llm.Provider)
	generation.SetCitationLimits(settings.Citations)

	a.Services = cli.Services{
		Query:      query,
		Index:      index,
		Aliases:    aliases,
		Generation: generation,
		Settings:   settingsService,
		Limiter:    resilience.NewRateLimiter(counters),
		Watcher:    configStore,
	}
	logger.Debug("app: %s", logger.KV("space", settings.SpaceID, "store", settings.Store.Backend,
		"counters", settings.RateLimit.Backend, "llm", settings.LLM.Provider))
	return a, nil
}

// openStores opens the object store and the rate-limit counter store.
func (a *App) openStores(
	ctx context.Context, settings *domain.Settings, configDir string,
) (driven.ObjectStore, driven.CounterStore, error) {
	dataDir := settings.Store.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(configDir, "data")
	}

	var db *sqlite.Store
	openDB := func() (*sqlite.Store, error) {
		if db != nil {
			return db, nil
		}
		s, err := sqlite.NewStore(dataDir)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		db = s
		return s, nil
	}

	var store driven.ObjectStore
	switch settings.Store.Backend {
	case domain.StoreMemory:
		store = memory.NewObjectStore()
	case domain.StoreDrive:
		s, err := openDrive(ctx, settings.Store.DriveToken)
		if err != nil {
			return nil, nil, err
		}
		store = s
	default:
		s, err := openDB()
		if err != nil {
			return nil, nil, err
		}
		store = s.ObjectStore()
	}

	var counters driven.CounterStore
	switch settings.RateLimit.Backend {
	case domain.StoreSQLite:
		s, err := openDB()
		if err != nil {
			return nil, nil, err
		}
		counters = s.CounterStore()
	default:
		counters = memory.NewCounterStore()
	}
	return store, counters, nil
}

func openDrive(ctx context.Context, token string) (driven.ObjectStore, error) {
	if token == "" {
		return nil, domain.NewError(domain.KindNotConfigured, "app.drive",
			"drive store selected but no token set (store.drive_token or "+services.EnvDriveToken+")")
	}
	ts := google.NewTokenSource(ctx, google.NewStaticTokenProvider(token))
	svc, err := google.NewDriveService(ctx, ts)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return drive.NewStore(svc, google.NewRateLimiter(google.ServiceDrive)), nil
}
