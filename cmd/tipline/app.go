package main

import (
	"fmt"

	"tipline/internal/auth"
	"tipline/internal/cache"
	"tipline/internal/config"
	"tipline/internal/locale"
	"tipline/internal/logging"
	"tipline/internal/record"
	"tipline/internal/storage"
)

// app bundles the wired-up components shared by the commands
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	db      *storage.DB
	store   *record.Store
	authMgr *auth.Manager
	catalog *locale.Catalog
}

// openApp loads config and wires the data layer. The database connection
// itself stays lazy; commands that want eager failures call db.Connect().
func openApp() (*app, error) {
	dataDir := resolveDataDir()

	cfg, err := config.LoadConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewLogger(logging.Config{
		Format: logging.ParseFormat(cfg.Logging.Format),
		Level:  logging.ParseLevel(cfg.Logging.Level),
	})

	db := storage.New(cfg.DatabasePath(), logger)

	if cfg.Cache.Enabled {
		qc, err := cache.New(cfg.CacheDir(), logger)
		if err != nil {
			return nil, err
		}
		db.SetCache(qc)
	}

	store := record.NewStore(db)

	catalog := locale.Builtin()
	if cfg.Locale.Path != "" {
		catalog, err = locale.Load(cfg.Locale.Path)
		if err != nil {
			return nil, err
		}
	}

	authMgr := auth.NewManager(auth.Config{
		TokenTTL:   cfg.TokenTTL(),
		BcryptCost: cfg.Auth.BcryptCost,
	}, store, logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		store:   store,
		authMgr: authMgr,
		catalog: catalog,
	}, nil
}

// close releases the app's resources
func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("Failed to close database", map[string]any{
			"error": err.Error(),
		})
	}
}
