package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/builder"
	"resume-builder/internal/services/health"
	"resume-builder/internal/shared/auth"
	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/server"
	"resume-builder/internal/shared/storage/db"
	"resume-builder/internal/shared/storage/kv"
	localstore "resume-builder/internal/shared/storage/kv/local"
	pgstore "resume-builder/internal/shared/storage/kv/postgres"
	s3store "resume-builder/internal/shared/storage/kv/s3"
	valkeystore "resume-builder/internal/shared/storage/kv/valkey"
	"resume-builder/internal/shared/telemetry"
)

const defaultAWSRegion = "us-east-1"

// App holds shared dependencies.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	Store    kv.Store
	Tokens   *auth.Tokens
	Registry *builder.Registry
	Handler  *builder.Handler
	Health   *health.Service

	closers []func()
}

// Build prepares storage, the workspace registry and the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.Env)
	if err != nil {
		return nil, err
	}

	store, sqlDB, closeStore, err := BuildStorage(ctx, cfg, db.DefaultServerOptions())
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Tokens: tokens,
	}
	app.closers = append(app.closers, closeStore)

	app.Registry = builder.NewRegistryWithLimits(store, WorkspaceOptions(cfg), builder.RegistryOptions{
		IdleTTL: cfg.WorkspaceIdle,
		MaxOpen: cfg.MaxWorkspaces,
	})
	app.Handler = builder.NewHandler(app.Registry)
	app.Health = health.NewService(store, cfg.StorageBackend)
	app.Router = server.NewRouter(server.RouterDeps{
		Config:  cfg,
		Tokens:  tokens,
		Handler: app.Handler,
		Health:  app.Health,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":     cfg.Env,
		"storage": cfg.StorageBackend,
	})
	return app, nil
}

// Start runs background upkeep until ctx is done.
func (a *App) Start(ctx context.Context) {
	interval := a.Config.WorkspaceIdle / 4
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}
	go a.Registry.Run(ctx, interval)
}

// Close releases workspaces and storage connections.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Registry != nil {
		a.Registry.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// WorkspaceOptions maps configuration onto workspace timings. A zero submit delay disables it.
func WorkspaceOptions(cfg config.Config) builder.Options {
	opts := builder.Options{
		SubmitDelay:  cfg.SubmitDelay,
		SearchWindow: cfg.SearchDebounce,
	}
	if cfg.SubmitDelay == 0 {
		opts.SubmitDelay = -1
	}
	return opts
}

// BuildStorage opens the configured key-value backend. The returned func releases it.
// The *sql.DB is only non-nil for the postgres backend.
func BuildStorage(ctx context.Context, cfg config.Config, dbOpts db.Options) (kv.Store, *sql.DB, func(), error) {
	noop := func() {}
	switch cfg.StorageBackend {
	case "memory":
		return kv.NewMemory(), nil, noop, nil

	case "", "local":
		store, err := localstore.New(cfg.LocalStoreDir)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("local store: %w", err)
		}
		return store, nil, noop, nil

	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, nil, nil, fmt.Errorf("DATABASE_URL is required for postgres storage")
		}
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(dbOpts))
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, nil, nil, fmt.Errorf("migrations: %w", err)
		}
		return &pgstore.Store{DB: sqlDB}, sqlDB, func() { sqlDB.Close() }, nil

	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, nil, nil, fmt.Errorf("S3_BUCKET is required for s3 storage")
		}
		region := cfg.AWSRegion
		if region == "" {
			region = defaultAWSRegion
		}
		store, err := s3store.New(ctx, region, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, nil, noop, nil

	case "valkey":
		store, err := valkeystore.New(cfg.ValkeyAddr)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, nil, store.Close, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}
