package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/sundayezeilo/shortlink/codegen"
	"github.com/sundayezeilo/shortlink/internal/config"
	"github.com/sundayezeilo/shortlink/internal/db"
	"github.com/sundayezeilo/shortlink/internal/db/postgres"
	"github.com/sundayezeilo/shortlink/internal/db/sqlite"
	"github.com/sundayezeilo/shortlink/internal/retry"
	"github.com/sundayezeilo/shortlink/internal/server"
	"github.com/sundayezeilo/shortlink/internal/shortener"
)

// App holds the application dependencies and configuration.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	DBPool  *pgxpool.Pool // set when DB_DRIVER=postgres
	SQLDB   *sql.DB       // set when DB_DRIVER=sqlite
	Server  *server.Server
	Handler *shortener.Handler
}

// New initializes and returns a new App instance with all dependencies wired up.
func New(ctx context.Context) (*App, error) {
	if err := loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.App.LogLevel)

	logger.Info("starting application",
		"env", cfg.App.Environment,
		"service", cfg.App.ServiceName,
		"version", cfg.App.ServiceVersion,
	)

	a := &App{
		Config: cfg,
		Logger: logger,
	}

	queries, err := a.connectDatabase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	handler, err := NewHandler(cfg, queries, logger)
	if err != nil {
		_ = a.Shutdown()
		return nil, err
	}
	a.Handler = handler
	a.Server = server.New(cfg, logger, handler)

	logger.Info("application initialized",
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"driver", cfg.Database.Driver,
		"strategy", cfg.Shortener.Strategy,
	)

	return a, nil
}

// NewHandler builds the shortener stack on top of an open store.
func NewHandler(cfg *config.Config, queries db.Querier, logger *slog.Logger) (*shortener.Handler, error) {
	gen, err := codegen.New(cfg.Shortener.Strategy, codegen.Options{RandomLength: cfg.Shortener.CodeLength})
	if err != nil {
		return nil, fmt.Errorf("failed to build code generator: %w", err)
	}

	repo := shortener.NewRepository(queries, nil)
	svc := shortener.NewService(repo, &shortener.ServiceConfig{
		Generator:    gen,
		MaxAttempts:  cfg.Shortener.MaxAttempts,
		DefaultTTL:   time.Duration(cfg.Shortener.DefaultTTLHours) * time.Hour,
		MaxTTLHours:  cfg.Shortener.MaxTTLHours,
		PasswordCost: cfg.Shortener.PasswordCost,
		Retry: &retry.Policy{
			MaxRetries:      uint64(cfg.Shortener.StoreRetries),
			InitialInterval: retry.DefaultInitialInterval,
			MaxInterval:     retry.DefaultMaxInterval,
		},
		Logger: logger,
	})

	return shortener.NewHandler(shortener.HandlerConfig{
		Service: svc,
		Logger:  logger,
		BaseURL: cfg.Server.BaseURL,
	}), nil
}

// Start starts the application server.
func (a *App) Start(ctx context.Context) error {
	a.Logger.Info("server starting",
		"port", a.Config.Server.Port,
		"base_url", a.Config.Server.BaseURL,
	)

	if err := a.Server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.Logger.Info("shutting down application")

	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database connection closed")
	}
	if a.SQLDB != nil {
		if err := a.SQLDB.Close(); err != nil {
			return fmt.Errorf("failed to close sqlite database: %w", err)
		}
		a.Logger.Info("database connection closed")
	}

	return nil
}

// loadEnv loads .env file only in non-production environments.
func loadEnv() error {
	env := os.Getenv("APP_ENV")
	if env == "development" || env == "test" {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("no .env file found.")
		}
	}
	return nil
}

// setupLogger creates a structured logger based on the log level.
func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

// connectDatabase opens the configured store and applies its schema.
func (a *App) connectDatabase(ctx context.Context) (db.Querier, error) {
	cfg := a.Config.Database

	switch cfg.Driver {
	case config.DriverSQLite:
		a.Logger.Info("opening sqlite database")
		sqlDB, err := sqlite.Open(ctx, cfg.SQLiteDSN)
		if err != nil {
			return nil, err
		}
		a.SQLDB = sqlDB
		a.Logger.Info("database connection established")
		return sqlite.New(sqlDB), nil

	default:
		a.Logger.Info("connecting to database",
			"host", cfg.Host,
			"port", cfg.Port,
			"database", cfg.Name,
		)

		if cfg.Migrate {
			if err := postgres.Migrate(cfg.URL()); err != nil {
				return nil, err
			}
			a.Logger.Info("database migrations applied")
		}

		pool, err := postgres.Connect(ctx, cfg.URL(), postgres.PoolConfig{
			MaxConns: cfg.MaxConns,
			MinConns: cfg.MinConns,
		})
		if err != nil {
			return nil, err
		}
		a.DBPool = pool
		a.Logger.Info("database connection established")
		return postgres.New(pool), nil
	}
}
