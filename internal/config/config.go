package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	App       AppConfig
	Shortener ShortenerConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"SERVER_PORT" required:"true"`
	Host            string        `envconfig:"SERVER_HOST" required:"true"`
	BaseURL         string        `envconfig:"SERVER_BASE_URL" required:"true"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" required:"true"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" required:"true"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" required:"true"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" required:"true"`
	CORSOrigins     []string      `envconfig:"SERVER_CORS_ORIGINS"` // comma separated; empty allows all
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if c.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base URL must be an absolute http(s) URL, got %q", c.BaseURL)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig holds database connection configuration. The DB_HOST..DB_SSLMODE
// fields apply to postgres, DB_SQLITE_DSN to sqlite.
type DatabaseConfig struct {
	Driver    string `envconfig:"DB_DRIVER" default:"postgres"`
	Host      string `envconfig:"DB_HOST"`
	Port      string `envconfig:"DB_PORT" default:"5432"`
	User      string `envconfig:"DB_USER"`
	Password  string `envconfig:"DB_PASSWORD"`
	Name      string `envconfig:"DB_NAME"`
	SSLMode   string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns  int32  `envconfig:"DB_MIN_CONNS" default:"2"`
	SQLiteDSN string `envconfig:"DB_SQLITE_DSN" default:"shortlink.db"`
	Migrate   bool   `envconfig:"DB_MIGRATE" default:"true"`
}

// Validate validates the database configuration.
func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case DriverPostgres:
		return c.validatePostgres()
	case DriverSQLite:
		if c.SQLiteDSN == "" {
			return fmt.Errorf("sqlite DSN cannot be empty")
		}
		return nil
	default:
		return fmt.Errorf("invalid driver: %s (must be one of: %s, %s)", c.Driver, DriverPostgres, DriverSQLite)
	}
}

func (c *DatabaseConfig) validatePostgres() error {
	if c.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if c.User == "" {
		return fmt.Errorf("user cannot be empty")
	}
	if c.Password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if c.Name == "" {
		return fmt.Errorf("database name cannot be empty")
	}
	if c.MaxConns <= 0 {
		return fmt.Errorf("max connections must be positive")
	}
	if c.MinConns <= 0 {
		return fmt.Errorf("min connections must be positive")
	}
	if c.MinConns > c.MaxConns {
		return fmt.Errorf("min connections (%d) cannot be greater than max connections (%d)", c.MinConns, c.MaxConns)
	}

	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.SSLMode) {
		return fmt.Errorf("invalid SSL mode: %s (must be one of: disable, require, verify-ca, verify-full)", c.SSLMode)
	}
	return nil
}

// URL returns the PostgreSQL connection URL, usable by both pgx and migrate.
func (c *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// AppConfig holds application-specific configuration.
type AppConfig struct {
	Environment    string `envconfig:"APP_ENV" required:"true"`   // development, staging, production, test
	LogLevel       string `envconfig:"LOG_LEVEL" required:"true"` // debug, info, warn, error
	ServiceName    string `envconfig:"SERVICE_NAME" default:"shortlink"`
	ServiceVersion string `envconfig:"SERVICE_VERSION" default:"dev"`
}

// Validate validates the app configuration.
func (c *AppConfig) Validate() error {
	validEnvs := []string{"development", "staging", "production", "test"}
	if !slices.Contains(validEnvs, c.Environment) {
		return fmt.Errorf("invalid environment: %s (must be one of: development, staging, production, test)", c.Environment)
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	if c.ServiceName == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	return nil
}

// ShortenerConfig tunes code generation and link defaults.
type ShortenerConfig struct {
	Strategy        string `envconfig:"SHORTENER_STRATEGY" default:"hash"` // hash, random
	MaxAttempts     int    `envconfig:"SHORTENER_MAX_ATTEMPTS" default:"5"`
	CodeLength      int    `envconfig:"SHORTENER_CODE_LENGTH" default:"6"` // random strategy only
	DefaultTTLHours int    `envconfig:"SHORTENER_DEFAULT_TTL_HOURS" default:"24"`
	MaxTTLHours     int    `envconfig:"SHORTENER_MAX_TTL_HOURS" default:"10000000"`
	StoreRetries    int    `envconfig:"SHORTENER_STORE_RETRIES" default:"3"`
	PasswordCost    int    `envconfig:"SHORTENER_PASSWORD_COST" default:"10"`
}

// Validate validates the shortener configuration.
func (c *ShortenerConfig) Validate() error {
	if c.Strategy != "hash" && c.Strategy != "random" {
		return fmt.Errorf("invalid strategy: %s (must be one of: hash, random)", c.Strategy)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}
	if c.CodeLength < 4 || c.CodeLength > 64 {
		return fmt.Errorf("code length must be between 4 and 64, got %d", c.CodeLength)
	}
	if c.MaxTTLHours <= 0 {
		return fmt.Errorf("max TTL hours must be positive")
	}
	if c.DefaultTTLHours <= 0 || c.DefaultTTLHours > c.MaxTTLHours {
		return fmt.Errorf("default TTL hours must be between 1 and %d, got %d", c.MaxTTLHours, c.DefaultTTLHours)
	}
	if c.StoreRetries < 0 {
		return fmt.Errorf("store retries cannot be negative")
	}
	if c.PasswordCost < 4 || c.PasswordCost > 31 {
		return fmt.Errorf("password cost must be between 4 and 31, got %d", c.PasswordCost)
	}
	return nil
}

type section interface {
	Validate() error
}

// Load loads configuration from environment variables only.
// (.env loading happens in the app package for development and test.)
func Load() (*Config, error) {
	cfg := &Config{}

	sections := []struct {
		name string
		cfg  section
	}{
		{"Server", &cfg.Server},
		{"Database", &cfg.Database},
		{"App", &cfg.App},
		{"Shortener", &cfg.Shortener},
	}
	for _, s := range sections {
		if err := envconfig.Process("", s.cfg); err != nil {
			return nil, fmt.Errorf("failed to load %s config: %w", s.name, err)
		}
		if err := s.cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid %s config: %w", s.name, err)
		}
	}

	return cfg, nil
}
