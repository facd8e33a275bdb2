// Package config loads service configuration from the environment.
// Everything is resolved once at startup and passed down explicitly;
// nothing reads ambient settings at arbitrary points later.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Display  DisplayConfig
	Opname   OpnameConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"stocktake"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"stocktake"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASS" default:""`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// RedisConfig holds Redis settings for the advisory counting locks.
// Redis is optional; with Enabled=false locks are silently skipped.
type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// Addr returns the Redis address in host:port format.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// AuthConfig holds JWT settings.
type AuthConfig struct {
	JWTSecret      string        `envconfig:"JWT_SECRET" default:"change-me-in-production"`
	AccessTokenTTL time.Duration `envconfig:"JWT_ACCESS_TTL" default:"12h"`
}

// DisplayConfig carries presentation settings that used to live in
// ambient client storage: how many decimals to show and where the
// working shift boundary falls.
type DisplayConfig struct {
	DecimalPlaces  int `envconfig:"DISPLAY_DECIMAL_PLACES" default:"2"`
	ShiftStartHour int `envconfig:"SHIFT_START_HOUR" default:"7"`
}

// OpnameConfig holds stocktake reconciliation settings.
type OpnameConfig struct {
	// DiffEpsilonScaled is the adjustment threshold in scaled quantity
	// units (1 = 0.0001). Differences at or below it are treated as
	// floating-point noise from the breakdown calculator.
	DiffEpsilonScaled int64 `envconfig:"OPNAME_DIFF_EPSILON_SCALED" default:"1"`

	// LockTTL is how long an advisory location lock is held without renewal.
	LockTTL time.Duration `envconfig:"OPNAME_LOCK_TTL" default:"30m"`
}

// Load reads configuration from the environment, honoring a local
// .env file when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	return &cfg, nil
}
