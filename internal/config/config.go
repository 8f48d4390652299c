// Package config loads the server configuration: built-in defaults, then an
// optional YAML file named by CONFIG_FILE, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/R3E-Network/farm_backoffice/internal/app/jobs"
	"github.com/R3E-Network/farm_backoffice/pkg/logger"
	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig         `yaml:"server"`
	Database DatabaseConfig       `yaml:"database"`
	Auth     AuthConfig           `yaml:"auth"`
	Redis    RedisConfig          `yaml:"redis"`
	Jobs     jobs.Config          `yaml:"jobs"`
	Audit    AuditConfig          `yaml:"audit"`
	Logging  logger.LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" env:"SERVER_HOST"`
	Port            int           `yaml:"port" env:"SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	// CORSOrigins is semicolon separated in the environment.
	CORSOrigins []string `yaml:"cors_origins" env:"SERVER_CORS_ORIGINS"`
	RateLimit   float64  `yaml:"rate_limit" env:"SERVER_RATE_LIMIT"`
	RateBurst   int      `yaml:"rate_burst" env:"SERVER_RATE_BURST"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver" env:"DATABASE_DRIVER"`
	DSN             string        `yaml:"dsn" env:"DATABASE_URL"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DATABASE_CONN_MAX_LIFETIME"`
	MigrateOnStart  bool          `yaml:"migrate_on_start" env:"DATABASE_MIGRATE_ON_START"`
}

// Persistent reports whether a SQL database backs the stores.
func (d DatabaseConfig) Persistent() bool {
	return d.Driver == "postgres"
}

type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	TokenTTL      time.Duration `yaml:"token_ttl" env:"AUTH_TOKEN_TTL"`
	BcryptCost    int           `yaml:"bcrypt_cost" env:"AUTH_BCRYPT_COST"`
	AdminName     string        `yaml:"admin_name" env:"AUTH_ADMIN_NAME"`
	AdminEmail    string        `yaml:"admin_email" env:"AUTH_ADMIN_EMAIL"`
	AdminPassword string        `yaml:"admin_password" env:"AUTH_ADMIN_PASSWORD"`
}

type RedisConfig struct {
	URL       string `yaml:"url" env:"REDIS_URL"`
	KeyPrefix string `yaml:"key_prefix" env:"REDIS_KEY_PREFIX"`
}

type AuditConfig struct {
	Max      int    `yaml:"max" env:"AUDIT_MAX"`
	File     string `yaml:"file" env:"AUDIT_FILE"`
	Postgres bool   `yaml:"postgres" env:"AUDIT_POSTGRES"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       20,
			RateBurst:       40,
		},
		Database: DatabaseConfig{
			Driver:          "memory",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Auth: AuthConfig{
			TokenTTL:   12 * time.Hour,
			BcryptCost: 12,
			AdminName:  "Administrator",
		},
		Redis: RedisConfig{KeyPrefix: "farm:revoked:"},
		Jobs: jobs.Config{
			ReconcileSpec: "30 2 * * *",
			LeaseSpec:     "0 3 1 1 *",
			Timeout:       5 * time.Minute,
		},
		Audit:   AuditConfig{Max: 500},
		Logging: logger.LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
	}
}

// Load builds the configuration from defaults, CONFIG_FILE and the
// environment, then validates it.
func Load() (*Config, error) {
	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) normalize() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "postgresql" {
		c.Database.Driver = "postgres"
	}
	c.Auth.AdminEmail = strings.ToLower(strings.TrimSpace(c.Auth.AdminEmail))
	origins := c.Server.CORSOrigins[:0]
	for _, o := range c.Server.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.Server.CORSOrigins = origins
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver %q must be memory or postgres", c.Database.Driver))
	}
	if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 16 characters"))
	}
	if (c.Auth.AdminEmail == "") != (c.Auth.AdminPassword == "") {
		errs = append(errs, errors.New("auth.admin_email and auth.admin_password must be set together"))
	}
	if c.Audit.Postgres && !c.Database.Persistent() {
		errs = append(errs, errors.New("audit.postgres requires the postgres driver"))
	}
	return errors.Join(errs...)
}
