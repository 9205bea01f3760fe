package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	jwttoken "clientauth/internal/jwt_token"
)

const (
	metricsAddrEnv     = "CLIENTAUTH_METRICS_ADDR"
	defaultMetricsAddr = ":9100"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Server captures process level configuration.
type Server struct {
	Addr            string        `env:"CLIENTAUTH_ADDR"         envDefault:":8080"`
	MetricsAddr     string        `env:"CLIENTAUTH_METRICS_ADDR"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"        envDefault:"10s"`
	LogFormat       string        `env:"LOG_FORMAT"              envDefault:"json"`
	LogLevel        string        `env:"LOG_LEVEL"               envDefault:"info"`

	Auth     AuthConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Audit    AuditConfig
}

// AuthConfig holds token and credential settings.
type AuthConfig struct {
	JWTSecret       string `env:"JWT_SECRET"`
	JWTExpirationMS int64  `env:"JWT_EXPIRATION_MS" envDefault:"86400000"`
	BcryptCost      int    `env:"BCRYPT_COST"       envDefault:"10"`
	// TxTimeout bounds the registration transaction.
	TxTimeout time.Duration `env:"TX_TIMEOUT" envDefault:"5s"`
}

// TokenTTL converts the configured expiration into a duration.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.JWTExpirationMS) * time.Millisecond
}

// DatabaseConfig selects and configures the account store backend.
type DatabaseConfig struct {
	Driver         string `env:"STORE_DRIVER"       envDefault:"memory"`
	URL            string `env:"DATABASE_URL"`
	SQLitePath     string `env:"SQLITE_PATH"        envDefault:"clientauth.db"`
	ConnectRetries uint64 `env:"DB_CONNECT_RETRIES" envDefault:"5"`
}

// RedisConfig configures the optional identity cache.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE"      envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT"   envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT"   envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT"  envDefault:"3s"`
	IdentityTTL  time.Duration `env:"IDENTITY_CACHE_TTL"   envDefault:"1m"`
}

// Enabled reports whether a Redis URL was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

// AuditConfig sizes the in-process security audit trail.
type AuditConfig struct {
	BufferSize int `env:"AUDIT_BUFFER_SIZE" envDefault:"1024"`
}

// FromEnv parses the environment and validates the result.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	// An explicitly empty value disables the metrics listener.
	if _, set := os.LookupEnv(metricsAddrEnv); !set {
		cfg.MetricsAddr = defaultMetricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// DatabaseFromEnv parses only the database settings. Tooling such as the
// migrate command uses it so it does not need the signing secret.
func DatabaseFromEnv() (DatabaseConfig, error) {
	var cfg DatabaseConfig
	if err := env.Parse(&cfg); err != nil {
		return DatabaseConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks rules that span fields.
func (c Server) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if _, err := jwttoken.DecodeSecret(c.Auth.JWTSecret); err != nil {
		errs = append(errs, fmt.Errorf("JWT_SECRET: %w", err))
	}
	if c.Auth.JWTExpirationMS <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION_MS must be positive"))
	}
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres"))
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required when STORE_DRIVER=sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Database.Driver))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}
	if c.Audit.BufferSize <= 0 {
		errs = append(errs, errors.New("AUDIT_BUFFER_SIZE must be positive"))
	}
	return errors.Join(errs...)
}
