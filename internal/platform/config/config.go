// Package config builds the process configuration once at startup. Business
// logic receives values from here by constructor injection and never reads the
// environment itself.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	xstrings "jwelary/pkg/platform/strings"
)

// DefaultSigningKey is the development fallback used when JWT_SECRET is unset.
const DefaultSigningKey = "fallback-secret"

const EnvProduction = "production"

// Config is the full process configuration.
type Config struct {
	Env      string
	Server   Server
	Auth     Auth
	Database DatabaseConfig
	Redis    RedisConfig
	Gateway  Gateway
	Audit    Audit
}

// Server captures backend HTTP server configuration.
type Server struct {
	Addr string
}

// Auth configures token issuance and password hashing.
type Auth struct {
	JWTSigningKey          string
	JWTIssuer              string
	UsingDefaultSigningKey bool
	AccessTokenTTL         time.Duration
	RefreshTokenTTL        time.Duration
	BcryptCost             int
	RefreshRotation        bool
}

// DatabaseConfig selects the Postgres-backed stores. Empty URL means in-memory.
type DatabaseConfig struct {
	URL string
}

// RedisConfig configures the denylist cache. Empty URL means in-memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Gateway configures the public session gateway.
type Gateway struct {
	Addr            string
	BackendURL      string
	UpstreamTimeout time.Duration
	AllowedOrigins  []string
}

// Audit configures the security audit sink. No brokers means log-only.
type Audit struct {
	KafkaBrokers []string
	Topic        string
	BufferSize   int
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var errs []error

	cfg := Config{
		Env: getString("APP_ENV", "development"),
		Server: Server{
			Addr: getString("JWELARY_ADDR", ":5000"),
		},
		Auth: Auth{
			JWTSigningKey: os.Getenv("JWT_SECRET"),
			JWTIssuer:     getString("JWT_ISSUER", "jwelary"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     20,
			MinIdleConns: 2,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		},
		Gateway: Gateway{
			Addr:           getString("GATEWAY_ADDR", ":3000"),
			BackendURL:     strings.TrimRight(getString("BACKEND_URL", "http://localhost:5000"), "/"),
			AllowedOrigins: xstrings.SplitList(firstNonEmpty(os.Getenv("FRONTEND_URLS"), os.Getenv("FRONTEND_URL"), "http://localhost:3000")),
		},
		Audit: Audit{
			KafkaBrokers: xstrings.SplitList(os.Getenv("KAFKA_BROKERS")),
			Topic:        getString("AUDIT_TOPIC", "jwelary.auth.audit"),
			BufferSize:   1024,
		},
	}

	if cfg.Auth.JWTSigningKey == "" {
		cfg.Auth.JWTSigningKey = DefaultSigningKey
		cfg.Auth.UsingDefaultSigningKey = true
	}

	var err error
	if cfg.Auth.AccessTokenTTL, err = getDuration("ACCESS_TOKEN_TTL", 2*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.Auth.RefreshTokenTTL, err = getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.Gateway.UpstreamTimeout, err = getDuration("UPSTREAM_TIMEOUT", 10*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.Auth.BcryptCost, err = getInt("BCRYPT_COST", 12); err != nil {
		errs = append(errs, err)
	}
	if cfg.Auth.RefreshRotation, err = getBool("REFRESH_ROTATION", false); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations no binary can run with.
func (c Config) Validate() error {
	var errs []error
	if c.Auth.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}
	if c.Auth.RefreshTokenTTL < c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL must not be shorter than ACCESS_TOKEN_TTL"))
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.Gateway.UpstreamTimeout <= 0 {
		errs = append(errs, errors.New("UPSTREAM_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
