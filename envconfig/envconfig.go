// Package envconfig loads process configuration from the environment, an optional .env
// file and an optional config file using Viper.
package envconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/MrEthical07/rotauth"
	"github.com/MrEthical07/rotauth/password"
)

// Config holds server configuration. Keys are the environment variable names; config
// files use the same keys in any case.
type Config struct {
	// HTTPAddr is the listen address of the HTTP server.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// MetricsAddr serves /metrics when non-empty.
	MetricsAddr string `mapstructure:"METRICS_ADDR"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// DatabaseURL is the Postgres DSN of the users table.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	JWTSecret  string `mapstructure:"JWT_SECRET"`
	JWTIssuer  string `mapstructure:"JWT_ISSUER"`
	AccessTTL  int    `mapstructure:"JWT_ACCESS_TTL_MINUTES"`
	RefreshTTL int    `mapstructure:"JWT_REFRESH_TTL_DAYS"`

	KeyPrefix        string        `mapstructure:"REGISTRY_KEY_PREFIX"`
	AtomicRotation   bool          `mapstructure:"REGISTRY_ATOMIC_ROTATION"`
	RegistryTimeout  time.Duration `mapstructure:"REGISTRY_TIMEOUT"`
	RevokeOnReuse    bool          `mapstructure:"REVOKE_FAMILY_ON_REUSE"`
	PasswordAlgo     string        `mapstructure:"PASSWORD_ALGORITHM"`
	BcryptCost       int           `mapstructure:"BCRYPT_COST"`
	AuditEnabled     bool          `mapstructure:"AUDIT_ENABLED"`
	AuditBufferSize  int           `mapstructure:"AUDIT_BUFFER_SIZE"`
	MetricsEnabled   bool          `mapstructure:"METRICS_ENABLED"`
	LatencyHistogram bool          `mapstructure:"METRICS_LATENCY_HISTOGRAMS"`

	// CookieSecure sets the Secure attribute of the refresh cookie.
	CookieSecure bool `mapstructure:"COOKIE_SECURE"`
	// TrustProxyHeaders reads the client IP from X-Forwarded-For.
	TrustProxyHeaders bool `mapstructure:"TRUST_PROXY_HEADERS"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

// Options selects the files Load reads. Empty fields are skipped.
type Options struct {
	// EnvFile is a dotenv file; a missing file is ignored.
	EnvFile string
	// ConfigFile is a yaml, toml or json file; it must exist when set.
	ConfigFile string
}

func setDefaults(v *viper.Viper) {
	defaults := rotauth.DefaultConfig()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("METRICS_ADDR", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", defaults.JWT.Issuer)
	v.SetDefault("JWT_ACCESS_TTL_MINUTES", int(defaults.JWT.AccessTTL/time.Minute))
	v.SetDefault("JWT_REFRESH_TTL_DAYS", int(defaults.JWT.RefreshTTL/(24*time.Hour)))
	v.SetDefault("REGISTRY_KEY_PREFIX", defaults.Registry.KeyPrefix)
	v.SetDefault("REGISTRY_ATOMIC_ROTATION", defaults.Registry.AtomicRotation)
	v.SetDefault("REGISTRY_TIMEOUT", defaults.Registry.OperationTimeout)
	v.SetDefault("REVOKE_FAMILY_ON_REUSE", defaults.Security.RevokeFamilyOnReuse)
	v.SetDefault("PASSWORD_ALGORITHM", defaults.Password.Algorithm)
	v.SetDefault("BCRYPT_COST", defaults.Password.BcryptCost)
	v.SetDefault("AUDIT_ENABLED", defaults.Audit.Enabled)
	v.SetDefault("AUDIT_BUFFER_SIZE", defaults.Audit.BufferSize)
	v.SetDefault("METRICS_ENABLED", defaults.Metrics.Enabled)
	v.SetDefault("METRICS_LATENCY_HISTOGRAMS", defaults.Metrics.EnableLatencyHistograms)
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("TRUST_PROXY_HEADERS", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
}

// Load builds Config from defaults, the env file, the config file and the environment,
// in increasing precedence, and validates it.
func Load(opts Options) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if opts.EnvFile != "" {
		v.SetConfigFile(opts.EnvFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", opts.EnvFile, err)
		}
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		v.SetConfigType(strings.TrimPrefix(filepath.Ext(opts.ConfigFile), "."))
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", opts.ConfigFile, err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks server-level fields and the derived engine configuration.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.RedisAddr == "" {
		return errors.New("config: REDIS_ADDR must be set")
	}
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET must be set")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("config: LOG_FORMAT %q must be text, json or logfmt", c.LogFormat)
	}

	engineCfg := c.Engine()
	if err := engineCfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Engine converts the process configuration into a rotauth.Config. The integer TTL
// knobs are converted to durations here and nowhere else.
func (c *Config) Engine() rotauth.Config {
	cfg := rotauth.DefaultConfig()

	cfg.JWT.Secret = c.JWTSecret
	cfg.JWT.Issuer = c.JWTIssuer
	cfg.JWT.AccessTTL = time.Duration(c.AccessTTL) * time.Minute
	cfg.JWT.RefreshTTL = time.Duration(c.RefreshTTL) * 24 * time.Hour

	cfg.Registry.KeyPrefix = c.KeyPrefix
	cfg.Registry.AtomicRotation = c.AtomicRotation
	cfg.Registry.OperationTimeout = c.RegistryTimeout

	cfg.Password.Algorithm = strings.ToLower(c.PasswordAlgo)
	if cfg.Password.Algorithm == "" {
		cfg.Password.Algorithm = password.AlgorithmBcrypt
	}
	cfg.Password.BcryptCost = c.BcryptCost

	cfg.Security.RevokeFamilyOnReuse = c.RevokeOnReuse
	cfg.Audit.Enabled = c.AuditEnabled
	cfg.Audit.BufferSize = c.AuditBufferSize
	cfg.Metrics.Enabled = c.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = c.LatencyHistogram

	return cfg
}

// RedisOptions returns client options for the registry. Context deadlines are honoured
// so the engine's per-operation timeout bounds network calls.
func (c *Config) RedisOptions() *redis.Options {
	return &redis.Options{
		Addr:                  c.RedisAddr,
		Password:              c.RedisPassword,
		DB:                    c.RedisDB,
		ContextTimeoutEnabled: true,
	}
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	return errors.Is(err, fs.ErrNotExist)
}
