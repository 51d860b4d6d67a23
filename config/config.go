// Package config handles loading and validation of application configuration
// from environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/block-nexus/blocknexus-site/logger"
	"github.com/spf13/viper"
)

// Environment represents the application's running environment (development or production).
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT" yaml:"environment"`
	Port           string      `mapstructure:"PORT" yaml:"port"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	// TrustedProxies is a list of proxy IPs whose X-Forwarded-For headers
	// are honored. If empty, forwarded headers are ignored entirely.
	TrustedProxies []string `mapstructure:"TRUSTED_PROXIES" yaml:"trusted_proxies"`
	// VerboseErrors gates whether field-level validation detail appears in
	// error responses. Defaults to off in production.
	VerboseErrors bool `mapstructure:"VERBOSE_ERRORS" yaml:"verbose_errors"`
}

// SecurityConfig holds request-body guard limits.
type SecurityConfig struct {
	// MaxBodySize is the request body ceiling in bytes.
	MaxBodySize int64 `mapstructure:"MAX_BODY_SIZE" yaml:"max_body_size"`
	// BodyReadTimeoutSeconds bounds how long the server waits for the body.
	BodyReadTimeoutSeconds int `mapstructure:"BODY_READ_TIMEOUT_SECONDS" yaml:"body_read_timeout_seconds"`
}

// RateLimitConfig holds configuration for the contact-form rate limiter.
type RateLimitConfig struct {
	MaxRequests int `mapstructure:"MAX_REQUESTS" yaml:"max_requests"`
	// WindowMS is the fixed window length in milliseconds.
	WindowMS int64 `mapstructure:"WINDOW_MS" yaml:"window_ms"`
	// SweepIntervalSeconds controls how often expired entries are purged.
	SweepIntervalSeconds int `mapstructure:"SWEEP_INTERVAL_SECONDS" yaml:"sweep_interval_seconds"`
}

// Window returns the rate-limit window as a time.Duration.
func (c *RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowMS) * time.Millisecond
}

// EmailConfig holds configuration for sending contact-form emails via Resend.
type EmailConfig struct {
	FromAddress    string `mapstructure:"FROM_ADDRESS" yaml:"from_address"`
	FromName       string `mapstructure:"FROM_NAME" yaml:"from_name"`
	ToAddress      string `mapstructure:"TO_ADDRESS" yaml:"to_address"`
	ResendAPIKey   string `mapstructure:"RESEND_API_KEY" yaml:"resend_api_key"`
	TimeoutSeconds int    `mapstructure:"TIMEOUT_SECONDS" yaml:"timeout_seconds"`
}

// RedisConfig holds optional Redis connection details for the rate-limit
// store. When disabled, the in-process memory store is used and limits are
// per-instance only.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"ENABLED" yaml:"enabled"`
	Address  string `mapstructure:"ADDRESS" yaml:"address"`
	Password string `mapstructure:"PASSWORD" yaml:"password"`
	DB       int    `mapstructure:"DB" yaml:"db"`
}

// ValidationConfig holds tunables for the schema validator.
type ValidationConfig struct {
	// DisposableEmailDomains are rejected during email validation
	// (case-insensitive domain match).
	DisposableEmailDomains []string `mapstructure:"DISPOSABLE_EMAIL_DOMAINS" yaml:"disposable_email_domains"`
}

// Config aggregates all application configuration sections.
type Config struct {
	Server     ServerConfig     `mapstructure:"SERVER" yaml:"server"`
	Security   SecurityConfig   `mapstructure:"SECURITY" yaml:"security"`
	RateLimit  RateLimitConfig  `mapstructure:"RATE_LIMIT" yaml:"rate_limit"`
	Email      EmailConfig      `mapstructure:"EMAIL" yaml:"email"`
	Redis      RedisConfig      `mapstructure:"REDIS" yaml:"redis"`
	Validation ValidationConfig `mapstructure:"VALIDATION" yaml:"validation"`
}

// IsDevelopment returns true if the application is running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

// IsProduction returns true if the application is running in production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// bindEnvVars binds multiple environment variables to config keys.
// Format: []{configKey, envVar}
func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables using Viper,
// sets default values, unmarshals the configuration, and validates it.
func LoadConfig() (*Config, error) {
	v := viper.New()
	log := logger.GetLogger()

	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"http://localhost:3000"})
	v.SetDefault("SERVER.TRUSTED_PROXIES", []string{})
	v.SetDefault("SERVER.VERBOSE_ERRORS", false)
	v.SetDefault("SECURITY.MAX_BODY_SIZE", 10240)
	v.SetDefault("SECURITY.BODY_READ_TIMEOUT_SECONDS", 5)
	v.SetDefault("RATE_LIMIT.MAX_REQUESTS", 3)
	v.SetDefault("RATE_LIMIT.WINDOW_MS", 3600000)
	v.SetDefault("RATE_LIMIT.SWEEP_INTERVAL_SECONDS", 60)
	v.SetDefault("EMAIL.FROM_ADDRESS", "onboarding@resend.dev")
	v.SetDefault("EMAIL.FROM_NAME", "Block Nexus")
	v.SetDefault("EMAIL.TO_ADDRESS", "contact@blocknexus.tech")
	v.SetDefault("EMAIL.RESEND_API_KEY", "")
	v.SetDefault("EMAIL.TIMEOUT_SECONDS", 10)
	v.SetDefault("REDIS.ENABLED", false)
	v.SetDefault("REDIS.ADDRESS", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("VALIDATION.DISPOSABLE_EMAIL_DOMAINS", []string{
		"tempmail.com",
		"10minutemail.com",
		"guerrillamail.com",
		"mailinator.com",
		"throwaway.email",
	})
	v.SetDefault("LOG_LEVEL", "info")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind environment variables
	envBindings := [][2]string{
		// Server config
		{"SERVER.ENVIRONMENT", "ENVIRONMENT"},
		{"SERVER.PORT", "PORT"},
		{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		{"SERVER.TRUSTED_PROXIES", "TRUSTED_PROXIES"},
		{"SERVER.VERBOSE_ERRORS", "VERBOSE_ERRORS"},
		// Body guards
		{"SECURITY.MAX_BODY_SIZE", "MAX_BODY_SIZE"},
		{"SECURITY.BODY_READ_TIMEOUT_SECONDS", "BODY_READ_TIMEOUT_SECONDS"},
		// Rate limit config
		{"RATE_LIMIT.MAX_REQUESTS", "RATE_LIMIT_MAX_REQUESTS"},
		{"RATE_LIMIT.WINDOW_MS", "RATE_LIMIT_WINDOW_MS"},
		{"RATE_LIMIT.SWEEP_INTERVAL_SECONDS", "RATE_LIMIT_SWEEP_INTERVAL_SECONDS"},
		// Email config
		{"EMAIL.FROM_ADDRESS", "EMAIL_FROM"},
		{"EMAIL.FROM_NAME", "EMAIL_FROM_NAME"},
		{"EMAIL.TO_ADDRESS", "EMAIL_TO"},
		{"EMAIL.RESEND_API_KEY", "RESEND_API_KEY"},
		{"EMAIL.TIMEOUT_SECONDS", "EMAIL_TIMEOUT_SECONDS"},
		// Redis config
		{"REDIS.ENABLED", "REDIS_ENABLED"},
		{"REDIS.ADDRESS", "REDIS_ADDRESS"},
		{"REDIS.PASSWORD", "REDIS_PASSWORD"},
		{"REDIS.DB", "REDIS_DB"},
		// Validation config
		{"VALIDATION.DISPOSABLE_EMAIL_DOMAINS", "DISPOSABLE_EMAIL_DOMAINS"},
	}

	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Infow("Configuration loaded",
		"environment", cfg.Server.Environment,
		"server_port", cfg.Server.Port,
		"allowed_origins", cfg.Server.AllowedOrigins,
		"max_body_size", cfg.Security.MaxBodySize,
		"rate_limit_max", cfg.RateLimit.MaxRequests,
		"rate_limit_window_ms", cfg.RateLimit.WindowMS,
		"redis_enabled", cfg.Redis.Enabled,
	)

	return &cfg, nil
}

// validateConfig checks if the loaded configuration values are valid.
func validateConfig(cfg *Config) error {
	log := logger.GetLogger()

	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin is required")
	}
	for _, origin := range cfg.Server.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid allowed origin %q: must be scheme://host[:port]", origin)
		}
		if u.Path != "" && u.Path != "/" {
			return fmt.Errorf("invalid allowed origin %q: must not contain a path", origin)
		}
	}

	if cfg.Security.MaxBodySize <= 0 {
		return fmt.Errorf("max body size must be positive")
	}
	if cfg.Security.BodyReadTimeoutSeconds <= 0 {
		return fmt.Errorf("body read timeout must be positive")
	}

	if cfg.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("rate limit max requests must be positive")
	}
	if cfg.RateLimit.WindowMS <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}
	if cfg.RateLimit.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("rate limit sweep interval must be positive")
	}

	if cfg.Email.FromAddress == "" {
		return fmt.Errorf("email from address is required")
	}
	if cfg.Email.ToAddress == "" {
		return fmt.Errorf("email to address is required")
	}
	if cfg.Email.TimeoutSeconds <= 0 {
		return fmt.Errorf("email timeout must be positive")
	}
	if cfg.Email.ResendAPIKey == "" {
		if cfg.IsProduction() {
			return fmt.Errorf("resend API key is required in production")
		}
		log.Warn("RESEND_API_KEY not set; emails will be logged instead of sent")
	}

	if cfg.Redis.Enabled && cfg.Redis.Address == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	return nil
}
