package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Log       LogConfig
	Telemetry TelemetryConfig
	Stripe    StripeConfig
	Email     EmailConfig
	AI        AIConfig
	Insights  InsightsConfig
	Jobs      JobsConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string        `env:"SERVER_PORT" envDefault:"8080"`
	Env            string        `env:"SERVER_ENV" envDefault:"development"`
	BaseURL        string        `env:"SERVER_BASE_URL" envDefault:"http://localhost:3000"`
	ReadTimeout    time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout   time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	ChurchName     string        `env:"CHURCH_NAME" envDefault:"Shepherd Community Church"`
	Locale         string        `env:"CHURCH_LOCALE" envDefault:"en-US"`
}

// DatabaseConfig holds SurrealDB connection settings
type DatabaseConfig struct {
	Host      string `env:"DB_HOST" envDefault:"localhost"`
	Port      string `env:"DB_PORT" envDefault:"8000"`
	Namespace string `env:"DB_NAMESPACE" envDefault:"shepherd"`
	Database  string `env:"DB_DATABASE" envDefault:"main"`
	User      string `env:"DB_USER" envDefault:"root"`
	Password  string `env:"DB_PASSWORD" envDefault:"root"`
}

// JWTConfig holds JWT signing settings
type JWTConfig struct {
	PrivateKeyPath string        `env:"JWT_PRIVATE_KEY_PATH" envDefault:"./keys/private.pem"`
	PublicKeyPath  string        `env:"JWT_PUBLIC_KEY_PATH" envDefault:"./keys/public.pem"`
	ExpirationMins int           `env:"JWT_EXPIRATION_MINS" envDefault:"15"`
	RefreshTTL     time.Duration `env:"JWT_REFRESH_TTL" envDefault:"720h"`
	Issuer         string        `env:"JWT_ISSUER" envDefault:"shepherd.forgo.software"`
}

// LogConfig controls the slog handler and optional file rotation
type LogConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"28"`
}

// TelemetryConfig holds OpenTelemetry exporter settings
type TelemetryConfig struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"true"`
	Endpoint    string `env:"OTEL_EXPORTER_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"shepherd-api"`
}

// StripeConfig holds hosted checkout settings
type StripeConfig struct {
	SecretKey       string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret   string `env:"STRIPE_WEBHOOK_SECRET"`
	SuccessURL      string `env:"STRIPE_SUCCESS_URL"`
	CancelURL       string `env:"STRIPE_CANCEL_URL"`
	DefaultCurrency string `env:"STRIPE_DEFAULT_CURRENCY" envDefault:"usd"`
}

// EmailConfig holds outbound email settings
type EmailConfig struct {
	ResendAPIKey string `env:"RESEND_API_KEY"`
	From         string `env:"EMAIL_FROM" envDefault:"Shepherd <no-reply@shepherd.local>"`
	ReplyTo      string `env:"EMAIL_REPLY_TO"`
}

// AIConfig holds generative model settings
type AIConfig struct {
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	Model        string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
}

// InsightsConfig holds analytics insight settings
type InsightsConfig struct {
	ConfigPath       string        `env:"INSIGHTS_CONFIG_PATH"`
	Watch            bool          `env:"INSIGHTS_WATCH" envDefault:"false"`
	DigestInterval   time.Duration `env:"INSIGHTS_DIGEST_INTERVAL" envDefault:"0s"`
	DigestWindowDays int           `env:"INSIGHTS_DIGEST_WINDOW_DAYS" envDefault:"7"`
	DigestRecipients []string      `env:"INSIGHTS_DIGEST_RECIPIENTS" envSeparator:","`
}

// JobsConfig holds background job settings
type JobsConfig struct {
	ReminderInterval  time.Duration `env:"REMINDER_INTERVAL" envDefault:"15m"`
	ReminderLookahead time.Duration `env:"REMINDER_LOOKAHEAD" envDefault:"24h"`
	SessionSweep      time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"6h"`
}

// RateLimitConfig holds per-client request limits
type RateLimitConfig struct {
	Rate     int           `env:"RATE_LIMIT_RATE" envDefault:"100"`
	Window   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	Burst    int           `env:"RATE_LIMIT_BURST" envDefault:"20"`
	FormRate int           `env:"RATE_LIMIT_FORM_RATE" envDefault:"10"`
}

// Load parses the environment. Call Validate before using the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool { return c.Server.Env == "development" }
func (c *Config) IsProduction() bool  { return c.Server.Env == "production" }

// problems collects every configuration failure so one boot reports all of them
type problems []error

func (p *problems) require(ok bool, format string, args ...any) {
	if !ok {
		*p = append(*p, fmt.Errorf(format, args...))
	}
}

// Validate reports every invalid setting at once, joined
func (c *Config) Validate() error {
	var p problems
	c.Server.check(&p)
	c.Database.check(&p)
	c.JWT.check(&p, c.IsProduction())

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		p.require(false, "LOG_LEVEL must be one of debug, info, warn, error, got '%s'", c.Log.Level)
	}

	if c.Stripe.IsConfigured() {
		if err := c.Stripe.Validate(); err != nil {
			p = append(p, fmt.Errorf("Stripe: %w", err))
		}
	}
	if c.Insights.DigestInterval > 0 {
		p.require(len(c.Insights.DigestRecipients) > 0, "INSIGHTS_DIGEST_RECIPIENTS is required when INSIGHTS_DIGEST_INTERVAL is set")
		p.require(c.Insights.DigestWindowDays >= 1, "INSIGHTS_DIGEST_WINDOW_DAYS must be positive")
	}
	p.require(c.Jobs.ReminderInterval > 0, "REMINDER_INTERVAL must be positive")
	p.require(c.Jobs.SessionSweep > 0, "SESSION_SWEEP_INTERVAL must be positive")
	p.require(c.RateLimit.Rate > 0 && c.RateLimit.FormRate > 0, "RATE_LIMIT_RATE and RATE_LIMIT_FORM_RATE must be positive")

	return errors.Join(p...)
}

func (s ServerConfig) check(p *problems) {
	p.require(s.Port != "", "SERVER_PORT is required")
	switch s.Env {
	case "development", "production", "test":
	default:
		p.require(false, "SERVER_ENV must be 'development', 'production', or 'test', got '%s'", s.Env)
	}
	p.require(len(s.AllowedOrigins) > 0, "CORS_ALLOWED_ORIGINS must have at least one origin")
	if s.Env == "production" {
		p.require(!slices.Contains(s.AllowedOrigins, "*"), "CORS_ALLOWED_ORIGINS must not contain '*' in production")
	}
	p.require(s.ChurchName != "", "CHURCH_NAME is required")
}

func (d DatabaseConfig) check(p *problems) {
	for _, f := range []struct{ name, value string }{
		{"DB_HOST", d.Host},
		{"DB_PORT", d.Port},
		{"DB_NAMESPACE", d.Namespace},
		{"DB_DATABASE", d.Database},
	} {
		p.require(f.value != "", "%s is required", f.name)
	}
}

func (j JWTConfig) check(p *problems, production bool) {
	if production {
		p.require(j.PrivateKeyPath != "", "JWT_PRIVATE_KEY_PATH is required in production")
		p.require(j.PublicKeyPath != "", "JWT_PUBLIC_KEY_PATH is required in production")
	}
	p.require(j.ExpirationMins > 0, "JWT_EXPIRATION_MINS must be positive")
	p.require(j.RefreshTTL > 0, "JWT_REFRESH_TTL must be positive")
}

// IsConfigured is true once either Stripe secret is set; Validate then
// requires the rest
func (s StripeConfig) IsConfigured() bool {
	return s.SecretKey != "" || s.WebhookSecret != ""
}

// Validate names every missing Stripe setting
func (s StripeConfig) Validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"STRIPE_SECRET_KEY", s.SecretKey},
		{"STRIPE_WEBHOOK_SECRET", s.WebhookSecret},
		{"STRIPE_SUCCESS_URL", s.SuccessURL},
		{"STRIPE_CANCEL_URL", s.CancelURL},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (e EmailConfig) IsConfigured() bool { return e.ResendAPIKey != "" }

func (a AIConfig) IsConfigured() bool { return a.GeminiAPIKey != "" }
