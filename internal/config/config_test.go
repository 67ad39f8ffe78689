package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			Env:            "development",
			AllowedOrigins: []string{"http://localhost:3000"},
			ChurchName:     "Grace Chapel",
			Locale:         "en-US",
		},
		Database: DatabaseConfig{Host: "localhost", Port: "8000", Namespace: "shepherd", Database: "main"},
		JWT: JWTConfig{
			PrivateKeyPath: "./keys/private.pem",
			PublicKeyPath:  "./keys/public.pem",
			ExpirationMins: 15,
			RefreshTTL:     720 * time.Hour,
			Issuer:         "shepherd.forgo.software",
		},
		Log:       LogConfig{Level: "info"},
		Jobs:      JobsConfig{ReminderInterval: 15 * time.Minute, ReminderLookahead: 24 * time.Hour, SessionSweep: 6 * time.Hour},
		RateLimit: RateLimitConfig{Rate: 100, Window: time.Minute, Burst: 20, FormRate: 10},
	}
}

// ============================================================================
// Validate
// ============================================================================

func TestValidate_AcceptsBaseline(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validConfig().Validate())
	assert.False(t, validConfig().Stripe.IsConfigured())
}

func TestValidate_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		mention []string
	}{
		{"unknown env", func(c *Config) { c.Server.Env = "staging" }, []string{"SERVER_ENV"}},
		{"no port", func(c *Config) { c.Server.Port = "" }, []string{"SERVER_PORT"}},
		{"no origins", func(c *Config) { c.Server.AllowedOrigins = nil }, []string{"CORS_ALLOWED_ORIGINS"}},
		{"wildcard origin in production", func(c *Config) {
			c.Server.Env = "production"
			c.Server.AllowedOrigins = []string{"https://church.example", "*"}
		}, []string{"'*'"}},
		{"no church name", func(c *Config) { c.Server.ChurchName = "" }, []string{"CHURCH_NAME"}},
		{"no db host", func(c *Config) { c.Database.Host = "" }, []string{"DB_HOST"}},
		{"zero access ttl", func(c *Config) { c.JWT.ExpirationMins = 0 }, []string{"JWT_EXPIRATION_MINS"}},
		{"production without keys", func(c *Config) {
			c.Server.Env = "production"
			c.JWT.PrivateKeyPath, c.JWT.PublicKeyPath = "", ""
		}, []string{"JWT_PRIVATE_KEY_PATH", "JWT_PUBLIC_KEY_PATH"}},
		{"unknown log level", func(c *Config) { c.Log.Level = "verbose" }, []string{"LOG_LEVEL"}},
		{"partial stripe", func(c *Config) { c.Stripe.SecretKey = "sk_test_123" },
			[]string{"STRIPE_WEBHOOK_SECRET", "STRIPE_SUCCESS_URL", "STRIPE_CANCEL_URL"}},
		{"digest without recipients", func(c *Config) { c.Insights.DigestInterval = 24 * time.Hour },
			[]string{"INSIGHTS_DIGEST_RECIPIENTS"}},
		{"zero sweep", func(c *Config) { c.Jobs.SessionSweep = 0 }, []string{"SESSION_SWEEP_INTERVAL"}},
		{"zero form rate", func(c *Config) { c.RateLimit.FormRate = 0 }, []string{"RATE_LIMIT_FORM_RATE"}},
		{"several at once", func(c *Config) {
			c.Server.Port = ""
			c.Database.Host = ""
			c.JWT.ExpirationMins = -1
		}, []string{"SERVER_PORT", "DB_HOST", "JWT_EXPIRATION_MINS"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			for _, want := range tt.mention {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestStripeValidate_NamesOnlyMissing(t *testing.T) {
	t.Parallel()

	err := StripeConfig{SecretKey: "sk_test_123", WebhookSecret: "whsec_1"}.Validate()
	require.Error(t, err)
	assert.Equal(t, "missing required fields: STRIPE_SUCCESS_URL, STRIPE_CANCEL_URL", err.Error())
}

// ============================================================================
// Load
// ============================================================================

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "shepherd", cfg.Database.Namespace)
	assert.Equal(t, 24*time.Hour, cfg.Jobs.ReminderLookahead)
	assert.Equal(t, 6*time.Hour, cfg.Jobs.SessionSweep)
	assert.Equal(t, 10, cfg.RateLimit.FormRate)
	assert.False(t, cfg.AI.IsConfigured())
	assert.False(t, cfg.Email.IsConfigured())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("REMINDER_INTERVAL", "5m")
	t.Setenv("INSIGHTS_DIGEST_RECIPIENTS", "pastor@example.org,elders@example.org")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 5*time.Minute, cfg.Jobs.ReminderInterval)
	assert.Len(t, cfg.Insights.DigestRecipients, 2)
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("SERVER_READ_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
}
