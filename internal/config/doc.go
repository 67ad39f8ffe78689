// Package config manages application configuration for the Shepherd API.
//
// All settings come from environment variables and are decoded into struct
// fields with caarlos0/env tags, so defaults live next to the field they
// configure.
//
// # Configuration Loading
//
//	cfg, err := config.Load()
//	if err != nil { ... }
//	if err := cfg.Validate(); err != nil { ... }
//
// # Configuration Groups
//
//   - ServerConfig: HTTP server settings, church name and locale
//   - DatabaseConfig: SurrealDB connection settings
//   - JWTConfig: access token signing and refresh token lifetime
//   - LogConfig: log level and optional rotating log file
//   - TelemetryConfig: OpenTelemetry exporter endpoint
//   - StripeConfig: hosted checkout and webhook verification
//   - EmailConfig: Resend delivery settings
//   - AIConfig: Gemini model used for matching and lead scoring
//   - InsightsConfig: threshold file, hot reload and the digest job
//   - JobsConfig: reminder job cadence
//
// # Provider Sections
//
// Stripe, email and AI are optional. Each exposes IsConfigured so the
// server can fall back (log mailer, 503 for checkout and AI routes) when the
// provider is absent. A partially configured Stripe section fails Validate.
package config
