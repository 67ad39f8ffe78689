// Package middleware provides HTTP middleware for the Shepherd API.
//
// # Available Middleware
//
//   - Auth / OptionalAuth: bearer token validation
//   - RequireStaff / RequireAdmin: role checks against the current user record
//   - RateLimiter: token bucket per user, or per client IP when anonymous
//   - Idempotency: replays POST/PATCH responses for a repeated Idempotency-Key
//   - Tracing: OpenTelemetry server spans
//   - AuditContext: carries the client IP into audit entries
//   - RequestID, Logger, Recovery, CORS, Compress
//
// Handlers compose them with Chain:
//
//	admin := middleware.Chain(h, middleware.Auth(jwtSvc), middleware.RequireStaff(users))
//
// # Context Values
//
//   - GetUserID(ctx): authenticated user ID
//   - GetClaims(ctx): access token claims
//   - GetRole(ctx): role verified by RequireRole
//   - GetRequestID(ctx): request identifier
//
// Errors are written as RFC 9457 problem details.
package middleware
