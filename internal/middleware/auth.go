package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/forgo/shepherd/api/internal/model"
	"github.com/forgo/shepherd/api/pkg/jwt"
)

// AuthService defines the interface for token validation
type AuthService interface {
	ValidateAccessToken(token string) (*jwt.Claims, error)
}

// ClaimsKey is the context key for the validated access token claims
const ClaimsKey contextKey = "claims"

var (
	errNoCredentials = errors.New("missing authorization header")
	errBadScheme     = errors.New("invalid authorization header format")
)

// bearerToken pulls the token out of "Authorization: Bearer <token>"
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errNoCredentials
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errBadScheme
	}
	return token, nil
}

// authenticate resolves the caller's claims from the request
func authenticate(svc AuthService, r *http.Request) (*jwt.Claims, error) {
	token, err := bearerToken(r)
	if err != nil {
		return nil, err
	}
	return svc.ValidateAccessToken(token)
}

func unauthorized(err error) *model.ProblemDetails {
	switch {
	case errors.Is(err, errNoCredentials), errors.Is(err, errBadScheme):
		return model.NewUnauthorizedError(err.Error())
	case errors.Is(err, jwt.ErrTokenExpired):
		return model.NewUnauthorizedError("token expired").WithCode(model.ErrCodeTokenExpired)
	case errors.Is(err, jwt.ErrInvalidSignature):
		return model.NewUnauthorizedError("invalid token signature").WithCode(model.ErrCodeTokenInvalid)
	default:
		return model.NewUnauthorizedError("invalid token").WithCode(model.ErrCodeTokenInvalid)
	}
}

// Auth rejects requests without a valid access token and stores the
// member's claims in the request context
func Auth(authService AuthService) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authenticate(authService, r)
			if err != nil {
				unauthorized(err).WriteJSON(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// OptionalAuth identifies the member when a valid token is present and lets
// anonymous or badly authenticated requests through untouched. The server
// installs it globally so rate limits can key on member ids.
func OptionalAuth(authService AuthService) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, err := authenticate(authService, r); err == nil {
				r = r.WithContext(withClaims(r.Context(), claims))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserID returns the authenticated member's record id, or ""
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

// GetClaims returns the validated token claims, or nil
func GetClaims(ctx context.Context) *jwt.Claims {
	claims, _ := ctx.Value(ClaimsKey).(*jwt.Claims)
	return claims
}

func withClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	return context.WithValue(ctx, ClaimsKey, claims)
}
