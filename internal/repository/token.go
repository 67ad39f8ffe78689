package repository

import (
	"context"
	"time"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/service"
)

// revokedRetention is how long spent sessions are kept so a replayed token
// is still recognised as stolen rather than unknown
const revokedRetention = 7 * 24 * time.Hour

// TokenRepository stores member sessions (hashed refresh tokens)
type TokenRepository struct {
	db  database.Database
	now func() time.Time
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(db database.Database) *TokenRepository {
	return &TokenRepository{db: db, now: time.Now}
}

// CreateRefreshToken records a session; the service supplies both timestamps
func (r *TokenRepository) CreateRefreshToken(ctx context.Context, token *service.RefreshToken) error {
	created, err := createOne[service.RefreshToken](ctx, r.db, `
		CREATE refresh_token CONTENT {
			user_id: type::record($user),
			token_hash: $hash,
			expires_at: <datetime>$expires,
			created_at: <datetime>$created,
			revoked: false
		}`,
		map[string]interface{}{
			"user":    token.UserID,
			"hash":    token.TokenHash,
			"expires": timeVar(token.ExpiresAt),
			"created": timeVar(token.CreatedAt),
		})
	if err != nil {
		return err
	}
	token.ID = created.ID
	return nil
}

func (r *TokenRepository) GetRefreshTokenByHash(ctx context.Context, hash string) (*service.RefreshToken, error) {
	return getOne[service.RefreshToken](ctx, r.db,
		`SELECT * FROM refresh_token WHERE token_hash = $hash LIMIT 1`,
		map[string]interface{}{"hash": hash})
}

// RevokeRefreshToken spends one session and stamps when it happened
func (r *TokenRepository) RevokeRefreshToken(ctx context.Context, hash string) error {
	return r.db.Execute(ctx,
		`UPDATE refresh_token SET revoked = true, revoked_at = time::now() WHERE token_hash = $hash AND revoked = false`,
		map[string]interface{}{"hash": hash})
}

// RevokeAllUserTokens ends every live session of a member
func (r *TokenRepository) RevokeAllUserTokens(ctx context.Context, userID string) error {
	return r.db.Execute(ctx,
		`UPDATE refresh_token SET revoked = true, revoked_at = time::now() WHERE user_id = type::record($user) AND revoked = false`,
		map[string]interface{}{"user": userID})
}

// DeleteExpiredTokens drops sessions past their expiry, spent or not
func (r *TokenRepository) DeleteExpiredTokens(ctx context.Context) error {
	return r.db.Execute(ctx, `DELETE refresh_token WHERE expires_at < time::now()`, nil)
}

// CleanupRevokedTokens drops sessions spent longer ago than revokedRetention.
// Rows from before revoked_at existed fall back to created_at.
func (r *TokenRepository) CleanupRevokedTokens(ctx context.Context) error {
	return r.db.Execute(ctx, `
		DELETE refresh_token WHERE revoked = true
			AND (revoked_at ?? created_at) < <datetime>$cutoff`,
		map[string]interface{}{"cutoff": timeVar(r.now().Add(-revokedRetention))})
}
