package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/forgo/shepherd/api/internal/model"
	"github.com/forgo/shepherd/api/pkg/jwt"
)

// DefaultSessionTTL is how long a member stays signed in without using the app
const DefaultSessionTTL = 30 * 24 * time.Hour

// RefreshToken is a stored session. Only the SHA-256 of the opaque token is kept.
type RefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	Revoked   bool      `json:"revoked"`
}

// TokenRepository stores sessions
type TokenRepository interface {
	CreateRefreshToken(ctx context.Context, token *RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, hash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, hash string) error
	RevokeAllUserTokens(ctx context.Context, userID string) error
	DeleteExpiredTokens(ctx context.Context) error
	CleanupRevokedTokens(ctx context.Context) error
}

// AccessSigner signs and checks short-lived access tokens
type AccessSigner interface {
	Sign(claims jwt.Claims) (string, error)
	Validate(token string) (*jwt.Claims, error)
	GetExpiration() time.Duration
}

// TokenPair is what a member receives after signing in or refreshing
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"` // access token lifetime in seconds
}

// TokenService issues access tokens and rotates refresh tokens. Each refresh
// token works once; presenting a spent token ends every session of that
// member, since only a stolen copy would be replayed.
type TokenService struct {
	signer     AccessSigner
	repo       TokenRepository
	sessionTTL time.Duration
	now        func() time.Time
	entropy    io.Reader
}

// TokenServiceConfig holds configuration for the token service
type TokenServiceConfig struct {
	JWTService      AccessSigner
	TokenRepo       TokenRepository
	RefreshDuration time.Duration // default DefaultSessionTTL
	Now             func() time.Time
	Entropy         io.Reader // default crypto/rand
}

// NewTokenService creates a new token service
func NewTokenService(cfg TokenServiceConfig) *TokenService {
	if cfg.RefreshDuration <= 0 {
		cfg.RefreshDuration = DefaultSessionTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Entropy == nil {
		cfg.Entropy = rand.Reader
	}
	return &TokenService{
		signer:     cfg.JWTService,
		repo:       cfg.TokenRepo,
		sessionTTL: cfg.RefreshDuration,
		now:        cfg.Now,
		entropy:    cfg.Entropy,
	}
}

// Issue starts a new session for the member
func (s *TokenService) Issue(ctx context.Context, user *model.User) (*TokenPair, error) {
	claims := jwt.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.DisplayName(),
		Role:   string(user.Role),
	}

	access, err := s.signer.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	raw, err := s.newOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := s.now()
	if err := s.repo.CreateRefreshToken(ctx, &RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(raw),
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: raw,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.signer.GetExpiration().Seconds()),
	}, nil
}

// Rotate spends a refresh token and issues a new pair. The member is loaded
// fresh so a role change or removed account takes effect on the next refresh.
func (s *TokenService) Rotate(ctx context.Context, raw string, users UserLookup) (*TokenPair, error) {
	if raw == "" {
		return nil, ErrInvalidRefreshToken
	}
	hash := hashToken(raw)

	stored, err := s.repo.GetRefreshTokenByHash(ctx, hash)
	if err != nil || stored == nil {
		return nil, ErrInvalidRefreshToken
	}

	if stored.Revoked {
		if err := s.repo.RevokeAllUserTokens(ctx, stored.UserID); err != nil {
			return nil, errors.Join(ErrRefreshTokenRevoked, err)
		}
		return nil, ErrRefreshTokenRevoked
	}
	if !s.now().Before(stored.ExpiresAt) {
		return nil, ErrRefreshTokenExpired
	}

	user, err := users.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = s.repo.RevokeRefreshToken(ctx, hash)
		return nil, ErrUserNotFound
	}

	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil {
		return nil, err
	}
	return s.Issue(ctx, user)
}

// ValidateAccessToken checks an access token and returns its claims
func (s *TokenService) ValidateAccessToken(token string) (*jwt.Claims, error) {
	return s.signer.Validate(token)
}

// RevokeAll signs the member out everywhere
func (s *TokenService) RevokeAll(ctx context.Context, userID string) error {
	return s.repo.RevokeAllUserTokens(ctx, userID)
}

// Sweep deletes expired sessions and old revoked ones
func (s *TokenService) Sweep(ctx context.Context) error {
	return errors.Join(
		s.repo.DeleteExpiredTokens(ctx),
		s.repo.CleanupRevokedTokens(ctx),
	)
}

func (s *TokenService) newOpaqueToken() (string, error) {
	b := make([]byte, 32)
	if _, err := io.ReadFull(s.entropy, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
