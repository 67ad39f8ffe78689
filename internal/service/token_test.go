package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/forgo/shepherd/api/internal/model"
	"github.com/forgo/shepherd/api/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Fakes
// ============================================================================

// sessionStore is an in-memory TokenRepository
type sessionStore struct {
	mu        sync.Mutex
	byHash    map[string]*RefreshToken
	createErr error
	revokeErr error
	sweepErr  error
	swept     int
}

func newSessionStore() *sessionStore {
	return &sessionStore{byHash: make(map[string]*RefreshToken)}
}

func (s *sessionStore) CreateRefreshToken(_ context.Context, token *RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	cp := *token
	s.byHash[token.TokenHash] = &cp
	return nil
}

func (s *sessionStore) GetRefreshTokenByHash(_ context.Context, hash string) (*RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byHash[hash]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s *sessionStore) RevokeRefreshToken(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revokeErr != nil {
		return s.revokeErr
	}
	if t, ok := s.byHash[hash]; ok {
		t.Revoked = true
	}
	return nil
}

func (s *sessionStore) RevokeAllUserTokens(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.byHash {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func (s *sessionStore) DeleteExpiredTokens(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swept++
	return s.sweepErr
}

func (s *sessionStore) CleanupRevokedTokens(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swept++
	return nil
}

func (s *sessionStore) live(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.byHash {
		if t.UserID == userID && !t.Revoked {
			n++
		}
	}
	return n
}

type tokenFixture struct {
	svc   *TokenService
	store *sessionStore
	users *memberStore
	now   time.Time
	ruth  *model.User
}

func newTokenFixture(t *testing.T) *tokenFixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &tokenFixture{
		store: newSessionStore(),
		users: newMemberStore(),
		now:   time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	f.svc = NewTokenService(TokenServiceConfig{
		JWTService:      jwt.NewTestService(key, "shepherd-test", 15*time.Minute),
		TokenRepo:       f.store,
		RefreshDuration: 7 * 24 * time.Hour,
		Now:             func() time.Time { return f.now },
	})

	first, last := "Ruth", "Moab"
	f.ruth = &model.User{ID: "user:ruth", Email: "ruth@example.org", Firstname: &first, Lastname: &last, Role: model.UserRoleMember}
	f.users.byID[f.ruth.ID] = f.ruth
	return f
}

// ============================================================================
// Issue
// ============================================================================

func TestIssue_AccessTokenCarriesMember(t *testing.T) {
	t.Parallel()
	f := newTokenFixture(t)

	pair, err := f.svc.Issue(context.Background(), f.ruth)
	require.NoError(t, err)

	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, 900, pair.ExpiresIn)

	claims, err := f.svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user:ruth", claims.UserID)
	assert.Equal(t, "user:ruth", claims.Subject)
	assert.Equal(t, "Ruth Moab", claims.Name)
	assert.Equal(t, jwt.RoleMember, claims.Role)
}

func TestIssue_StoresOnlyTheHash(t *testing.T) {
	t.Parallel()
	f := newTokenFixture(t)

	pair, err := f.svc.Issue(context.Background(), f.ruth)
	require.NoError(t, err)

	stored, err := f.store.GetRefreshTokenByHash(context.Background(), hashToken(pair.RefreshToken))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, pair.RefreshToken, stored.TokenHash)
	assert.Equal(t, f.now.Add(7*24*time.Hour), stored.ExpiresAt)
	assert.Equal(t, f.now, stored.CreatedAt)
}

func TestIssue_RepoError(t *testing.T) {
	t.Parallel()
	f := newTokenFixture(t)
	f.store.createErr = errors.New("connection reset")

	_, err := f.svc.Issue(context.Background(), f.ruth)
	assert.ErrorIs(t, err, f.store.createErr)
}

func TestIssue_EntropyFailure(t *testing.T) {
	t.Parallel()
	f := newTokenFixture(t)
	f.svc.entropy = bytes.NewReader([]byte("short"))

	_, err := f.svc.Issue(context.Background(), f.ruth)
	assert.ErrorContains(t, err, "generate refresh token")
}

func TestIssue_RefreshTokensAreUnique(t *testing.T) {
	t.Parallel()
	f := newTokenFixture(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		pair, err := f.svc.Issue(context.Background(), f.ruth)
		require.NoError(t, err)
		require.False(t, seen[pair.RefreshToken], "duplicate refresh token")
		seen[pair.RefreshToken] = true
		assert.Len(t, pair.RefreshToken, 43) // 32 bytes, unpadded base64url
	}
}

// ============================================================================
// Rotate
// ============================================================================

func TestRotate_SpendsOldTokenAndIssuesNew(t *testing.T) {
	t.Parallel()
	f := newTokenFixture(t)
	ctx := context.Background()

	first, err := f.svc.Issue(ctx, f.ruth)
	require.NoError(t, err)

	second, err := f.svc.Rotate(ctx, first.RefreshToken, f.users)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, 1, f.store.live("user:ruth"))
}

func TestRotate_PicksUpRoleChange(t *testing.T) {
	t.Parallel()
	f := newTokenFixture(t)
	ctx := context.Background()

	pair, err := f.svc.Issue(ctx, f.ruth)
	require.NoError(t, err)
	f.ruth.Role = model.UserRoleStaff

	pair, err = f.svc.Rotate(ctx, pair.RefreshToken, f.users)
	require.NoError(t, err)

	claims, err := f.svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.IsStaff())
}

func TestRotate_ReplayedTokenEndsAllSessions(t *testing.T) {
	t.Parallel()
	f := newTokenFixture(t)
	ctx := context.Background()

	phone, err := f.svc.Issue(ctx, f.ruth)
	require.NoError(t, err)
	_, err = f.svc.Issue(ctx, f.ruth) // laptop
	require.NoError(t, err)

	_, err = f.svc.Rotate(ctx, phone.RefreshToken, f.users)
	require.NoError(t, err)
	require.Equal(t, 2, f.store.live("user:ruth"))

	_, err = f.svc.Rotate(ctx, phone.RefreshToken, f.users)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)
	assert.Zero(t, f.store.live("user:ruth"))
}

func TestRotate_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		prepare func(f *tokenFixture, raw string) string
		want    error
	}{
		{
			name:    "empty",
			prepare: func(*tokenFixture, string) string { return "" },
			want:    ErrInvalidRefreshToken,
		},
		{
			name:    "unknown",
			prepare: func(*tokenFixture, string) string { return "not-a-session" },
			want:    ErrInvalidRefreshToken,
		},
		{
			name: "expired",
			prepare: func(f *tokenFixture, raw string) string {
				f.now = f.now.Add(7 * 24 * time.Hour)
				return raw
			},
			want: ErrRefreshTokenExpired,
		},
		{
			name: "member removed",
			prepare: func(f *tokenFixture, raw string) string {
				delete(f.users.byID, "user:ruth")
				return raw
			},
			want: ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newTokenFixture(t)
			ctx := context.Background()

			pair, err := f.svc.Issue(ctx, f.ruth)
			require.NoError(t, err)

			_, err = f.svc.Rotate(ctx, tt.prepare(f, pair.RefreshToken), f.users)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRotate_RemovedMemberSessionIsSpent(t *testing.T) {
	t.Parallel()
	f := newTokenFixture(t)
	ctx := context.Background()

	pair, err := f.svc.Issue(ctx, f.ruth)
	require.NoError(t, err)
	delete(f.users.byID, "user:ruth")

	_, err = f.svc.Rotate(ctx, pair.RefreshToken, f.users)
	require.ErrorIs(t, err, ErrUserNotFound)
	assert.Zero(t, f.store.live("user:ruth"))
}

func TestRotate_LookupErrorPassesThrough(t *testing.T) {
	t.Parallel()
	f := newTokenFixture(t)
	ctx := context.Background()

	pair, err := f.svc.Issue(ctx, f.ruth)
	require.NoError(t, err)
	f.users.getErr = errors.New("db down")

	_, err = f.svc.Rotate(ctx, pair.RefreshToken, f.users)
	assert.EqualError(t, err, "db down")
	assert.Equal(t, 1, f.store.live("user:ruth"), "session survives a transient failure")
}

// ============================================================================
// RevokeAll / Sweep
// ============================================================================

func TestRevokeAll(t *testing.T) {
	t.Parallel()
	f := newTokenFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Issue(ctx, f.ruth)
		require.NoError(t, err)
	}

	require.NoError(t, f.svc.RevokeAll(ctx, "user:ruth"))
	assert.Zero(t, f.store.live("user:ruth"))
}

func TestSweep_RunsBothCleanups(t *testing.T) {
	t.Parallel()
	f := newTokenFixture(t)

	require.NoError(t, f.svc.Sweep(context.Background()))
	assert.Equal(t, 2, f.store.swept)
}

func TestSweep_ReportsErrorButStillCleansRevoked(t *testing.T) {
	t.Parallel()
	f := newTokenFixture(t)
	f.store.sweepErr = errors.New("timeout")

	err := f.svc.Sweep(context.Background())
	assert.ErrorIs(t, err, f.store.sweepErr)
	assert.Equal(t, 2, f.store.swept)
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	t.Parallel()
	f := newTokenFixture(t)

	_, err := f.svc.ValidateAccessToken("eyJ.not.valid")
	assert.Error(t, err)
}

func TestHashToken(t *testing.T) {
	t.Parallel()

	assert.Equal(t, hashToken("abc"), hashToken("abc"))
	assert.NotEqual(t, hashToken("abc"), hashToken("abd"))
	assert.Len(t, hashToken("abc"), 64)
}
