package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/model"
	"github.com/forgo/shepherd/api/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// ============================================================================
// Fakes
// ============================================================================

// memberStore is an in-memory UserRepository keyed by id and email
type memberStore struct {
	mu        sync.Mutex
	byID      map[string]*model.User
	byEmail   map[string]*model.User
	createErr error
	getErr    error
	logins    int
}

func newMemberStore() *memberStore {
	return &memberStore{byID: map[string]*model.User{}, byEmail: map[string]*model.User{}}
}

func (m *memberStore) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = "user:" + user.Email
	user.CreatedOn = time.Now()
	user.UpdatedOn = user.CreatedOn
	m.byID[user.ID] = user
	m.byEmail[user.Email] = user
	return nil
}

func (m *memberStore) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.byID[id], nil
}

func (m *memberStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.byEmail[email], nil
}

func (m *memberStore) TouchLogin(context.Context, string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins++
	return nil
}

type welcomeOutbox struct {
	mu   sync.Mutex
	sent []model.Recipient
	err  error
}

func (w *welcomeOutbox) Welcome(_ context.Context, to model.Recipient) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sent = append(w.sent, to)
	return w.err
}

type authFixture struct {
	svc      *AuthService
	users    *memberStore
	sessions *sessionStore
	outbox   *welcomeOutbox
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &authFixture{users: newMemberStore(), sessions: newSessionStore(), outbox: &welcomeOutbox{}}
	tokens := NewTokenService(TokenServiceConfig{
		JWTService:      jwt.NewTestService(key, "shepherd-test", 15*time.Minute),
		TokenRepo:       f.sessions,
		RefreshDuration: 24 * time.Hour,
	})
	f.svc = NewAuthService(AuthServiceConfig{UserRepo: f.users, TokenService: tokens, Welcome: f.outbox})
	return f
}

func (f *authFixture) register(t *testing.T, email, password string) *AuthResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), RegisterRequest{Email: email, Password: password})
	require.NoError(t, err)
	return res
}

// ============================================================================
// Register
// ============================================================================

func TestRegister_CreatesMember(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)

	res, err := f.svc.Register(context.Background(), RegisterRequest{
		Email:     " Ruth@Example.org ",
		Password:  "gleaning42",
		Firstname: " Ruth ",
		Lastname:  "Moab",
	})
	require.NoError(t, err)

	assert.Equal(t, "ruth@example.org", res.User.Email)
	assert.Equal(t, model.UserRoleMember, res.User.Role)
	require.NotNil(t, res.User.Firstname)
	assert.Equal(t, "Ruth", *res.User.Firstname)
	require.NotNil(t, res.User.Hash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*res.User.Hash), []byte("gleaning42")))
	require.NotNil(t, res.TokenPair)
	assert.NotEmpty(t, res.TokenPair.AccessToken)

	assert.Contains(t, f.users.byEmail, "ruth@example.org")
	assert.Equal(t, 1, f.sessions.live(res.User.ID))
	require.Len(t, f.outbox.sent, 1)
	assert.Equal(t, "Ruth", f.outbox.sent[0].Firstname)
}

func TestRegister_WelcomeFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	f.outbox.err = errors.New("resend down")

	_, err := f.svc.Register(context.Background(), RegisterRequest{Email: "boaz@example.org", Password: "threshing9"})
	assert.NoError(t, err)
}

func TestRegister_RejectsBadEmail(t *testing.T) {
	t.Parallel()

	for _, email := range []string{"", "testexample.com", "test@", "@example.com", "test@example"} {
		t.Run(email, func(t *testing.T) {
			t.Parallel()
			f := newAuthFixture(t)
			_, err := f.svc.Register(context.Background(), RegisterRequest{Email: email, Password: "password123"})
			assert.ErrorIs(t, err, ErrInvalidEmail)
		})
	}
}

func TestRegister_RejectsBadPassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, password string
		want           error
	}{
		{"empty", "", ErrPasswordRequired},
		{"seven chars", "abcdef1", ErrPasswordTooShort},
		{"too long", "a1" + string(make([]byte, maxPasswordLength)), ErrPasswordTooLong},
		{"letters only", "password", ErrPasswordTooWeak},
		{"digits only", "12345678", ErrPasswordTooWeak},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newAuthFixture(t)
			_, err := f.svc.Register(context.Background(), RegisterRequest{Email: "test@example.com", Password: tt.password})
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.users.byID)
		})
	}
}

func TestRegister_EmailTaken(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	f.register(t, "test@example.com", "password123")

	_, err := f.svc.Register(context.Background(), RegisterRequest{Email: "TEST@example.com", Password: "different123"})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestRegister_LostInsertRace(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	f.users.createErr = database.ErrDuplicate

	_, err := f.svc.Register(context.Background(), RegisterRequest{Email: "race@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

// ============================================================================
// Login
// ============================================================================

func TestLogin(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	f.register(t, "naomi@example.org", "bethlehem1")
	ctx := context.Background()

	res, err := f.svc.Login(ctx, LoginRequest{Email: " Naomi@Example.org ", Password: "bethlehem1"})
	require.NoError(t, err)
	assert.Equal(t, "naomi@example.org", res.User.Email)
	assert.Equal(t, 1, f.users.logins)

	_, err = f.svc.Login(ctx, LoginRequest{Email: "naomi@example.org", Password: "moab12345"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, LoginRequest{Email: "orpah@example.org", Password: "bethlehem1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Equal(t, 1, f.users.logins)
}

func TestLogin_MemberWithoutPassword(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	f.users.byEmail["imported@example.org"] = &model.User{ID: "user:imported", Email: "imported@example.org"}

	_, err := f.svc.Login(context.Background(), LoginRequest{Email: "imported@example.org", Password: ""})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

// ============================================================================
// Sessions
// ============================================================================

func TestRefreshTokens_PicksUpRoleChange(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()
	res := f.register(t, "deacon@example.org", "servant123")

	f.users.byID[res.User.ID].Role = model.UserRoleStaff

	pair, err := f.svc.RefreshTokens(ctx, res.TokenPair.RefreshToken)
	require.NoError(t, err)
	claims, err := f.svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, jwt.RoleStaff, claims.Role)

	_, err = f.svc.RefreshTokens(ctx, res.TokenPair.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)
}

func TestLogout_EndsEverySession(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	ctx := context.Background()
	res := f.register(t, "elder@example.org", "shepherd7")
	_, err := f.svc.Login(ctx, LoginRequest{Email: "elder@example.org", Password: "shepherd7"})
	require.NoError(t, err)
	require.Equal(t, 2, f.sessions.live(res.User.ID))

	require.NoError(t, f.svc.Logout(ctx, res.User.ID))
	assert.Zero(t, f.sessions.live(res.User.ID))
}

func TestGetUserByID(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	res := f.register(t, "ruth@example.org", "gleaning42")

	got, err := f.svc.GetUserByID(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, res.User.Email, got.Email)

	_, err = f.svc.GetUserByID(context.Background(), "user:nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
