package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/model"
	"github.com/forgo/shepherd/api/pkg/jwt"
)

// UserRepository is the member storage the auth flows need
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	TouchLogin(ctx context.Context, userID string) error
}

// UserLookup loads a member by id; nil, nil when there is none
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// WelcomeSender sends the registration email
type WelcomeSender interface {
	Welcome(ctx context.Context, to model.Recipient) error
}

// AuthService signs members up and in with email and password
type AuthService struct {
	users   UserRepository
	tokens  *TokenService
	welcome WelcomeSender
	logger  *slog.Logger
}

type AuthServiceConfig struct {
	UserRepo     UserRepository
	TokenService *TokenService
	Welcome      WelcomeSender // optional
	Logger       *slog.Logger
}

func NewAuthService(cfg AuthServiceConfig) *AuthService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:   cfg.UserRepo,
		tokens:  cfg.TokenService,
		welcome: cfg.Welcome,
		logger:  logger.With(slog.String("service", "auth")),
	}
}

type RegisterRequest struct {
	Email     string
	Password  string
	Firstname string
	Lastname  string
}

type LoginRequest struct {
	Email    string
	Password string
}

// AuthResult is a signed-in member and their tokens
type AuthResult struct {
	User      *model.User
	TokenPair *TokenPair
}

// Register creates a member account. Emails are stored lower-cased and
// every new account starts with the member role.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	email := normalizeEmail(req.Email)
	if err := checkEmail(email); err != nil {
		return nil, err
	}
	if err := checkPassword(req.Password); err != nil {
		return nil, err
	}

	taken, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken != nil {
		return nil, ErrEmailAlreadyExists
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Email:     email,
		Hash:      &hash,
		Firstname: stringPtr(strings.TrimSpace(req.Firstname)),
		Lastname:  stringPtr(strings.TrimSpace(req.Lastname)),
		Role:      model.UserRoleMember,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if isDuplicate(err) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, err
	}

	pair, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, err
	}
	s.sendWelcome(ctx, user)

	s.logger.InfoContext(ctx, "member registered", slog.String("user_id", user.ID))
	return &AuthResult{User: user, TokenPair: pair}, nil
}

func (s *AuthService) sendWelcome(ctx context.Context, user *model.User) {
	if s.welcome == nil {
		return
	}
	if err := s.welcome.Welcome(ctx, recipientOf(user)); err != nil {
		s.logger.WarnContext(ctx, "welcome email failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Login checks the password and opens a new session. Unknown emails and
// wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}

	var hash *string
	if user != nil {
		hash = user.Hash
	}
	if !passwordMatches(hash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := s.users.TouchLogin(ctx, user.ID); err != nil {
		s.logger.WarnContext(ctx, "record login failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
	return &AuthResult{User: user, TokenPair: pair}, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	switch {
	case err != nil:
		return nil, err
	case user == nil:
		return nil, ErrUserNotFound
	}
	return user, nil
}

// RefreshTokens spends a refresh token for a new pair
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	return s.tokens.Rotate(ctx, refreshToken, s.users)
}

// Logout ends every session of the member
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	return s.tokens.RevokeAll(ctx, userID)
}

func (s *AuthService) ValidateAccessToken(token string) (*jwt.Claims, error) {
	return s.tokens.ValidateAccessToken(token)
}

// stringPtr returns nil for ""
func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isDuplicate(err error) bool {
	return errors.Is(err, database.ErrDuplicate)
}

func recipientOf(u *model.User) model.Recipient {
	return model.Recipient{
		UserID:    u.ID,
		Email:     u.Email,
		Firstname: u.FirstName(),
		Lastname:  u.LastName(),
	}
}
