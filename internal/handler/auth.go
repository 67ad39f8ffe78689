package handler

import (
	"context"
	"net/http"

	"github.com/forgo/shepherd/api/internal/model"
	"github.com/forgo/shepherd/api/internal/service"
)

// Authenticator is the slice of the auth service the HTTP layer needs
type Authenticator interface {
	Register(ctx context.Context, req service.RegisterRequest) (*service.AuthResult, error)
	Login(ctx context.Context, req service.LoginRequest) (*service.AuthResult, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*service.TokenPair, error)
	Logout(ctx context.Context, userID string) error
}

// AuthHandler serves sign-up, sign-in and session endpoints
type AuthHandler struct {
	auth Authenticator
}

func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRequest is the sign-up form. Password strength is checked by the
// service so the rules live in one place.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,max=254"`
	Password  string `json:"password" validate:"required,max=128"`
	Firstname string `json:"firstname,omitempty" validate:"max=100"`
	Lastname  string `json:"lastname,omitempty" validate:"max=100"`
}

func (r *RegisterRequest) Validate() []model.FieldError { return model.ValidateStruct(r) }

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate() []model.FieldError { return model.ValidateStruct(r) }

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (r *RefreshRequest) Validate() []model.FieldError { return model.ValidateStruct(r) }

// AuthResponse is a signed-in member and their tokens
type AuthResponse struct {
	User  *model.User        `json:"user"`
	Token *service.TokenPair `json:"token"`
}

var meLinks = map[string]string{"self": "/v1/me"}

// Register handles POST /v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.auth.Register(r.Context(), service.RegisterRequest(req))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "register"))
		return
	}
	WriteData(w, http.StatusCreated, AuthResponse{User: result.User, Token: result.TokenPair}, meLinks)
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.auth.Login(r.Context(), service.LoginRequest(req))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "login"))
		return
	}
	WriteData(w, http.StatusOK, AuthResponse{User: result.User, Token: result.TokenPair}, meLinks)
}

// Refresh handles POST /v1/auth/refresh. The presented token is spent.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.auth.RefreshTokens(r.Context(), req.RefreshToken)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "refresh"))
		return
	}
	WriteData(w, http.StatusOK, pair, nil)
}

// Logout handles POST /v1/auth/logout, ending every session of the member
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.auth.Logout(r.Context(), userID); err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "logout"))
		return
	}
	WriteNoContent(w)
}
