package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenNotYetValid = errors.New("token not yet valid")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidKey       = errors.New("invalid key")
)

// Role values carried in access tokens
const (
	RoleMember = "member"
	RoleStaff  = "staff"
	RoleAdmin  = "admin"
)

// clockSkew is tolerated on exp and nbf between API replicas
const clockSkew = 30 * time.Second

// Claims is the access token payload. Subject mirrors UserID.
type Claims struct {
	gojwt.RegisteredClaims

	Email  string `json:"email,omitempty"`
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role,omitempty"`
}

func (c *Claims) IsAdmin() bool { return c.Role == RoleAdmin }

// IsStaff is true for staff and admins
func (c *Claims) IsStaff() bool { return c.Role == RoleStaff || c.Role == RoleAdmin }

// Config points at PEM key files. A deployment that only verifies tokens
// may leave PrivateKeyPath empty.
type Config struct {
	PrivateKeyPath string
	PublicKeyPath  string
	Issuer         string
	ExpirationMins int
}

// Service signs and verifies RS256 access tokens
type Service struct {
	signKey   *rsa.PrivateKey
	verifyKey *rsa.PublicKey
	issuer    string
	ttl       time.Duration
	parser    *gojwt.Parser
}

func NewService(cfg Config) (*Service, error) {
	var (
		priv *rsa.PrivateKey
		pub  *rsa.PublicKey
		err  error
	)
	if cfg.PrivateKeyPath != "" {
		if priv, err = readPrivateKey(cfg.PrivateKeyPath); err != nil {
			return nil, fmt.Errorf("private key: %w", err)
		}
		pub = &priv.PublicKey
	} else if cfg.PublicKeyPath != "" {
		if pub, err = readPublicKey(cfg.PublicKeyPath); err != nil {
			return nil, fmt.Errorf("public key: %w", err)
		}
	}
	return newService(priv, pub, cfg.Issuer, time.Duration(cfg.ExpirationMins)*time.Minute), nil
}

// NewTestService builds a service around an in-memory key
func NewTestService(key *rsa.PrivateKey, issuer string, ttl time.Duration) *Service {
	return newService(key, &key.PublicKey, issuer, ttl)
}

func newService(priv *rsa.PrivateKey, pub *rsa.PublicKey, issuer string, ttl time.Duration) *Service {
	return &Service{
		signKey:   priv,
		verifyKey: pub,
		issuer:    issuer,
		ttl:       ttl,
		parser: gojwt.NewParser(
			gojwt.WithValidMethods([]string{gojwt.SigningMethodRS256.Alg()}),
			gojwt.WithIssuer(issuer),
			gojwt.WithExpirationRequired(),
			gojwt.WithLeeway(clockSkew),
		),
	}
}

// Sign stamps issuer, iat, nbf and jti on claims and signs them. ExpiresAt
// and Subject are only filled in when the caller left them empty.
func (s *Service) Sign(claims Claims) (string, error) {
	if s.signKey == nil {
		return "", ErrInvalidKey
	}

	now := time.Now()
	rc := &claims.RegisteredClaims
	rc.Issuer = s.issuer
	rc.IssuedAt = gojwt.NewNumericDate(now)
	rc.NotBefore = rc.IssuedAt
	if rc.ExpiresAt == nil {
		rc.ExpiresAt = gojwt.NewNumericDate(now.Add(s.ttl))
	}
	if rc.ID == "" {
		rc.ID = uuid.NewString()
	}
	if rc.Subject == "" {
		rc.Subject = claims.UserID
	}

	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodRS256, &claims).SignedString(s.signKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature, issuer and lifetime of token
func (s *Service) Validate(token string) (*Claims, error) {
	if s.verifyKey == nil {
		return nil, ErrInvalidKey
	}

	claims := new(Claims)
	if _, err := s.parser.ParseWithClaims(token, claims, s.keyFunc); err != nil {
		return nil, classify(err)
	}
	return claims, nil
}

// GetExpiration is the default access token lifetime
func (s *Service) GetExpiration() time.Duration { return s.ttl }

func (s *Service) keyFunc(*gojwt.Token) (any, error) { return s.verifyKey, nil }

func classify(err error) error {
	for _, m := range []struct{ lib, ours error }{
		{gojwt.ErrTokenExpired, ErrTokenExpired},
		{gojwt.ErrTokenNotValidYet, ErrTokenNotYetValid},
		{gojwt.ErrTokenSignatureInvalid, ErrInvalidSignature},
	} {
		if errors.Is(err, m.lib) {
			return m.ours
		}
	}
	return ErrInvalidToken
}
