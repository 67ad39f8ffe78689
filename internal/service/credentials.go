package service

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/forgo/shepherd/api/internal/model"
)

const (
	bcryptCost        = 12
	minPasswordLength = 8
	maxPasswordLength = 128
)

// decoyHash is compared against when no member matches a login, so an
// unknown email costs the same bcrypt work as a wrong password
var decoyHash, _ = bcrypt.GenerateFromPassword([]byte("shepherd-decoy-1"), bcryptCost)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkEmail(email string) error {
	form := struct {
		Email string `json:"email" validate:"required,email,max=254"`
	}{email}
	if len(model.ValidateStruct(&form)) > 0 {
		return ErrInvalidEmail
	}
	// require a dotted domain
	_, domain, _ := strings.Cut(email, "@")
	if !strings.Contains(domain, ".") {
		return ErrInvalidEmail
	}
	return nil
}

// checkPassword enforces length and requires a letter and a digit
func checkPassword(password string) error {
	switch {
	case password == "":
		return ErrPasswordRequired
	case len(password) < minPasswordLength:
		return ErrPasswordTooShort
	case len(password) > maxPasswordLength:
		return ErrPasswordTooLong
	}

	hasLetter := strings.IndexFunc(password, unicode.IsLetter) >= 0
	hasDigit := strings.IndexFunc(password, unicode.IsDigit) >= 0
	if !hasLetter || !hasDigit {
		return ErrPasswordTooWeak
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(hash), err
}

// passwordMatches reports whether password fits hash. A nil or empty hash
// (a member who never set a password) is checked against the decoy.
func passwordMatches(hash *string, password string) bool {
	if hash == nil || *hash == "" {
		_ = bcrypt.CompareHashAndPassword(decoyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*hash), []byte(password)) == nil
}
