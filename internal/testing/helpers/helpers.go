package helpers

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/model"
	"github.com/forgo/shepherd/api/pkg/jwt"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIssuer is the issuer every test token carries
const TestIssuer = "shepherd-test"

// ============================================================================
// Tokens
// ============================================================================

// JWTHelper signs access tokens with a throwaway key. It satisfies
// middleware.AuthService so it can guard routes in place of the real one.
type JWTHelper struct {
	signer *jwt.Service
}

// NewJWTHelper generates a fresh 2048-bit key
func NewJWTHelper(t testing.TB) *JWTHelper {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err, "helpers: generate RSA key")
	return &JWTHelper{signer: jwt.NewTestService(key, TestIssuer, time.Hour)}
}

func (h *JWTHelper) ValidateAccessToken(token string) (*jwt.Claims, error) {
	return h.signer.Validate(token)
}

// GenerateToken signs a token carrying the member's id and role
func (h *JWTHelper) GenerateToken(user *model.User) string {
	return h.mustSign(claimsFor(user))
}

// GenerateExpiredToken signs a token that lapsed an hour ago
func (h *JWTHelper) GenerateExpiredToken(user *model.User) string {
	c := claimsFor(user)
	c.ExpiresAt = gojwt.NewNumericDate(time.Now().Add(-time.Hour))
	return h.mustSign(c)
}

func (h *JWTHelper) mustSign(c jwt.Claims) string {
	token, err := h.signer.Sign(c)
	if err != nil {
		panic("helpers: sign: " + err.Error())
	}
	return token
}

func claimsFor(user *model.User) jwt.Claims {
	role := string(user.Role)
	if role == "" {
		role = jwt.RoleMember
	}
	return jwt.Claims{UserID: user.ID, Email: user.Email, Name: user.DisplayName(), Role: role}
}

// ============================================================================
// Requests
// ============================================================================

// RequestBuilder assembles an httptest request
//
//	req := helpers.NewRequest(t, http.MethodPost, "/v1/prayers").
//		WithBody(body).
//		WithAuth(jwtHelper, member).
//		Build()
type RequestBuilder struct {
	t      testing.TB
	method string
	path   string
	body   interface{}
	header http.Header
}

func NewRequest(t testing.TB, method, path string) *RequestBuilder {
	t.Helper()
	return &RequestBuilder{t: t, method: method, path: path, header: http.Header{}}
}

// WithBody JSON-encodes body on Build
func (rb *RequestBuilder) WithBody(body interface{}) *RequestBuilder {
	rb.body = body
	return rb
}

func (rb *RequestBuilder) WithHeader(key, value string) *RequestBuilder {
	rb.header.Set(key, value)
	return rb
}

// WithAuth signs a bearer token for user immediately
func (rb *RequestBuilder) WithAuth(h *JWTHelper, user *model.User) *RequestBuilder {
	return rb.WithHeader("Authorization", "Bearer "+h.GenerateToken(user))
}

func (rb *RequestBuilder) Build() *http.Request {
	rb.t.Helper()

	var body io.Reader
	if rb.body != nil {
		raw, err := json.Marshal(rb.body)
		require.NoError(rb.t, err, "helpers: encode body")
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(rb.method, rb.path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range rb.header {
		req.Header[k] = v
	}
	return req
}

// ============================================================================
// Responses
// ============================================================================

// AssertStatus reports the body on mismatch, which is usually the problem detail
func AssertStatus(t testing.TB, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	assert.Equal(t, want, rec.Code, "body: %s", rec.Body.String())
}

// AssertProblemDetails checks an application/problem+json response. A zero
// code skips the code check.
func AssertProblemDetails(t testing.TB, rec *httptest.ResponseRecorder, status int, code model.ErrorCode) {
	t.Helper()
	AssertStatus(t, rec, status)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var problem model.ProblemDetails
	DecodeResponse(t, rec, &problem)
	assert.Equal(t, status, problem.Status)
	if code != 0 {
		assert.Equal(t, code, problem.Code)
	}
}

// AssertValidationError expects a 422 naming field
func AssertValidationError(t testing.TB, rec *httptest.ResponseRecorder, field string) {
	t.Helper()
	AssertStatus(t, rec, http.StatusUnprocessableEntity)

	var problem model.ProblemDetails
	DecodeResponse(t, rec, &problem)
	fields := make([]string, 0, len(problem.Errors))
	for _, fe := range problem.Errors {
		fields = append(fields, fe.Field)
	}
	assert.Contains(t, fields, field)
}

func DecodeResponse(t testing.TB, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), "body: %s", rec.Body.String())
}

// GetDataFromResponse unwraps the {"data": {...}} envelope
func GetDataFromResponse(t testing.TB, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope struct {
		Data map[string]interface{} `json:"data"`
	}
	DecodeResponse(t, rec, &envelope)
	return envelope.Data
}

// ============================================================================
// Records
// ============================================================================

// AssertRecordExists looks a record up by table and id. The id may carry
// its table prefix ("prayer_request:abc").
func AssertRecordExists(t testing.TB, db database.Querier, table, id string) {
	t.Helper()
	assert.True(t, recordExists(t, db, table, id), "expected %s:%s to exist", table, id)
}

func AssertRecordNotExists(t testing.TB, db database.Querier, table, id string) {
	t.Helper()
	assert.False(t, recordExists(t, db, table, id), "expected %s:%s to be gone", table, id)
}

func recordExists(t testing.TB, db database.Querier, table, id string) bool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, rest, ok := strings.Cut(id, ":"); ok {
		id = rest
	}
	_, err := db.QueryOne(ctx, "SELECT * FROM type::record($table, $id)",
		map[string]interface{}{"table": table, "id": id})
	if err == nil {
		return true
	}
	require.ErrorIs(t, err, database.ErrNotFound)
	return false
}

// StringPtr returns &s
func StringPtr(s string) *string { return &s }
