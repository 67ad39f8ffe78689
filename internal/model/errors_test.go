package model

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Constructors
// ============================================================================

func TestProblemConstructors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		got    *ProblemDetails
		status int
		code   ErrorCode
		slug   string
		detail string
	}{
		{"unauthorized", NewUnauthorizedError("missing authorization header"), 401, ErrCodeUnauthorized, "unauthorized", "missing authorization header"},
		{"forbidden", NewForbiddenError("staff only"), 403, ErrCodeForbidden, "forbidden", "staff only"},
		{"not found", NewNotFoundError("prayer request"), 404, ErrCodeNotFound, "not-found", "prayer request not found"},
		{"conflict", NewConflictError("already prayed"), 409, ErrCodeConflict, "conflict", "already prayed"},
		{"bad request", NewBadRequestError("Invalid request body"), 400, ErrCodeInvalidInput, "bad-request", "Invalid request body"},
		{"invalid filter", NewInvalidFilterError(`unknown field "color"`), 400, ErrCodeInvalidFilter, "invalid-filter", `unknown field "color"`},
		{"internal", NewInternalError("boom"), 500, ErrCodeInternal, "internal", "boom"},
		{"internal default", NewInternalError(""), 500, ErrCodeInternal, "internal", "An unexpected error occurred"},
		{"bad gateway", NewBadGatewayError("stripe unreachable"), 502, ErrCodeExternalAPI, "upstream", "stripe unreachable"},
		{"not configured", NewServiceUnavailableError("giving is not configured"), 503, ErrCodeNotConfigured, "not-configured", "giving is not configured"},
		{"method", NewMethodNotAllowedError("POST"), 405, ErrCodeInvalidInput, "method-not-allowed", "Only POST method is allowed"},
		{"rate limited", NewRateLimitError(30), 429, ErrCodeLimitExceeded, "rate-limited", "Rate limit exceeded. Retry after 30 seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.status, tt.got.Status)
			assert.Equal(t, tt.code, tt.got.Code)
			assert.Equal(t, problemTypeBase+tt.slug, tt.got.Type)
			assert.Equal(t, tt.detail, tt.got.Detail)
			assert.NotEmpty(t, tt.got.Title)
		})
	}
}

func TestNewCapacityError_ReturnsCorrectValues(t *testing.T) {
	t.Parallel()

	p := NewCapacityError("shift", 4, 4)

	assert.Equal(t, http.StatusConflict, p.Status)
	assert.Equal(t, "Capacity Reached", p.Title)
	assert.Equal(t, ErrCodeCapacityFull, p.Code)
	assert.Equal(t, "shift is full (4 of 4 filled)", p.Detail)
	require.NotNil(t, p.Limit)
	require.NotNil(t, p.Current)
	assert.Equal(t, 4, *p.Limit)
	assert.Equal(t, 4, *p.Current)
}

func TestNewValidationError_Detail(t *testing.T) {
	t.Parallel()

	title := FieldError{Field: "title", Message: "title is required"}
	ends := FieldError{Field: "ends_at", Message: "ends_at must be after starts_at"}

	one := NewValidationError([]FieldError{title})
	assert.Equal(t, "title: title is required", one.Detail)
	assert.Equal(t, http.StatusUnprocessableEntity, one.Status)
	assert.Len(t, one.Errors, 1)

	two := NewValidationError([]FieldError{title, ends})
	assert.Equal(t, "title: title is required (and 1 more errors)", two.Detail)

	none := NewValidationError(nil)
	assert.Equal(t, "One or more fields failed validation", none.Detail)
	assert.Empty(t, none.Errors)
}

func TestWithCode_NarrowsCode(t *testing.T) {
	t.Parallel()

	p := NewUnauthorizedError("token expired").WithCode(ErrCodeTokenExpired)
	assert.Equal(t, ErrCodeTokenExpired, p.Code)
	assert.Equal(t, http.StatusUnauthorized, p.Status)
}

// ============================================================================
// Rendering
// ============================================================================

func TestProblemDetails_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "[404] Not Found: event not found", NewNotFoundError("event").Error())
	assert.Equal(t, "[401] Unauthorized: ", (&ProblemDetails{Status: 401, Title: "Unauthorized"}).Error())
}

func TestProblemDetails_WriteJSON(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	NewCapacityError("event", 120, 120).WriteJSON(rr)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, float64(ErrCodeCapacityFull), body["code"])
	assert.Equal(t, float64(120), body["limit"])
	assert.Equal(t, float64(120), body["current"])
}

func TestProblemDetails_JSON_OmitsEmptyFields(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(NewForbiddenError("staff only"))
	require.NoError(t, err)

	for _, key := range []string{`"instance"`, `"errors"`, `"limit"`, `"current"`} {
		assert.False(t, strings.Contains(string(raw), key), "unexpected %s in %s", key, raw)
	}
}

// ============================================================================
// Codes
// ============================================================================

func TestErrorCodes_UniqueAndGrouped(t *testing.T) {
	t.Parallel()

	groups := map[int][]ErrorCode{
		1: {ErrCodeUnauthorized, ErrCodeTokenExpired, ErrCodeTokenInvalid, ErrCodeLoginFailed},
		2: {ErrCodeForbidden, ErrCodeStaffOnly, ErrCodeNotPermitted},
		3: {ErrCodeNotFound, ErrCodeAlreadyExists, ErrCodeConflict, ErrCodeCapacityFull},
		4: {ErrCodeValidation, ErrCodeInvalidInput, ErrCodeLimitExceeded, ErrCodeInvalidFilter},
		5: {ErrCodeInternal, ErrCodeDatabase, ErrCodeExternalAPI, ErrCodeNotConfigured},
	}

	seen := make(map[ErrorCode]bool)
	for group, codes := range groups {
		for _, c := range codes {
			assert.False(t, seen[c], "duplicate code %d", c)
			seen[c] = true
			assert.Equal(t, group, int(c)/1000, "code %d outside its group", c)
		}
	}
}
