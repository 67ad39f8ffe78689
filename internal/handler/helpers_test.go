package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forgo/shepherd/api/internal/middleware"
	"github.com/forgo/shepherd/api/internal/model"
)

// ============================================================================
// Fixtures
// ============================================================================

// testNow is a Sunday morning
var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func stringPtr(s string) *string { return &s }

// makeJSONRequest encodes body (if any) as the request payload
func makeJSONRequest(method, path string, body interface{}) *http.Request {
	buf := new(bytes.Buffer)
	if body != nil {
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			panic(err)
		}
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// withUserContext and withRole stand in for the auth middleware
func withUserContext(req *http.Request, userID string) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID))
}

func withRole(req *http.Request, role model.UserRole) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), middleware.RoleKey, role))
}

// ============================================================================
// Decoding
// ============================================================================

func parseErrorResponse(t *testing.T, body []byte) *model.ProblemDetails {
	t.Helper()
	problem := new(model.ProblemDetails)
	require.NoError(t, json.Unmarshal(body, problem), "problem body: %s", body)
	return problem
}

// collectionBody keeps items raw so each test decodes its own type
type collectionBody struct {
	Data       []json.RawMessage `json:"data"`
	Pagination PaginationInfo    `json:"pagination"`
}

func parseCollection(t *testing.T, body []byte) collectionBody {
	t.Helper()
	var c collectionBody
	require.NoError(t, json.Unmarshal(body, &c), "collection body: %s", body)
	return c
}

func parseData[T any](t *testing.T, body []byte) T {
	t.Helper()
	var env struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &env), "data body: %s", body)
	return env.Data
}
