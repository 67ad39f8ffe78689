package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/shepherd/api/internal/model"
)

// ============================================================================
// ParsePageRequest Tests
// ============================================================================

func TestParsePageRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		query     string
		wantPage  int
		wantLimit int
		wantErr   bool
	}{
		{"defaults", "", 1, model.DefaultPageLimit, false},
		{"explicit values", "?page=3&limit=10", 3, 10, false},
		{"limit clamped", "?limit=500", 1, model.MaxPageLimit, false},
		{"limit at max", "?limit=100", 1, 100, false},
		{"page zero", "?page=0", 0, 0, true},
		{"negative limit", "?limit=-5", 0, 0, true},
		{"limit zero", "?limit=0", 0, 0, true},
		{"non-numeric page", "?page=two", 0, 0, true},
		{"non-numeric limit", "?limit=ten", 0, 0, true},
		{"page at max", "?page=1000000", model.MaxPage, model.DefaultPageLimit, false},
		{"page past max", "?page=9223372036854775807", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/v1/prayers"+tt.query, nil)

			page, pd := ParsePageRequest(req)

			if tt.wantErr {
				require.NotNil(t, pd)
				assert.Equal(t, http.StatusBadRequest, pd.Status)
				return
			}
			require.Nil(t, pd)
			assert.Equal(t, tt.wantPage, page.Page)
			assert.Equal(t, tt.wantLimit, page.Limit)
		})
	}
}

func TestParseListQuery_CarriesFilter(t *testing.T) {
	t.Parallel()
	req := httptest.NewRequest(http.MethodGet, `/v1/admin/audit?page=2&filter=action%20%3D%20%22prayer.delete%22`, nil)

	q, pd := ParseListQuery(req)

	require.Nil(t, pd)
	assert.Equal(t, `action = "prayer.delete"`, q.Filter)
	assert.Equal(t, 2, q.Page)
}

// ============================================================================
// WritePage Tests
// ============================================================================

func TestWritePage_PaginationEnvelope(t *testing.T) {
	t.Parallel()
	rr := httptest.NewRecorder()

	WritePage(rr, &model.Page[string]{
		Items:       []string{"a", "b"},
		Total:       7,
		PageRequest: model.PageRequest{Page: 2, Limit: 2},
	})

	require.Equal(t, http.StatusOK, rr.Code)
	body := parseCollection(t, rr.Body.Bytes())
	assert.Len(t, body.Data, 2)
	assert.Equal(t, PaginationInfo{Page: 2, Limit: 2, Total: 7, HasMore: true}, body.Pagination)
}

func TestWritePage_LastPage_HasMoreFalse(t *testing.T) {
	t.Parallel()
	rr := httptest.NewRecorder()

	WritePage(rr, &model.Page[string]{
		Items:       []string{"g"},
		Total:       7,
		PageRequest: model.PageRequest{Page: 4, Limit: 2},
	})

	body := parseCollection(t, rr.Body.Bytes())
	assert.False(t, body.Pagination.HasMore)
}

func TestWritePage_NilItems_EncodesEmptyArray(t *testing.T) {
	t.Parallel()
	rr := httptest.NewRecorder()

	WritePage(rr, &model.Page[*model.Lead]{PageRequest: model.NewPageRequest(1, 20)})

	assert.Contains(t, rr.Body.String(), `"data":[]`)
}

// ============================================================================
// Body Decoding Tests
// ============================================================================

func TestDecodeAndValidate_UnknownField_ReturnsBadRequest(t *testing.T) {
	t.Parallel()
	rr := httptest.NewRecorder()
	req := makeJSONRequest(http.MethodPost, "/v1/prayers", map[string]string{"title": "x", "color": "red"})

	var body model.CreatePrayerRequest
	ok := decodeAndValidate(rr, req, &body)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDecodeAndValidate_InvalidBody_ReturnsValidationProblem(t *testing.T) {
	t.Parallel()
	rr := httptest.NewRecorder()
	req := makeJSONRequest(http.MethodPost, "/v1/prayers", map[string]string{"title": ""})

	var body model.CreatePrayerRequest
	ok := decodeAndValidate(rr, req, &body)

	assert.False(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	problem := parseErrorResponse(t, rr.Body.Bytes())
	assert.NotEmpty(t, problem.Errors)
}

func TestDecodeOptional_EmptyBody_Passes(t *testing.T) {
	t.Parallel()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/prayers/prayer:1/answer", nil)

	var body model.AnswerPrayerRequest
	assert.True(t, decodeOptional(rr, req, &body))
}

func TestParseBoolQuery(t *testing.T) {
	t.Parallel()

	v, pd := parseBoolQuery(httptest.NewRequest(http.MethodGet, "/v1/events?upcoming=true", nil), "upcoming")
	assert.Nil(t, pd)
	assert.True(t, v)

	_, pd = parseBoolQuery(httptest.NewRequest(http.MethodGet, "/v1/events?upcoming=soon", nil), "upcoming")
	require.NotNil(t, pd)
	assert.Equal(t, http.StatusBadRequest, pd.Status)
}

func TestDecodeJSON_RejectsTrailingAndOversizedBodies(t *testing.T) {
	t.Parallel()

	var v map[string]string
	trailing := httptest.NewRequest(http.MethodPost, "/v1/prayers", strings.NewReader(`{"title":"a"} {"title":"b"}`))
	assert.Error(t, DecodeJSON(trailing, &v))

	for _, body := range []string{`{"title":"a"}}`, `{"title":"a"}]`, `{"title":"a"} 7`} {
		stray := httptest.NewRequest(http.MethodPost, "/v1/prayers", strings.NewReader(body))
		assert.Error(t, DecodeJSON(stray, &v), body)
	}

	huge := `{"title":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	oversized := httptest.NewRequest(http.MethodPost, "/v1/prayers", strings.NewReader(huge))
	assert.Error(t, DecodeJSON(oversized, &v))

	ok := httptest.NewRequest(http.MethodPost, "/v1/prayers", strings.NewReader(`{"title":"a"}`+"\n"))
	require.NoError(t, DecodeJSON(ok, &v))
	assert.Equal(t, "a", v["title"])
}
