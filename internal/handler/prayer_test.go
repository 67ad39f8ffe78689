package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/shepherd/api/internal/model"
	"github.com/forgo/shepherd/api/internal/service"
)

// ============================================================================
// Mock PrayerOperations
// ============================================================================

type mockPrayerService struct {
	createFunc   func(ctx context.Context, userID string, req *model.CreatePrayerRequest) (*model.PrayerRequest, error)
	getFunc      func(ctx context.Context, viewerID string, staff bool, id string) (*model.PrayerRequest, error)
	wallFunc     func(ctx context.Context, q model.PrayerListQuery) (*model.Page[*model.PrayerRequest], error)
	prayFunc     func(ctx context.Context, userID, id string) (int, error)
	answerFunc   func(ctx context.Context, userID, id string, req *model.AnswerPrayerRequest) (*model.PrayerRequest, error)
	matchFunc    func(ctx context.Context, actorID, id string) ([]*model.PrayerPartner, error)
	partnersFunc func(ctx context.Context, viewerID string, staff bool, id string) ([]*model.PrayerPartner, error)
}

func (m *mockPrayerService) Create(ctx context.Context, userID string, req *model.CreatePrayerRequest) (*model.PrayerRequest, error) {
	return m.createFunc(ctx, userID, req)
}

func (m *mockPrayerService) Get(ctx context.Context, viewerID string, staff bool, id string) (*model.PrayerRequest, error) {
	return m.getFunc(ctx, viewerID, staff, id)
}

func (m *mockPrayerService) Wall(ctx context.Context, q model.PrayerListQuery) (*model.Page[*model.PrayerRequest], error) {
	return m.wallFunc(ctx, q)
}

func (m *mockPrayerService) Mine(ctx context.Context, userID string, page model.PageRequest) (*model.Page[*model.PrayerRequest], error) {
	return &model.Page[*model.PrayerRequest]{PageRequest: page}, nil
}

func (m *mockPrayerService) Update(ctx context.Context, userID, id string, req *model.UpdatePrayerRequest) (*model.PrayerRequest, error) {
	return nil, nil
}

func (m *mockPrayerService) Answer(ctx context.Context, userID, id string, req *model.AnswerPrayerRequest) (*model.PrayerRequest, error) {
	return m.answerFunc(ctx, userID, id, req)
}

func (m *mockPrayerService) Archive(ctx context.Context, userID, id string) (*model.PrayerRequest, error) {
	return nil, nil
}

func (m *mockPrayerService) Delete(ctx context.Context, userID, id string) error {
	return nil
}

func (m *mockPrayerService) Pray(ctx context.Context, userID, id string) (int, error) {
	return m.prayFunc(ctx, userID, id)
}

func (m *mockPrayerService) Partners(ctx context.Context, viewerID string, staff bool, id string) ([]*model.PrayerPartner, error) {
	return m.partnersFunc(ctx, viewerID, staff, id)
}

func (m *mockPrayerService) List(ctx context.Context, q model.ListQuery) (*model.Page[*model.PrayerRequest], error) {
	return &model.Page[*model.PrayerRequest]{PageRequest: q.PageRequest}, nil
}

func (m *mockPrayerService) Moderate(ctx context.Context, actorID, id string, req *model.ModeratePrayerRequest) (*model.PrayerRequest, error) {
	return nil, nil
}

func (m *mockPrayerService) Remove(ctx context.Context, actorID, id string) error {
	return nil
}

func (m *mockPrayerService) MatchPartners(ctx context.Context, actorID, id string) ([]*model.PrayerPartner, error) {
	return m.matchFunc(ctx, actorID, id)
}

func newTestPrayer() *model.PrayerRequest {
	return &model.PrayerRequest{
		ID:         "prayer_request:abc",
		Title:      "Healing for my mother",
		Visibility: model.PrayerMembers,
		Status:     model.PrayerActive,
		CreatedOn:  testNow,
		UpdatedOn:  testNow,
	}
}

// ============================================================================
// Create Tests
// ============================================================================

func TestPrayerCreate_WithTitle_ReturnsActiveRequest(t *testing.T) {
	t.Parallel()

	calls := 0
	svc := &mockPrayerService{
		createFunc: func(ctx context.Context, userID string, req *model.CreatePrayerRequest) (*model.PrayerRequest, error) {
			calls++
			assert.Equal(t, "user:1", userID)
			assert.Equal(t, "Healing for my mother", req.Title)
			return newTestPrayer(), nil
		},
	}
	h := NewPrayerHandler(svc)

	req := withUserContext(makeJSONRequest(http.MethodPost, "/v1/prayers", model.CreatePrayerRequest{
		Title: "Healing for my mother",
	}), "user:1")
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, 1, calls)
	p := parseData[model.PrayerRequest](t, rr.Body.Bytes())
	assert.Equal(t, model.PrayerActive, p.Status)
}

func TestPrayerCreate_MissingTitle_ReturnsValidationError(t *testing.T) {
	t.Parallel()

	svc := &mockPrayerService{
		createFunc: func(ctx context.Context, userID string, req *model.CreatePrayerRequest) (*model.PrayerRequest, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	h := NewPrayerHandler(svc)

	req := withUserContext(makeJSONRequest(http.MethodPost, "/v1/prayers", map[string]string{"body": "no title"}), "user:1")
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestPrayerCreate_Unauthenticated_ReturnsUnauthorized(t *testing.T) {
	t.Parallel()
	h := NewPrayerHandler(&mockPrayerService{})

	rr := httptest.NewRecorder()
	h.Create(rr, makeJSONRequest(http.MethodPost, "/v1/prayers", model.CreatePrayerRequest{Title: "x"}))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

// ============================================================================
// Wall Tests
// ============================================================================

func TestPrayerWall_PassesPageAndStatus(t *testing.T) {
	t.Parallel()

	svc := &mockPrayerService{
		wallFunc: func(ctx context.Context, q model.PrayerListQuery) (*model.Page[*model.PrayerRequest], error) {
			assert.Equal(t, 2, q.Page)
			assert.Equal(t, 5, q.Limit)
			require.NotNil(t, q.Status)
			assert.Equal(t, model.PrayerAnswered, *q.Status)
			return &model.Page[*model.PrayerRequest]{
				Items:       []*model.PrayerRequest{newTestPrayer()},
				Total:       11,
				PageRequest: q.PageRequest,
			}, nil
		},
	}
	h := NewPrayerHandler(svc)

	req := withUserContext(httptest.NewRequest(http.MethodGet, "/v1/prayers?page=2&limit=5&status=answered", nil), "user:1")
	rr := httptest.NewRecorder()
	h.Wall(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := parseCollection(t, rr.Body.Bytes())
	assert.Equal(t, PaginationInfo{Page: 2, Limit: 5, Total: 11, HasMore: true}, body.Pagination)
}

func TestPrayerWall_UnknownStatus_ReturnsBadRequest(t *testing.T) {
	t.Parallel()
	h := NewPrayerHandler(&mockPrayerService{})

	req := withUserContext(httptest.NewRequest(http.MethodGet, "/v1/prayers?status=pending", nil), "user:1")
	rr := httptest.NewRecorder()
	h.Wall(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// ============================================================================
// Member Action Tests
// ============================================================================

func TestPrayerPray_Twice_ReturnsConflict(t *testing.T) {
	t.Parallel()

	svc := &mockPrayerService{
		prayFunc: func(ctx context.Context, userID, id string) (int, error) {
			return 0, service.ErrAlreadyPrayed
		},
	}
	h := NewPrayerHandler(svc)

	req := withUserContext(httptest.NewRequest(http.MethodPost, "/v1/prayers/prayer_request:abc/pray", nil), "user:1")
	req.SetPathValue("id", "prayer_request:abc")
	rr := httptest.NewRecorder()
	h.Pray(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestPrayerGet_PassesStaffFlagFromRole(t *testing.T) {
	t.Parallel()

	svc := &mockPrayerService{
		getFunc: func(ctx context.Context, viewerID string, staff bool, id string) (*model.PrayerRequest, error) {
			assert.True(t, staff)
			assert.Equal(t, "prayer_request:abc", id)
			return newTestPrayer(), nil
		},
	}
	h := NewPrayerHandler(svc)

	req := withRole(withUserContext(httptest.NewRequest(http.MethodGet, "/v1/prayers/prayer_request:abc", nil), "user:pastor"), model.UserRoleStaff)
	req.SetPathValue("id", "prayer_request:abc")
	rr := httptest.NewRecorder()
	h.Get(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestPrayerAnswer_EmptyBody_IsAccepted(t *testing.T) {
	t.Parallel()

	svc := &mockPrayerService{
		answerFunc: func(ctx context.Context, userID, id string, req *model.AnswerPrayerRequest) (*model.PrayerRequest, error) {
			assert.Nil(t, req.Note)
			p := newTestPrayer()
			p.Status = model.PrayerAnswered
			return p, nil
		},
	}
	h := NewPrayerHandler(svc)

	req := withUserContext(httptest.NewRequest(http.MethodPost, "/v1/prayers/prayer_request:abc/answer", nil), "user:1")
	req.SetPathValue("id", "prayer_request:abc")
	rr := httptest.NewRecorder()
	h.Answer(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestPrayerPartners_NotAuthor_ReturnsForbidden(t *testing.T) {
	t.Parallel()

	svc := &mockPrayerService{
		partnersFunc: func(ctx context.Context, viewerID string, staff bool, id string) ([]*model.PrayerPartner, error) {
			return nil, service.ErrNotPrayerAuthor
		},
	}
	h := NewPrayerHandler(svc)

	req := withUserContext(httptest.NewRequest(http.MethodGet, "/v1/prayers/prayer_request:abc/partners", nil), "user:2")
	req.SetPathValue("id", "prayer_request:abc")
	rr := httptest.NewRecorder()
	h.Partners(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

// ============================================================================
// Match Tests
// ============================================================================

func TestPrayerMatch_ProviderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"ai not configured", service.ErrAIUnavailable, http.StatusServiceUnavailable},
		{"ai malformed", service.ErrAIUpstream, http.StatusBadGateway},
		{"no matches", service.ErrNoPartnerMatches, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &mockPrayerService{
				matchFunc: func(ctx context.Context, actorID, id string) ([]*model.PrayerPartner, error) {
					return nil, tt.err
				},
			}
			h := NewPrayerHandler(svc)

			req := withUserContext(httptest.NewRequest(http.MethodPost, "/v1/admin/prayers/prayer_request:abc/match", nil), "user:pastor")
			req.SetPathValue("id", "prayer_request:abc")
			rr := httptest.NewRecorder()
			h.Match(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}
