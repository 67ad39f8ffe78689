package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/shepherd/api/internal/model"
	"github.com/forgo/shepherd/api/internal/service"
)

// ============================================================================
// Mocks
// ============================================================================

type mockNotificationService struct {
	listFunc        func(ctx context.Context, userID string, q model.NotificationQuery) (*model.Page[*model.Notification], error)
	markAllReadFunc func(ctx context.Context, userID string) (int, error)
}

func (m *mockNotificationService) List(ctx context.Context, userID string, q model.NotificationQuery) (*model.Page[*model.Notification], error) {
	return m.listFunc(ctx, userID, q)
}

func (m *mockNotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if id == "notification:missing" {
		return service.ErrNotificationNotFound
	}
	return nil
}

func (m *mockNotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return m.markAllReadFunc(ctx, userID)
}

func (m *mockNotificationService) Delete(ctx context.Context, userID, id string) error {
	return nil
}

// stubHub hands out a subscriber whose channel is preloaded and closed,
// so the stream drains it and returns.
type stubHub struct {
	events       []*service.Event
	subscribed   string
	streamID     string
	unsubscribed string
}

func (h *stubHub) Subscribe(userID, subscriberID string) *service.Subscriber {
	h.subscribed = userID
	h.streamID = subscriberID
	ch := make(chan *service.Event, len(h.events))
	for _, e := range h.events {
		ch <- e
	}
	close(ch)
	return &service.Subscriber{ID: subscriberID, UserID: userID, Events: ch, Done: make(chan struct{})}
}

func (h *stubHub) Release(sub *service.Subscriber) {
	h.unsubscribed = sub.UserID
}

// ============================================================================
// Inbox Tests
// ============================================================================

func TestNotificationList_UnreadFilterAndPage(t *testing.T) {
	t.Parallel()

	svc := &mockNotificationService{
		listFunc: func(ctx context.Context, userID string, q model.NotificationQuery) (*model.Page[*model.Notification], error) {
			assert.True(t, q.UnreadOnly)
			assert.Equal(t, 3, q.Page)
			assert.Equal(t, 10, q.Limit)
			return &model.Page[*model.Notification]{
				Items:       []*model.Notification{{ID: "notification:1", Title: "Welcome"}},
				Total:       21,
				PageRequest: q.PageRequest,
			}, nil
		},
	}
	h := NewNotificationHandler(svc, &stubHub{})

	req := withUserContext(httptest.NewRequest(http.MethodGet, "/v1/me/notifications?unread=true&page=3&limit=10", nil), "user:1")
	rr := httptest.NewRecorder()
	h.List(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := parseCollection(t, rr.Body.Bytes())
	assert.Len(t, body.Data, 1)
	assert.False(t, body.Pagination.HasMore)
}

func TestNotificationList_BadUnreadFlag_Returns400(t *testing.T) {
	t.Parallel()

	h := NewNotificationHandler(&mockNotificationService{}, &stubHub{})

	req := withUserContext(httptest.NewRequest(http.MethodGet, "/v1/me/notifications?unread=maybe", nil), "user:1")
	rr := httptest.NewRecorder()
	h.List(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMarkRead_Missing_Returns404(t *testing.T) {
	t.Parallel()

	h := NewNotificationHandler(&mockNotificationService{}, &stubHub{})

	req := withUserContext(httptest.NewRequest(http.MethodPost, "/v1/me/notifications/notification:missing/read", nil), "user:1")
	req.SetPathValue("id", "notification:missing")
	rr := httptest.NewRecorder()
	h.MarkRead(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMarkAllRead_ReturnsCount(t *testing.T) {
	t.Parallel()

	svc := &mockNotificationService{
		markAllReadFunc: func(ctx context.Context, userID string) (int, error) {
			return 4, nil
		},
	}
	h := NewNotificationHandler(svc, &stubHub{})

	req := withUserContext(httptest.NewRequest(http.MethodPost, "/v1/me/notifications/read-all", nil), "user:1")
	rr := httptest.NewRecorder()
	h.MarkAllRead(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	got := parseData[map[string]int](t, rr.Body.Bytes())
	assert.Equal(t, 4, got["updated"])
}

// ============================================================================
// Stream Tests
// ============================================================================

func TestStream_WritesEventsAndUnsubscribes(t *testing.T) {
	t.Parallel()

	hub := &stubHub{events: []*service.Event{
		{Type: service.EventNotification, Data: map[string]string{"title": "Prayer answered"}},
		{Type: service.EventUnreadCount, Data: map[string]int{"unread": 2}},
	}}
	h := NewNotificationHandler(&mockNotificationService{}, hub)

	req := withUserContext(httptest.NewRequest(http.MethodGet, "/v1/me/notifications/stream", nil), "user:1")
	rr := httptest.NewRecorder()
	h.Stream(rr, req)

	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
	body := rr.Body.String()
	assert.True(t, strings.HasPrefix(body, "event: connected\n"))
	assert.Contains(t, body, "event: notification\ndata: {\"title\":\"Prayer answered\"}\n\n")
	assert.Contains(t, body, "event: unread_count\ndata: {\"unread\":2}\n\n")
	assert.Equal(t, "user:1", hub.subscribed)
	assert.Equal(t, "user:1", hub.unsubscribed)
}

func TestStream_ClientStreamID(t *testing.T) {
	t.Parallel()

	t.Run("reused when valid", func(t *testing.T) {
		t.Parallel()
		hub := &stubHub{}
		h := NewNotificationHandler(&mockNotificationService{}, hub)

		req := withUserContext(httptest.NewRequest(http.MethodGet, "/v1/me/notifications/stream?stream_id=kitchen-tablet", nil), "user:1")
		rr := httptest.NewRecorder()
		h.Stream(rr, req)

		assert.Equal(t, "kitchen-tablet", hub.streamID)
		assert.Contains(t, rr.Body.String(), `{"subscriber_id":"kitchen-tablet"}`)
	})

	t.Run("generated when absent", func(t *testing.T) {
		t.Parallel()
		hub := &stubHub{}
		h := NewNotificationHandler(&mockNotificationService{}, hub)

		req := withUserContext(httptest.NewRequest(http.MethodGet, "/v1/me/notifications/stream", nil), "user:1")
		h.Stream(httptest.NewRecorder(), req)

		assert.Len(t, hub.streamID, 36)
	})

	for _, bad := range []string{"has%20space", "quote%22", strings.Repeat("x", 65)} {
		t.Run("rejects "+bad, func(t *testing.T) {
			t.Parallel()
			hub := &stubHub{}
			h := NewNotificationHandler(&mockNotificationService{}, hub)

			req := withUserContext(httptest.NewRequest(http.MethodGet, "/v1/me/notifications/stream?stream_id="+bad, nil), "user:1")
			rr := httptest.NewRecorder()
			h.Stream(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Empty(t, hub.subscribed)
		})
	}
}

func TestStream_Unauthenticated_Returns401(t *testing.T) {
	t.Parallel()

	hub := &stubHub{}
	h := NewNotificationHandler(&mockNotificationService{}, hub)

	rr := httptest.NewRecorder()
	h.Stream(rr, httptest.NewRequest(http.MethodGet, "/v1/me/notifications/stream", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, hub.subscribed)
}
