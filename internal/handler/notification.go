package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/forgo/shepherd/api/internal/model"
	"github.com/forgo/shepherd/api/internal/service"
)

// NotificationOperations is what the inbox endpoints call
type NotificationOperations interface {
	List(ctx context.Context, userID string, q model.NotificationQuery) (*model.Page[*model.Notification], error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, userID, id string) error
}

// StreamHub fans notifications out to open event streams
type StreamHub interface {
	Subscribe(userID, subscriberID string) *service.Subscriber
	Release(sub *service.Subscriber)
}

// maxStreamIDLength bounds a client-chosen stream id
const maxStreamIDLength = 64

// streamID returns the client's ?stream_id, or a fresh one when absent.
// Reconnecting with the same id replaces the earlier stream.
func streamID(r *http.Request) (string, bool) {
	id := r.URL.Query().Get("stream_id")
	if id == "" {
		return uuid.New().String(), true
	}
	if len(id) > maxStreamIDLength {
		return "", false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return "", false
		}
	}
	return id, true
}

// NotificationHandler handles the inbox and its event stream
type NotificationHandler struct {
	notifications NotificationOperations
	hub           StreamHub
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifications NotificationOperations, hub StreamHub) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, hub: hub}
}

// List handles GET /v1/me/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	page, perr := ParsePageRequest(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}
	unread, perr := parseBoolQuery(r, "unread")
	if perr != nil {
		WriteError(w, perr)
		return
	}

	result, err := h.notifications.List(r.Context(), userID, model.NotificationQuery{
		UnreadOnly:  unread,
		PageRequest: page,
	})
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list notifications"))
		return
	}

	WritePage(w, result)
}

// MarkRead handles POST /v1/me/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.notifications.MarkRead(r.Context(), userID, r.PathValue("id")); err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "mark read"))
		return
	}

	WriteNoContent(w)
}

// MarkAllRead handles POST /v1/me/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	n, err := h.notifications.MarkAllRead(r.Context(), userID)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "mark all read"))
		return
	}

	WriteData(w, http.StatusOK, map[string]int{"updated": n}, nil)
}

// Delete handles DELETE /v1/me/notifications/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.notifications.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "delete notification"))
		return
	}

	WriteNoContent(w)
}

// Stream handles GET /v1/me/notifications/stream.
// It streams new notifications and unread counts as server-sent events.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	subscriberID, ok := streamID(r)
	if !ok {
		WriteError(w, model.NewBadRequestError("stream_id must be up to 64 letters, digits, '-' or '_'"))
		return
	}

	// Check if the client supports SSE
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, model.NewInternalError("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	// Streams outlive the server write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	sub := h.hub.Subscribe(userID, subscriberID)
	defer h.hub.Release(sub)

	fmt.Fprintf(w, "event: connected\ndata: {\"subscriber_id\":\"%s\"}\n\n", subscriberID)
	flusher.Flush()

	for {
		select {
		case event, ok := <-sub.Events:
			if !ok {
				return
			}
			fmt.Fprint(w, event.Format())
			flusher.Flush()

		case <-sub.Done:
			return

		case <-r.Context().Done():
			// Client disconnected
			return
		}
	}
}
