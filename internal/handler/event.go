package handler

import (
	"context"
	"net/http"

	"github.com/forgo/shepherd/api/internal/model"
)

// EventOperations is what the calendar endpoints call
type EventOperations interface {
	Create(ctx context.Context, actorID string, req *model.CreateEventRequest) (*model.Event, error)
	GetForUser(ctx context.Context, userID, eventID string) (*model.EventWithRSVP, error)
	List(ctx context.Context, q model.EventListQuery) (*model.Page[*model.Event], error)
	Update(ctx context.Context, actorID, eventID string, req *model.UpdateEventRequest) (*model.Event, error)
	Cancel(ctx context.Context, actorID, eventID string) (*model.Event, error)
	RSVP(ctx context.Context, userID, eventID string, status model.RSVPStatus) (*model.RSVP, error)
	CancelRSVP(ctx context.Context, userID, eventID string) error
	MyEvents(ctx context.Context, userID string, page model.PageRequest) (*model.Page[*model.EventWithRSVP], error)
}

// EventHandler handles calendar and RSVP endpoints
type EventHandler struct {
	events EventOperations
}

// NewEventHandler creates a new event handler
func NewEventHandler(events EventOperations) *EventHandler {
	return &EventHandler{events: events}
}

// List handles GET /v1/events
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	page, perr := ParsePageRequest(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}
	upcoming, perr := parseBoolQuery(r, "upcoming")
	if perr != nil {
		WriteError(w, perr)
		return
	}

	result, err := h.events.List(r.Context(), model.EventListQuery{
		Category:     r.URL.Query().Get("category"),
		UpcomingOnly: upcoming,
		PageRequest:  page,
	})
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list events"))
		return
	}

	WritePage(w, result)
}

// Get handles GET /v1/events/{id}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	event, err := h.events.GetForUser(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "get event"))
		return
	}

	WriteData(w, http.StatusOK, event, map[string]string{
		"rsvp": "/v1/events/" + r.PathValue("id") + "/rsvp",
	})
}

// RSVP handles PUT /v1/events/{id}/rsvp
func (h *EventHandler) RSVP(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.RSVPRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	rsvp, err := h.events.RSVP(r.Context(), userID, r.PathValue("id"), model.RSVPStatus(req.Status))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "rsvp"))
		return
	}

	WriteData(w, http.StatusOK, rsvp, nil)
}

// CancelRSVP handles DELETE /v1/events/{id}/rsvp
func (h *EventHandler) CancelRSVP(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.events.CancelRSVP(r.Context(), userID, r.PathValue("id")); err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "cancel rsvp"))
		return
	}

	WriteNoContent(w)
}

// Mine handles GET /v1/me/events
func (h *EventHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	page, perr := ParsePageRequest(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	result, err := h.events.MyEvents(r.Context(), userID, page)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "my events"))
		return
	}

	WritePage(w, result)
}

// Create handles POST /v1/admin/events
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreateEventRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	event, err := h.events.Create(r.Context(), actorID, &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "create event"))
		return
	}

	WriteData(w, http.StatusCreated, event, map[string]string{
		"self": "/v1/events/" + event.ID,
	})
}

// Update handles PATCH /v1/admin/events/{id}
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.UpdateEventRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	event, err := h.events.Update(r.Context(), actorID, r.PathValue("id"), &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "update event"))
		return
	}

	WriteData(w, http.StatusOK, event, nil)
}

// Cancel handles POST /v1/admin/events/{id}/cancel
func (h *EventHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	event, err := h.events.Cancel(r.Context(), actorID, r.PathValue("id"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "cancel event"))
		return
	}

	WriteData(w, http.StatusOK, event, nil)
}
