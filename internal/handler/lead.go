package handler

import (
	"context"
	"net/http"

	"github.com/forgo/shepherd/api/internal/model"
)

// LeadOperations is what the lead endpoints call
type LeadOperations interface {
	Connect(ctx context.Context, req *model.ConnectCardRequest) (*model.Lead, error)
	List(ctx context.Context, q model.ListQuery) (*model.Page[*model.Lead], error)
	Update(ctx context.Context, actorID, id string, req *model.UpdateLeadRequest) (*model.Lead, error)
	Score(ctx context.Context, actorID, id string) (*model.Lead, error)
}

// LeadHandler handles the connect card and lead follow-up
type LeadHandler struct {
	leads LeadOperations
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leads LeadOperations) *LeadHandler {
	return &LeadHandler{leads: leads}
}

// Connect handles POST /v1/connect. It is public.
func (h *LeadHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req model.ConnectCardRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	lead, err := h.leads.Connect(r.Context(), &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "connect card"))
		return
	}

	// Visitors get an acknowledgement, not the stored record
	WriteData(w, http.StatusCreated, map[string]string{"id": lead.ID, "status": "received"}, nil)
}

// List handles GET /v1/admin/leads
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	q, perr := ParseListQuery(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	result, err := h.leads.List(r.Context(), q)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list leads"))
		return
	}

	WritePage(w, result)
}

// Update handles PATCH /v1/admin/leads/{id}
func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.UpdateLeadRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	lead, err := h.leads.Update(r.Context(), actorID, r.PathValue("id"), &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "update lead"))
		return
	}

	WriteData(w, http.StatusOK, lead, nil)
}

// Score handles POST /v1/admin/leads/{id}/score
func (h *LeadHandler) Score(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	lead, err := h.leads.Score(r.Context(), actorID, r.PathValue("id"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "score lead"))
		return
	}

	WriteData(w, http.StatusOK, lead, nil)
}
