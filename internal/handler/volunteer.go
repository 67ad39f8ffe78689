package handler

import (
	"context"
	"net/http"

	"github.com/forgo/shepherd/api/internal/model"
)

// VolunteerOperations is what the volunteer endpoints call
type VolunteerOperations interface {
	CreateOpportunity(ctx context.Context, actorID string, req *model.CreateOpportunityRequest) (*model.Opportunity, error)
	UpdateOpportunity(ctx context.Context, actorID, id string, req *model.UpdateOpportunityRequest) (*model.Opportunity, error)
	AddShift(ctx context.Context, actorID, opportunityID string, req *model.CreateShiftRequest) (*model.Shift, error)
	ListOpportunities(ctx context.Context, userID string, q model.OpportunityQuery) (*model.Page[*model.OpportunityWithShifts], error)
	GetOpportunity(ctx context.Context, userID, id string) (*model.OpportunityWithShifts, error)
	SignUp(ctx context.Context, userID, shiftID string) (*model.Signup, error)
	CancelSignup(ctx context.Context, userID, shiftID string) error
	MySignups(ctx context.Context, userID string, page model.PageRequest) (*model.Page[*model.SignupDetail], error)
}

// VolunteerHandler handles opportunity, shift and signup endpoints
type VolunteerHandler struct {
	volunteer VolunteerOperations
}

// NewVolunteerHandler creates a new volunteer handler
func NewVolunteerHandler(volunteer VolunteerOperations) *VolunteerHandler {
	return &VolunteerHandler{volunteer: volunteer}
}

// ListOpportunities handles GET /v1/volunteer/opportunities
func (h *VolunteerHandler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	page, perr := ParsePageRequest(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	result, err := h.volunteer.ListOpportunities(r.Context(), userID, model.OpportunityQuery{
		Ministry:    r.URL.Query().Get("ministry"),
		PageRequest: page,
	})
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list opportunities"))
		return
	}

	WritePage(w, result)
}

// GetOpportunity handles GET /v1/volunteer/opportunities/{id}
func (h *VolunteerHandler) GetOpportunity(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	opp, err := h.volunteer.GetOpportunity(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "get opportunity"))
		return
	}

	WriteData(w, http.StatusOK, opp, nil)
}

// SignUp handles POST /v1/volunteer/shifts/{id}/signup.
// A full shift answers 409 with the capacity problem.
func (h *VolunteerHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	signup, err := h.volunteer.SignUp(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "shift signup"))
		return
	}

	WriteData(w, http.StatusCreated, signup, map[string]string{
		"mine": "/v1/me/volunteer",
	})
}

// CancelSignup handles DELETE /v1/volunteer/shifts/{id}/signup
func (h *VolunteerHandler) CancelSignup(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.volunteer.CancelSignup(r.Context(), userID, r.PathValue("id")); err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "cancel signup"))
		return
	}

	WriteNoContent(w)
}

// Mine handles GET /v1/me/volunteer
func (h *VolunteerHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	page, perr := ParsePageRequest(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	result, err := h.volunteer.MySignups(r.Context(), userID, page)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "my signups"))
		return
	}

	WritePage(w, result)
}

// CreateOpportunity handles POST /v1/admin/volunteer/opportunities
func (h *VolunteerHandler) CreateOpportunity(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreateOpportunityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	opp, err := h.volunteer.CreateOpportunity(r.Context(), actorID, &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "create opportunity"))
		return
	}

	WriteData(w, http.StatusCreated, opp, map[string]string{
		"self":   "/v1/volunteer/opportunities/" + opp.ID,
		"shifts": "/v1/admin/volunteer/opportunities/" + opp.ID + "/shifts",
	})
}

// UpdateOpportunity handles PATCH /v1/admin/volunteer/opportunities/{id}
func (h *VolunteerHandler) UpdateOpportunity(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.UpdateOpportunityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	opp, err := h.volunteer.UpdateOpportunity(r.Context(), actorID, r.PathValue("id"), &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "update opportunity"))
		return
	}

	WriteData(w, http.StatusOK, opp, nil)
}

// AddShift handles POST /v1/admin/volunteer/opportunities/{id}/shifts
func (h *VolunteerHandler) AddShift(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreateShiftRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	shift, err := h.volunteer.AddShift(r.Context(), actorID, r.PathValue("id"), &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "add shift"))
		return
	}

	WriteData(w, http.StatusCreated, shift, nil)
}
