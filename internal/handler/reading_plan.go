package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/forgo/shepherd/api/internal/model"
)

// ReadingPlanOperations is what the reading plan endpoints call
type ReadingPlanOperations interface {
	Create(ctx context.Context, actorID string, req *model.CreateReadingPlanRequest) (*model.ReadingPlan, error)
	Get(ctx context.Context, id string) (*model.ReadingPlan, error)
	List(ctx context.Context, page model.PageRequest) (*model.Page[*model.ReadingPlan], error)
	Delete(ctx context.Context, actorID, id string) error
	Enroll(ctx context.Context, userID, planID string) (*model.ReadingProgress, error)
	CompleteDay(ctx context.Context, userID, planID string, day int) (*model.ReadingProgress, error)
	Progress(ctx context.Context, userID string) ([]*model.ReadingProgress, error)
}

// ReadingPlanHandler handles reading plan endpoints
type ReadingPlanHandler struct {
	plans ReadingPlanOperations
}

// NewReadingPlanHandler creates a new reading plan handler
func NewReadingPlanHandler(plans ReadingPlanOperations) *ReadingPlanHandler {
	return &ReadingPlanHandler{plans: plans}
}

// List handles GET /v1/reading-plans
func (h *ReadingPlanHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perr := ParsePageRequest(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	result, err := h.plans.List(r.Context(), page)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list reading plans"))
		return
	}

	WritePage(w, result)
}

// Get handles GET /v1/reading-plans/{id}
func (h *ReadingPlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	plan, err := h.plans.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "get reading plan"))
		return
	}

	WriteData(w, http.StatusOK, plan, map[string]string{
		"enroll": "/v1/reading-plans/" + plan.ID + "/enroll",
	})
}

// Enroll handles POST /v1/reading-plans/{id}/enroll
func (h *ReadingPlanHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	progress, err := h.plans.Enroll(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "enroll"))
		return
	}

	WriteData(w, http.StatusCreated, progress, nil)
}

// CompleteDay handles POST /v1/reading-plans/{id}/days/{day}/complete
func (h *ReadingPlanHandler) CompleteDay(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	day, err := strconv.Atoi(r.PathValue("day"))
	if err != nil || day < 1 {
		WriteError(w, model.NewBadRequestError("day must be a positive integer"))
		return
	}

	progress, err := h.plans.CompleteDay(r.Context(), userID, r.PathValue("id"), day)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "complete day"))
		return
	}

	WriteData(w, http.StatusOK, progress, nil)
}

// Mine handles GET /v1/me/reading-plans
func (h *ReadingPlanHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	progress, err := h.plans.Progress(r.Context(), userID)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "reading progress"))
		return
	}
	if progress == nil {
		progress = []*model.ReadingProgress{}
	}

	WriteData(w, http.StatusOK, progress, nil)
}

// Create handles POST /v1/admin/reading-plans
func (h *ReadingPlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreateReadingPlanRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	plan, err := h.plans.Create(r.Context(), actorID, &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "create reading plan"))
		return
	}

	WriteData(w, http.StatusCreated, plan, map[string]string{
		"self": "/v1/reading-plans/" + plan.ID,
	})
}

// Delete handles DELETE /v1/admin/reading-plans/{id}
func (h *ReadingPlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.plans.Delete(r.Context(), actorID, r.PathValue("id")); err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "delete reading plan"))
		return
	}

	WriteNoContent(w)
}
