package handler

import (
	"context"
	"net/http"

	"github.com/forgo/shepherd/api/internal/model"
)

// PrayerOperations is what the prayer endpoints call
type PrayerOperations interface {
	Create(ctx context.Context, userID string, req *model.CreatePrayerRequest) (*model.PrayerRequest, error)
	Get(ctx context.Context, viewerID string, staff bool, id string) (*model.PrayerRequest, error)
	Wall(ctx context.Context, q model.PrayerListQuery) (*model.Page[*model.PrayerRequest], error)
	Mine(ctx context.Context, userID string, page model.PageRequest) (*model.Page[*model.PrayerRequest], error)
	Update(ctx context.Context, userID, id string, req *model.UpdatePrayerRequest) (*model.PrayerRequest, error)
	Answer(ctx context.Context, userID, id string, req *model.AnswerPrayerRequest) (*model.PrayerRequest, error)
	Archive(ctx context.Context, userID, id string) (*model.PrayerRequest, error)
	Delete(ctx context.Context, userID, id string) error
	Pray(ctx context.Context, userID, id string) (int, error)
	Partners(ctx context.Context, viewerID string, staff bool, id string) ([]*model.PrayerPartner, error)
	List(ctx context.Context, q model.ListQuery) (*model.Page[*model.PrayerRequest], error)
	Moderate(ctx context.Context, actorID, id string, req *model.ModeratePrayerRequest) (*model.PrayerRequest, error)
	Remove(ctx context.Context, actorID, id string) error
	MatchPartners(ctx context.Context, actorID, id string) ([]*model.PrayerPartner, error)
}

// PrayerHandler handles prayer wall endpoints
type PrayerHandler struct {
	prayers PrayerOperations
}

// NewPrayerHandler creates a new prayer handler
func NewPrayerHandler(prayers PrayerOperations) *PrayerHandler {
	return &PrayerHandler{prayers: prayers}
}

// Create handles POST /v1/prayers
func (h *PrayerHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreatePrayerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	p, err := h.prayers.Create(r.Context(), userID, &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "create prayer"))
		return
	}

	WriteData(w, http.StatusCreated, p, map[string]string{
		"self": "/v1/prayers/" + p.ID,
	})
}

// Wall handles GET /v1/prayers
func (h *PrayerHandler) Wall(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	page, perr := ParsePageRequest(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	q := model.PrayerListQuery{PageRequest: page}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := model.PrayerStatus(raw)
		if !status.IsValid() {
			WriteError(w, model.NewBadRequestError("status must be active, answered or archived"))
			return
		}
		q.Status = &status
	}

	result, err := h.prayers.Wall(r.Context(), q)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "prayer wall"))
		return
	}

	WritePage(w, result)
}

// Mine handles GET /v1/me/prayers
func (h *PrayerHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	page, perr := ParsePageRequest(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	result, err := h.prayers.Mine(r.Context(), userID, page)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "my prayers"))
		return
	}

	WritePage(w, result)
}

// Get handles GET /v1/prayers/{id}
func (h *PrayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	p, err := h.prayers.Get(r.Context(), userID, isStaff(r), r.PathValue("id"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "get prayer"))
		return
	}

	WriteData(w, http.StatusOK, p, nil)
}

// Update handles PATCH /v1/prayers/{id}
func (h *PrayerHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.UpdatePrayerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	p, err := h.prayers.Update(r.Context(), userID, r.PathValue("id"), &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "update prayer"))
		return
	}

	WriteData(w, http.StatusOK, p, nil)
}

// Answer handles POST /v1/prayers/{id}/answer; the note body is optional
func (h *PrayerHandler) Answer(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.AnswerPrayerRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	p, err := h.prayers.Answer(r.Context(), userID, r.PathValue("id"), &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "answer prayer"))
		return
	}

	WriteData(w, http.StatusOK, p, nil)
}

// Archive handles POST /v1/prayers/{id}/archive
func (h *PrayerHandler) Archive(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	p, err := h.prayers.Archive(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "archive prayer"))
		return
	}

	WriteData(w, http.StatusOK, p, nil)
}

// Delete handles DELETE /v1/prayers/{id}
func (h *PrayerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.prayers.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "delete prayer"))
		return
	}

	WriteNoContent(w)
}

// Pray handles POST /v1/prayers/{id}/pray
func (h *PrayerHandler) Pray(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	count, err := h.prayers.Pray(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "pray"))
		return
	}

	WriteData(w, http.StatusOK, map[string]int{"prayer_count": count}, nil)
}

// Partners handles GET /v1/prayers/{id}/partners
func (h *PrayerHandler) Partners(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	partners, err := h.prayers.Partners(r.Context(), userID, isStaff(r), r.PathValue("id"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "prayer partners"))
		return
	}
	if partners == nil {
		partners = []*model.PrayerPartner{}
	}

	WriteData(w, http.StatusOK, partners, nil)
}

// AdminList handles GET /v1/admin/prayers
func (h *PrayerHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	q, perr := ParseListQuery(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	result, err := h.prayers.List(r.Context(), q)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list prayers"))
		return
	}

	WritePage(w, result)
}

// Moderate handles PATCH /v1/admin/prayers/{id}
func (h *PrayerHandler) Moderate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.ModeratePrayerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	p, err := h.prayers.Moderate(r.Context(), actorID, r.PathValue("id"), &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "moderate prayer"))
		return
	}

	WriteData(w, http.StatusOK, p, nil)
}

// Remove handles DELETE /v1/admin/prayers/{id}
func (h *PrayerHandler) Remove(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.prayers.Remove(r.Context(), actorID, r.PathValue("id")); err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "remove prayer"))
		return
	}

	WriteNoContent(w)
}

// Match handles POST /v1/admin/prayers/{id}/match
func (h *PrayerHandler) Match(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	partners, err := h.prayers.MatchPartners(r.Context(), actorID, r.PathValue("id"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "match prayer partners"))
		return
	}

	WriteData(w, http.StatusCreated, partners, nil)
}
