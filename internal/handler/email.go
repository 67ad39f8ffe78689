package handler

import (
	"context"
	"net/http"

	"github.com/forgo/shepherd/api/internal/model"
)

// EmailOperations is what the composer and template endpoints call
type EmailOperations interface {
	CreateTemplate(ctx context.Context, actorID string, req *model.SaveTemplateRequest) (*model.EmailTemplate, error)
	UpdateTemplate(ctx context.Context, actorID, id string, req *model.SaveTemplateRequest) (*model.EmailTemplate, error)
	GetTemplate(ctx context.Context, id string) (*model.EmailTemplate, error)
	ListTemplates(ctx context.Context) ([]*model.EmailTemplate, error)
	DeleteTemplate(ctx context.Context, actorID, id string) error
	Preview(ctx context.Context, req *model.PreviewRequest) (*model.RenderedEmail, error)
	Compose(ctx context.Context, actorID string, req *model.ComposeRequest) (*model.EmailCampaign, error)
	GetCampaign(ctx context.Context, id string) (*model.EmailCampaign, error)
	ListCampaigns(ctx context.Context, page model.PageRequest) (*model.Page[*model.EmailCampaign], error)
	Send(ctx context.Context, actorID, id string) (*model.EmailCampaign, error)
}

// EmailHandler handles the email composer and templates
type EmailHandler struct {
	email EmailOperations
}

// NewEmailHandler creates a new email handler
func NewEmailHandler(email EmailOperations) *EmailHandler {
	return &EmailHandler{email: email}
}

// ListTemplates handles GET /v1/admin/email/templates
func (h *EmailHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := h.email.ListTemplates(r.Context())
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list templates"))
		return
	}
	if list == nil {
		list = []*model.EmailTemplate{}
	}
	WriteData(w, http.StatusOK, list, nil)
}

// CreateTemplate handles POST /v1/admin/email/templates
func (h *EmailHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.SaveTemplateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	t, err := h.email.CreateTemplate(r.Context(), actorID, &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "create template"))
		return
	}

	WriteData(w, http.StatusCreated, t, map[string]string{
		"self": "/v1/admin/email/templates/" + t.ID,
	})
}

// GetTemplate handles GET /v1/admin/email/templates/{id}
func (h *EmailHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := h.email.GetTemplate(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "get template"))
		return
	}
	WriteData(w, http.StatusOK, t, nil)
}

// UpdateTemplate handles PATCH /v1/admin/email/templates/{id}
func (h *EmailHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.SaveTemplateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	t, err := h.email.UpdateTemplate(r.Context(), actorID, r.PathValue("id"), &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "update template"))
		return
	}

	WriteData(w, http.StatusOK, t, nil)
}

// DeleteTemplate handles DELETE /v1/admin/email/templates/{id}
func (h *EmailHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.email.DeleteTemplate(r.Context(), actorID, r.PathValue("id")); err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "delete template"))
		return
	}

	WriteNoContent(w)
}

// Preview handles POST /v1/admin/email/preview.
// With ?format=html the rendered document is returned as text/html.
func (h *EmailHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req model.PreviewRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	rendered, err := h.email.Preview(r.Context(), &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "preview"))
		return
	}

	if r.URL.Query().Get("format") == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(rendered.HTML))
		return
	}

	WriteData(w, http.StatusOK, rendered, nil)
}

// Compose handles POST /v1/admin/email/campaigns
func (h *EmailHandler) Compose(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.ComposeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	c, err := h.email.Compose(r.Context(), actorID, &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "compose"))
		return
	}

	WriteData(w, http.StatusCreated, c, map[string]string{
		"self": "/v1/admin/email/campaigns/" + c.ID,
		"send": "/v1/admin/email/campaigns/" + c.ID + "/send",
	})
}

// ListCampaigns handles GET /v1/admin/email/campaigns
func (h *EmailHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page, perr := ParsePageRequest(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	result, err := h.email.ListCampaigns(r.Context(), page)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "list campaigns"))
		return
	}

	WritePage(w, result)
}

// GetCampaign handles GET /v1/admin/email/campaigns/{id}
func (h *EmailHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := h.email.GetCampaign(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "get campaign"))
		return
	}
	WriteData(w, http.StatusOK, c, nil)
}

// Send handles POST /v1/admin/email/campaigns/{id}/send
func (h *EmailHandler) Send(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	c, err := h.email.Send(r.Context(), actorID, r.PathValue("id"))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "send campaign"))
		return
	}

	WriteData(w, http.StatusOK, c, nil)
}
