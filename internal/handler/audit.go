package handler

import (
	"context"
	"net/http"

	"github.com/forgo/shepherd/api/internal/model"
)

// AuditLog lists audit entries
type AuditLog interface {
	List(ctx context.Context, q model.ListQuery) (*model.Page[*model.AuditEntry], error)
}

// AuditHandler handles GET /v1/admin/audit
type AuditHandler struct {
	audit AuditLog
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(audit AuditLog) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List handles GET /v1/admin/audit?filter=action = "donation.record"
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q, perr := ParseListQuery(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	result, err := h.audit.List(r.Context(), q)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "audit log"))
		return
	}

	WritePage(w, result)
}
