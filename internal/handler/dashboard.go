package handler

import (
	"context"
	"net/http"

	"github.com/forgo/shepherd/api/internal/model"
)

// DashboardBuilder assembles the member home screen
type DashboardBuilder interface {
	Get(ctx context.Context, userID string) (*model.Dashboard, error)
}

// DashboardHandler handles GET /v1/me/dashboard
type DashboardHandler struct {
	dashboard DashboardBuilder
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboard DashboardBuilder) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Get handles GET /v1/me/dashboard
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	d, err := h.dashboard.Get(r.Context(), userID)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "dashboard"))
		return
	}

	WriteData(w, http.StatusOK, d, map[string]string{
		"self":          "/v1/me/dashboard",
		"donations":     "/v1/me/donations",
		"events":        "/v1/me/events",
		"notifications": "/v1/me/notifications",
	})
}
