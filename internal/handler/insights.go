package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/forgo/shepherd/api/internal/insights"
	"github.com/forgo/shepherd/api/internal/model"
	"github.com/forgo/shepherd/api/internal/service"
)

// InsightsReporter computes the analytics report
type InsightsReporter interface {
	Report(ctx context.Context, days int) (*insights.Report, error)
}

// InsightsHandler handles GET /v1/admin/insights
type InsightsHandler struct {
	insights InsightsReporter
}

// NewInsightsHandler creates a new insights handler
func NewInsightsHandler(reporter InsightsReporter) *InsightsHandler {
	return &InsightsHandler{insights: reporter}
}

// Get handles GET /v1/admin/insights?days=30
func (h *InsightsHandler) Get(w http.ResponseWriter, r *http.Request) {
	days := service.DefaultInsightDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			WriteError(w, model.NewBadRequestError("days must be an integer"))
			return
		}
		days = n
	}

	report, err := h.insights.Report(r.Context(), days)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "insights"))
		return
	}

	WriteData(w, http.StatusOK, report, nil)
}
