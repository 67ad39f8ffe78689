package handler

import (
	"context"
	"net/http"

	"github.com/forgo/shepherd/api/internal/model"
)

// AchievementOperations is what the badge endpoints call
type AchievementOperations interface {
	Catalog(ctx context.Context) ([]*model.Achievement, error)
	ListForUser(ctx context.Context, userID string) ([]*model.UserAchievement, error)
	AwardByKey(ctx context.Context, actorID, userID, key string) (*model.Achievement, bool, error)
}

// AchievementHandler handles badge endpoints
type AchievementHandler struct {
	achievements AchievementOperations
}

// NewAchievementHandler creates a new achievement handler
func NewAchievementHandler(achievements AchievementOperations) *AchievementHandler {
	return &AchievementHandler{achievements: achievements}
}

// Catalog handles GET /v1/achievements
func (h *AchievementHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	list, err := h.achievements.Catalog(r.Context())
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "achievement catalog"))
		return
	}
	if list == nil {
		list = []*model.Achievement{}
	}
	WriteData(w, http.StatusOK, list, nil)
}

// Mine handles GET /v1/me/achievements
func (h *AchievementHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	list, err := h.achievements.ListForUser(r.Context(), userID)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "my achievements"))
		return
	}
	if list == nil {
		list = []*model.UserAchievement{}
	}
	WriteData(w, http.StatusOK, list, nil)
}

// AwardResponse reports a manual award
type AwardResponse struct {
	Achievement *model.Achievement `json:"achievement"`
	Awarded     bool               `json:"awarded"`
}

// Award handles POST /v1/admin/members/{id}/achievements.
// Re-awarding an earned badge answers 200 with awarded=false.
func (h *AchievementHandler) Award(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.AwardAchievementRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	a, awarded, err := h.achievements.AwardByKey(r.Context(), actorID, r.PathValue("id"), req.Key)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "award achievement"))
		return
	}

	status := http.StatusOK
	if awarded {
		status = http.StatusCreated
	}
	WriteData(w, status, AwardResponse{Achievement: a, Awarded: awarded}, nil)
}
