package handler

import (
	"context"
	"net/http"

	"github.com/forgo/shepherd/api/internal/model"
)

// MemberOperations is what the member endpoints call
type MemberOperations interface {
	GetProfile(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, req *model.UpdateProfileRequest) (*model.User, error)
	Directory(ctx context.Context, q model.DirectoryQuery) (*model.Page[*model.DirectoryEntry], error)
	SetRole(ctx context.Context, actorID, userID string, role model.UserRole) (*model.User, error)
}

// MemberHandler handles profile, directory and role endpoints
type MemberHandler struct {
	members MemberOperations
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(members MemberOperations) *MemberHandler {
	return &MemberHandler{members: members}
}

// Me handles GET /v1/me
func (h *MemberHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	user, err := h.members.GetProfile(r.Context(), userID)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "get profile"))
		return
	}

	WriteData(w, http.StatusOK, user, map[string]string{
		"self":      "/v1/me",
		"dashboard": "/v1/me/dashboard",
	})
}

// UpdateMe handles PATCH /v1/me
func (h *MemberHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.UpdateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.members.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "update profile"))
		return
	}

	WriteData(w, http.StatusOK, user, nil)
}

// Directory handles GET /v1/directory
func (h *MemberHandler) Directory(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	page, perr := ParsePageRequest(r)
	if perr != nil {
		WriteError(w, perr)
		return
	}

	result, err := h.members.Directory(r.Context(), model.DirectoryQuery{
		Search:      r.URL.Query().Get("q"),
		PageRequest: page,
	})
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "directory"))
		return
	}

	WritePage(w, result)
}

// SetRole handles PATCH /v1/admin/members/{id}/role
func (h *MemberHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.UpdateRoleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.members.SetRole(r.Context(), actorID, r.PathValue("id"), model.UserRole(req.Role))
	if err != nil {
		WriteError(w, MapServiceErrorWithContext(err, "set role"))
		return
	}

	WriteData(w, http.StatusOK, user, nil)
}
