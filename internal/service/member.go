package service

import (
	"context"
	"strings"

	"github.com/forgo/shepherd/api/internal/model"
)

// MemberRepository defines the member profile and directory queries
type MemberRepository interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, id string, updates map[string]interface{}) (*model.User, error)
	SetRole(ctx context.Context, userID string, role model.UserRole) error
	Directory(ctx context.Context, q model.DirectoryQuery) (*model.Page[*model.User], error)
}

// MemberService handles profiles, the directory and roles
type MemberService struct {
	repo    MemberRepository
	auditor Auditor
}

// NewMemberService creates a new member service
func NewMemberService(repo MemberRepository, auditor Auditor) *MemberService {
	if auditor == nil {
		auditor = noopAuditor{}
	}
	return &MemberService{repo: repo, auditor: auditor}
}

// GetProfile returns the member's own profile
func (s *MemberService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateProfile applies the fields present in req
func (s *MemberService) UpdateProfile(ctx context.Context, userID string, req *model.UpdateProfileRequest) (*model.User, error) {
	updates := make(map[string]interface{})
	if req.Firstname != nil {
		updates["firstname"] = strings.TrimSpace(*req.Firstname)
	}
	if req.Lastname != nil {
		updates["lastname"] = strings.TrimSpace(*req.Lastname)
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.Ministries != nil {
		updates["ministries"] = req.Ministries
	}
	if req.DirectoryVisible != nil {
		updates["directory_visible"] = *req.DirectoryVisible
	}
	if req.ShowContact != nil {
		updates["show_contact"] = *req.ShowContact
	}
	if req.PrayerPartner != nil {
		updates["prayer_partner"] = *req.PrayerPartner
	}

	if len(updates) == 0 {
		return s.GetProfile(ctx, userID)
	}

	user, err := s.repo.UpdateProfile(ctx, userID, updates)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Directory lists members who chose to appear, stripped to public fields
func (s *MemberService) Directory(ctx context.Context, q model.DirectoryQuery) (*model.Page[*model.DirectoryEntry], error) {
	q.Search = strings.TrimSpace(q.Search)
	users, err := s.repo.Directory(ctx, q)
	if err != nil {
		return nil, err
	}

	out := &model.Page[*model.DirectoryEntry]{
		Items:       make([]*model.DirectoryEntry, 0, len(users.Items)),
		Total:       users.Total,
		PageRequest: users.PageRequest,
	}
	for _, u := range users.Items {
		out.Items = append(out.Items, u.ToDirectoryEntry())
	}
	return out, nil
}

// SetRole changes a member's role. Admins cannot demote themselves.
func (s *MemberService) SetRole(ctx context.Context, actorID, userID string, role model.UserRole) (*model.User, error) {
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}
	if actorID == userID && role != model.UserRoleAdmin {
		return nil, ErrForbidden
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	previous := user.Role

	if err := s.repo.SetRole(ctx, userID, role); err != nil {
		return nil, err
	}
	user.Role = role

	s.auditor.Record(ctx, actorID, model.AuditMemberRole, "user", userID, map[string]interface{}{
		"from": string(previous),
		"to":   string(role),
	})
	return user, nil
}
