package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/model"
)

// ReadingPlanRepository defines plan and progress storage
type ReadingPlanRepository interface {
	Create(ctx context.Context, plan *model.ReadingPlan) error
	Get(ctx context.Context, id string) (*model.ReadingPlan, error)
	List(ctx context.Context, page model.PageRequest) (*model.Page[*model.ReadingPlan], error)
	Delete(ctx context.Context, id string) error
	Enroll(ctx context.Context, userID, planID string) (*model.ReadingProgress, error)
	GetProgress(ctx context.Context, userID, planID string) (*model.ReadingProgress, error)
	CompleteDay(ctx context.Context, progressID string, day int) (*model.ReadingProgress, error)
	ListProgress(ctx context.Context, userID string) ([]*model.ReadingProgress, error)
}

// ReadingPlanService handles plans and member progress
type ReadingPlanService struct {
	repo         ReadingPlanRepository
	achievements AchievementChecker
	auditor      Auditor
}

// NewReadingPlanService creates a new reading plan service
func NewReadingPlanService(repo ReadingPlanRepository, achievements AchievementChecker, auditor Auditor) *ReadingPlanService {
	if auditor == nil {
		auditor = noopAuditor{}
	}
	return &ReadingPlanService{repo: repo, achievements: achievements, auditor: auditor}
}

// Create publishes a new plan
func (s *ReadingPlanService) Create(ctx context.Context, actorID string, req *model.CreateReadingPlanRequest) (*model.ReadingPlan, error) {
	seen := make(map[int]bool, len(req.Days))
	for _, d := range req.Days {
		if seen[d.Day] {
			return nil, fmt.Errorf("%w: day %d appears twice", ErrInvalidInput, d.Day)
		}
		seen[d.Day] = true
	}

	plan := &model.ReadingPlan{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Days:        req.Days,
		CreatedBy:   actorID,
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, actorID, model.AuditReadingPlanCreate, "reading_plan", plan.ID, map[string]interface{}{
		"title": plan.Title,
		"days":  len(plan.Days),
	})
	return plan, nil
}

// Get retrieves a plan
func (s *ReadingPlanService) Get(ctx context.Context, id string) (*model.ReadingPlan, error) {
	plan, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrReadingPlanNotFound
	}
	return plan, nil
}

// List returns a page of plans
func (s *ReadingPlanService) List(ctx context.Context, page model.PageRequest) (*model.Page[*model.ReadingPlan], error) {
	return s.repo.List(ctx, page)
}

// Delete removes a plan and everyone's progress on it
func (s *ReadingPlanService) Delete(ctx context.Context, actorID, id string) error {
	plan, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.auditor.Record(ctx, actorID, model.AuditReadingPlanDelete, "reading_plan", id, map[string]interface{}{"title": plan.Title})
	return nil
}

// Enroll starts the caller on a plan
func (s *ReadingPlanService) Enroll(ctx context.Context, userID, planID string) (*model.ReadingProgress, error) {
	if _, err := s.Get(ctx, planID); err != nil {
		return nil, err
	}
	progress, err := s.repo.Enroll(ctx, userID, planID)
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, err
	}
	progress.ComputePercent()
	return progress, nil
}

// CompleteDay marks one day read. Repeating a day is a no-op.
func (s *ReadingPlanService) CompleteDay(ctx context.Context, userID, planID string, day int) (*model.ReadingProgress, error) {
	plan, err := s.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.HasDay(day) {
		return nil, ErrInvalidDay
	}

	progress, err := s.repo.GetProgress(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, ErrNotEnrolled
	}
	if progress.HasCompleted(day) {
		progress.ComputePercent()
		return progress, nil
	}

	wasComplete := progress.CompletedOn != nil
	updated, err := s.repo.CompleteDay(ctx, progress.ID, day)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotEnrolled
	}
	updated.ComputePercent()

	if !wasComplete && updated.CompletedOn != nil && s.achievements != nil {
		s.achievements.Check(ctx, userID)
	}
	return updated, nil
}

// Progress returns every plan the caller is enrolled in
func (s *ReadingPlanService) Progress(ctx context.Context, userID string) ([]*model.ReadingProgress, error) {
	progress, err := s.repo.ListProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, p := range progress {
		p.ComputePercent()
	}
	return progress, nil
}
