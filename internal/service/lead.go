package service

import (
	"context"
	"strings"

	"github.com/forgo/shepherd/api/internal/ai"
	"github.com/forgo/shepherd/api/internal/filter"
	"github.com/forgo/shepherd/api/internal/model"
)

// LeadRepository defines visitor lead storage
type LeadRepository interface {
	Create(ctx context.Context, l *model.Lead) error
	GetByID(ctx context.Context, id string) (*model.Lead, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) (*model.Lead, error)
	SetScore(ctx context.Context, id string, score *model.LeadScore) (*model.Lead, error)
	List(ctx context.Context, cond filter.Condition, page model.PageRequest) (*model.Page[*model.Lead], error)
}

// LeadService handles connect cards and follow-up
type LeadService struct {
	repo      LeadRepository
	generator ai.Generator
	auditor   Auditor
	schema    *filter.Schema
}

// NewLeadService creates a new lead service
func NewLeadService(repo LeadRepository, generator ai.Generator, auditor Auditor, schema *filter.Schema) *LeadService {
	if generator == nil {
		generator = ai.Unconfigured{}
	}
	if auditor == nil {
		auditor = noopAuditor{}
	}
	return &LeadService{repo: repo, generator: generator, auditor: auditor, schema: schema}
}

// Connect stores a visitor's connect card as a new lead
func (s *LeadService) Connect(ctx context.Context, req *model.ConnectCardRequest) (*model.Lead, error) {
	source := model.LeadSource(req.Source)
	if source == "" {
		source = model.LeadSourceWebsite
	}

	lead := &model.Lead{
		Name:      strings.TrimSpace(req.Name),
		Email:     trimmedPtr(req.Email),
		Phone:     trimmedPtr(req.Phone),
		Source:    source,
		Interests: req.Interests,
		Message:   trimmedPtr(req.Message),
		Status:    model.LeadNew,
	}
	if lead.Email != nil {
		lower := strings.ToLower(*lead.Email)
		lead.Email = &lower
	}
	if lead.Email == nil && lead.Phone == nil {
		return nil, ErrInvalidInput
	}

	if err := s.repo.Create(ctx, lead); err != nil {
		return nil, err
	}
	return lead, nil
}

// List returns leads matching a staff filter, best scores first
func (s *LeadService) List(ctx context.Context, q model.ListQuery) (*model.Page[*model.Lead], error) {
	cond, err := parseFilter(s.schema, q.Filter)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, cond, q.PageRequest)
}

// Update records follow-up status or notes
func (s *LeadService) Update(ctx context.Context, actorID, id string, req *model.UpdateLeadRequest) (*model.Lead, error) {
	lead, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Notes != nil {
		updates["notes"] = strings.TrimSpace(*req.Notes)
	}
	if len(updates) == 0 {
		return lead, nil
	}

	updated, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrLeadNotFound
	}

	detail := map[string]interface{}{}
	if req.Status != nil {
		detail["from"] = string(lead.Status)
		detail["to"] = *req.Status
	}
	if req.Notes != nil {
		detail["notes"] = true
	}
	s.auditor.Record(ctx, actorID, model.AuditLeadUpdate, "lead", id, detail)
	return updated, nil
}

// Score asks the model to rate a lead and stores the result
func (s *LeadService) Score(ctx context.Context, actorID, id string) (*model.Lead, error) {
	lead, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	score, err := ai.ScoreLead(ctx, s.generator, lead)
	if err != nil {
		return nil, mapAIError(err)
	}
	score.Clamp()

	updated, err := s.repo.SetScore(ctx, id, score)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrLeadNotFound
	}

	s.auditor.Record(ctx, actorID, model.AuditLeadScore, "lead", id, map[string]interface{}{"score": score.Score})
	return updated, nil
}

func (s *LeadService) load(ctx context.Context, id string) (*model.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, ErrLeadNotFound
	}
	return lead, nil
}
