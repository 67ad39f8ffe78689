package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/forgo/shepherd/api/internal/ai"
	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/filter"
	"github.com/forgo/shepherd/api/internal/model"
)

// PrayerRepository defines the interface for prayer request storage
type PrayerRepository interface {
	Create(ctx context.Context, p *model.PrayerRequest) error
	GetByID(ctx context.Context, id string) (*model.PrayerRequest, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) (*model.PrayerRequest, error)
	Delete(ctx context.Context, id string) error
	ListWall(ctx context.Context, q model.PrayerListQuery) (*model.Page[*model.PrayerRequest], error)
	ListByAuthor(ctx context.Context, authorID string, page model.PageRequest) (*model.Page[*model.PrayerRequest], error)
	List(ctx context.Context, cond filter.Condition, page model.PageRequest) (*model.Page[*model.PrayerRequest], error)
	RecordPrayer(ctx context.Context, requestID, userID string) (int, error)
	CreatePartners(ctx context.Context, requestID string, partners []*model.PrayerPartner) ([]*model.PrayerPartner, error)
	ListPartners(ctx context.Context, requestID string) ([]*model.PrayerPartner, error)
}

// PartnerDirectory lists members willing to pray for others
type PartnerDirectory interface {
	ListPrayerPartners(ctx context.Context, excludeID string, limit int) ([]*model.User, error)
}

// PrayerService handles the prayer wall and partner matching
type PrayerService struct {
	repo         PrayerRepository
	partners     PartnerDirectory
	generator    ai.Generator
	notifier     Notifier
	achievements AchievementChecker
	auditor      Auditor
	schema       *filter.Schema
	now          func() time.Time
	logger       *slog.Logger
}

// PrayerServiceConfig holds configuration for the prayer service
type PrayerServiceConfig struct {
	Repo         PrayerRepository
	Partners     PartnerDirectory
	Generator    ai.Generator // ai.Unconfigured{} when no model key is set
	Notifier     Notifier
	Achievements AchievementChecker
	Auditor      Auditor
	Filter       *filter.Schema
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewPrayerService creates a new prayer service
func NewPrayerService(cfg PrayerServiceConfig) *PrayerService {
	if cfg.Generator == nil {
		cfg.Generator = ai.Unconfigured{}
	}
	if cfg.Auditor == nil {
		cfg.Auditor = noopAuditor{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &PrayerService{
		repo:         cfg.Repo,
		partners:     cfg.Partners,
		generator:    cfg.Generator,
		notifier:     cfg.Notifier,
		achievements: cfg.Achievements,
		auditor:      cfg.Auditor,
		schema:       cfg.Filter,
		now:          cfg.Now,
		logger:       cfg.Logger,
	}
}

// Create stores a new active request authored by userID
func (s *PrayerService) Create(ctx context.Context, userID string, req *model.CreatePrayerRequest) (*model.PrayerRequest, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" || utf8.RuneCountInString(title) > model.MaxPrayerTitleLength {
		return nil, ErrInvalidInput
	}

	visibility := model.PrayerVisibility(req.Visibility)
	if visibility == "" {
		visibility = model.PrayerMembers
	}

	p := &model.PrayerRequest{
		AuthorID:   &userID,
		Title:      title,
		Body:       trimmedPtr(req.Body),
		Visibility: visibility,
		Anonymous:  req.Anonymous,
		Status:     model.PrayerActive,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns a request as the viewer may see it. Private requests are
// hidden from everyone but the author and staff.
func (s *PrayerService) Get(ctx context.Context, viewerID string, staff bool, id string) (*model.PrayerRequest, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsAuthor(viewerID) || staff {
		return p, nil
	}
	if p.Visibility == model.PrayerPrivate {
		return nil, ErrPrayerNotFound
	}
	return p.Redacted(), nil
}

// Wall returns public and members-only requests with anonymous authors hidden
func (s *PrayerService) Wall(ctx context.Context, q model.PrayerListQuery) (*model.Page[*model.PrayerRequest], error) {
	if q.Status != nil && !q.Status.IsValid() {
		return nil, ErrInvalidStatus
	}
	page, err := s.repo.ListWall(ctx, q)
	if err != nil {
		return nil, err
	}
	for i, p := range page.Items {
		page.Items[i] = p.Redacted()
	}
	return page, nil
}

// Mine returns the caller's own requests
func (s *PrayerService) Mine(ctx context.Context, userID string, page model.PageRequest) (*model.Page[*model.PrayerRequest], error) {
	return s.repo.ListByAuthor(ctx, userID, page)
}

// Update lets the author edit an active request
func (s *PrayerService) Update(ctx context.Context, userID, id string, req *model.UpdatePrayerRequest) (*model.PrayerRequest, error) {
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if p.Status != model.PrayerActive {
		return nil, ErrPrayerNotActive
	}

	updates := make(map[string]interface{})
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, ErrInvalidInput
		}
		updates["title"] = title
	}
	if req.Body != nil {
		updates["body"] = strings.TrimSpace(*req.Body)
	}
	if req.Visibility != nil {
		updates["visibility"] = *req.Visibility
	}
	if req.Anonymous != nil {
		updates["anonymous"] = *req.Anonymous
	}
	if len(updates) == 0 {
		return p, nil
	}
	return s.update(ctx, id, updates)
}

// Answer marks the author's request answered and thanks its partners
func (s *PrayerService) Answer(ctx context.Context, userID, id string, req *model.AnswerPrayerRequest) (*model.PrayerRequest, error) {
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if p.Status != model.PrayerActive {
		return nil, ErrPrayerNotActive
	}

	updates := map[string]interface{}{
		"status":      model.PrayerAnswered,
		"answered_on": s.now().UTC(),
	}
	if req != nil && req.Note != nil {
		updates["answered_note"] = strings.TrimSpace(*req.Note)
	}
	updated, err := s.update(ctx, id, updates)
	if err != nil {
		return nil, err
	}

	s.notifyPartners(ctx, updated)
	return updated, nil
}

// Archive takes the author's request off the wall
func (s *PrayerService) Archive(ctx context.Context, userID, id string) (*model.PrayerRequest, error) {
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if p.Status == model.PrayerArchived {
		return p, nil
	}
	return s.update(ctx, id, map[string]interface{}{"status": model.PrayerArchived})
}

// Delete removes the author's request
func (s *PrayerService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Pray records that userID prayed for a request, once per member
func (s *PrayerService) Pray(ctx context.Context, userID, id string) (int, error) {
	p, err := s.Get(ctx, userID, false, id)
	if err != nil {
		return 0, err
	}
	if p.Status != model.PrayerActive {
		return 0, ErrPrayerNotActive
	}

	count, err := s.repo.RecordPrayer(ctx, id, userID)
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return 0, ErrAlreadyPrayed
		}
		return 0, err
	}

	if s.achievements != nil {
		s.achievements.Check(ctx, userID)
	}
	return count, nil
}

// Partners lists the members matched to pray for a request
func (s *PrayerService) Partners(ctx context.Context, viewerID string, staff bool, id string) ([]*model.PrayerPartner, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !staff && !p.IsAuthor(viewerID) {
		return nil, ErrNotPrayerAuthor
	}
	return s.repo.ListPartners(ctx, id)
}

// List returns requests matching a staff filter
func (s *PrayerService) List(ctx context.Context, q model.ListQuery) (*model.Page[*model.PrayerRequest], error) {
	cond, err := parseFilter(s.schema, q.Filter)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, cond, q.PageRequest)
}

// Moderate sets a request's status on behalf of staff
func (s *PrayerService) Moderate(ctx context.Context, actorID, id string, req *model.ModeratePrayerRequest) (*model.PrayerRequest, error) {
	status := model.PrayerStatus(req.Status)
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == status {
		return p, nil
	}

	updates := map[string]interface{}{"status": status}
	if status == model.PrayerAnswered {
		updates["answered_on"] = s.now().UTC()
	}
	updated, err := s.update(ctx, id, updates)
	if err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, model.AuditPrayerStatus, "prayer_request", id, map[string]interface{}{
		"from": string(p.Status),
		"to":   string(status),
	})
	return updated, nil
}

// Remove deletes any request on behalf of staff
func (s *PrayerService) Remove(ctx context.Context, actorID, id string) error {
	p, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.auditor.Record(ctx, actorID, model.AuditPrayerDelete, "prayer_request", id, map[string]interface{}{
		"title": p.Title,
	})
	return nil
}

// MatchPartners asks the model to pair a request with opted-in members,
// stores the matches and notifies each partner
func (s *PrayerService) MatchPartners(ctx context.Context, actorID, id string) ([]*model.PrayerPartner, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != model.PrayerActive {
		return nil, ErrPrayerNotActive
	}

	exclude := ""
	if p.AuthorID != nil {
		exclude = *p.AuthorID
	}
	users, err := s.partners.ListPrayerPartners(ctx, exclude, model.MaxPartnerCandidates)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrNoPartnerMatches
	}

	candidates := make([]ai.Candidate, 0, len(users))
	for _, u := range users {
		c := ai.Candidate{ID: u.ID, Name: u.DisplayName(), Ministries: u.Ministries}
		if u.Bio != nil {
			c.Bio = *u.Bio
		}
		candidates = append(candidates, c)
	}

	// The model only sees what an anonymous request would show
	matches, err := ai.MatchPrayerPartners(ctx, s.generator, p.Redacted(), candidates)
	if err != nil {
		return nil, mapAIError(err)
	}
	if len(matches) == 0 {
		return nil, ErrNoPartnerMatches
	}

	links := make([]*model.PrayerPartner, 0, len(matches))
	for _, m := range matches {
		links = append(links, &model.PrayerPartner{RequestID: id, PartnerID: m.CandidateID, Reason: m.Reason})
	}
	stored, err := s.repo.CreatePartners(ctx, id, links)
	if err != nil {
		return nil, err
	}

	matched := make(map[string]bool, len(matches))
	for _, m := range matches {
		matched[m.CandidateID] = true
	}
	for _, partner := range stored {
		if !matched[partner.PartnerID] {
			continue
		}
		s.notify(ctx, &model.Notification{
			UserID: partner.PartnerID,
			Kind:   model.NotifyPrayerPartner,
			Title:  "You've been asked to pray",
			Body:   fmt.Sprintf("Please keep %q in your prayers.", p.Title),
			Link:   stringPtr("/prayers/" + id),
		})
	}

	s.auditor.Record(ctx, actorID, model.AuditPrayerMatch, "prayer_request", id, map[string]interface{}{
		"matches": len(matches),
	})
	return stored, nil
}

func (s *PrayerService) notifyPartners(ctx context.Context, p *model.PrayerRequest) {
	partners, err := s.repo.ListPartners(ctx, p.ID)
	if err != nil {
		s.logger.Warn("list prayer partners", slog.String("request_id", p.ID), slog.String("error", err.Error()))
		return
	}
	for _, partner := range partners {
		s.notify(ctx, &model.Notification{
			UserID: partner.PartnerID,
			Kind:   model.NotifyPrayerAnswered,
			Title:  "A prayer was answered",
			Body:   fmt.Sprintf("%q has been marked answered. Thank you for praying.", p.Title),
			Link:   stringPtr("/prayers/" + p.ID),
		})
	}
}

func (s *PrayerService) notify(ctx context.Context, n *model.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("prayer notification failed", slog.String("user_id", n.UserID), slog.String("error", err.Error()))
	}
}

func (s *PrayerService) load(ctx context.Context, id string) (*model.PrayerRequest, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPrayerNotFound
	}
	return p, nil
}

func (s *PrayerService) owned(ctx context.Context, userID, id string) (*model.PrayerRequest, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsAuthor(userID) {
		return nil, ErrNotPrayerAuthor
	}
	return p, nil
}

func (s *PrayerService) update(ctx context.Context, id string, updates map[string]interface{}) (*model.PrayerRequest, error) {
	p, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPrayerNotFound
	}
	return p, nil
}

// mapAIError translates model client failures into service errors
func mapAIError(err error) error {
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		return ErrAIUnavailable
	case errors.Is(err, ai.ErrUpstream), errors.Is(err, ai.ErrMalformed):
		return fmt.Errorf("%w: %v", ErrAIUpstream, err)
	default:
		return err
	}
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	return stringPtr(strings.TrimSpace(*s))
}
