package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/email"
	"github.com/forgo/shepherd/api/internal/model"
)

// DefaultSendConcurrency bounds parallel deliveries for one campaign
const DefaultSendConcurrency = 4

// EmailRepository defines template and campaign storage
type EmailRepository interface {
	SaveTemplate(ctx context.Context, t *model.EmailTemplate) error
	GetTemplate(ctx context.Context, id string) (*model.EmailTemplate, error)
	GetTemplateByKey(ctx context.Context, key string) (*model.EmailTemplate, error)
	ListTemplates(ctx context.Context) ([]*model.EmailTemplate, error)
	DeleteTemplate(ctx context.Context, id string) error
	CreateCampaign(ctx context.Context, c *model.EmailCampaign) error
	GetCampaign(ctx context.Context, id string) (*model.EmailCampaign, error)
	ListCampaigns(ctx context.Context, page model.PageRequest) (*model.Page[*model.EmailCampaign], error)
	ClaimCampaign(ctx context.Context, id string) (bool, error)
	FinishCampaign(ctx context.Context, id string, status model.CampaignStatus, sent, failed int) (*model.EmailCampaign, error)
}

// AudienceResolver turns an audience into addresses
type AudienceResolver interface {
	ListRecipients(ctx context.Context, audience model.EmailAudience) ([]model.Recipient, error)
}

// EmailRenderer renders content through a layout for one recipient
type EmailRenderer interface {
	Render(ctx context.Context, layout model.EmailLayout, subject, body string, to model.Recipient) (*model.RenderedEmail, error)
}

// EmailService handles templates, previews and campaigns
type EmailService struct {
	repo        EmailRepository
	audiences   AudienceResolver
	renderer    EmailRenderer
	mailer      email.Mailer
	auditor     Auditor
	concurrency int
	logger      *slog.Logger
}

// EmailServiceConfig holds configuration for the email service
type EmailServiceConfig struct {
	Repo        EmailRepository
	Audiences   AudienceResolver
	Renderer    EmailRenderer
	Mailer      email.Mailer
	Auditor     Auditor
	Concurrency int // Default: DefaultSendConcurrency
	Logger      *slog.Logger
}

// NewEmailService creates a new email service
func NewEmailService(cfg EmailServiceConfig) *EmailService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultSendConcurrency
	}
	if cfg.Auditor == nil {
		cfg.Auditor = noopAuditor{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &EmailService{
		repo:        cfg.Repo,
		audiences:   cfg.Audiences,
		renderer:    cfg.Renderer,
		mailer:      cfg.Mailer,
		auditor:     cfg.Auditor,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
	}
}

// sampleRecipient personalizes previews
var sampleRecipient = model.Recipient{Email: "member@example.com", Firstname: "Jordan", Lastname: "Rivers"}

// ===== Templates =====

// CreateTemplate stores a new template; keys are unique
func (s *EmailService) CreateTemplate(ctx context.Context, actorID string, req *model.SaveTemplateRequest) (*model.EmailTemplate, error) {
	key := normalizeKey(req.Key)
	existing, err := s.repo.GetTemplateByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrTemplateKeyExists
	}

	t := &model.EmailTemplate{
		Key:       key,
		Name:      strings.TrimSpace(req.Name),
		Subject:   strings.TrimSpace(req.Subject),
		Body:      req.Body,
		Layout:    model.EmailLayout(req.Layout),
		CreatedBy: actorID,
	}
	if err := s.save(ctx, t); err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, actorID, model.AuditEmailTemplateSave, "email_template", t.ID, map[string]interface{}{"key": t.Key})
	return t, nil
}

// UpdateTemplate replaces a template's content. The key can't change.
func (s *EmailService) UpdateTemplate(ctx context.Context, actorID, id string, req *model.SaveTemplateRequest) (*model.EmailTemplate, error) {
	existing, err := s.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if normalizeKey(req.Key) != existing.Key {
		return nil, fmt.Errorf("%w: template key cannot change", ErrInvalidInput)
	}

	t := &model.EmailTemplate{
		Key:       existing.Key,
		Name:      strings.TrimSpace(req.Name),
		Subject:   strings.TrimSpace(req.Subject),
		Body:      req.Body,
		Layout:    model.EmailLayout(req.Layout),
		CreatedBy: existing.CreatedBy,
	}
	if err := s.save(ctx, t); err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, actorID, model.AuditEmailTemplateSave, "email_template", t.ID, map[string]interface{}{"key": t.Key})
	return t, nil
}

func (s *EmailService) save(ctx context.Context, t *model.EmailTemplate) error {
	if err := s.repo.SaveTemplate(ctx, t); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return ErrTemplateKeyExists
		}
		return err
	}
	return nil
}

// GetTemplate retrieves a template
func (s *EmailService) GetTemplate(ctx context.Context, id string) (*model.EmailTemplate, error) {
	t, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTemplateNotFound
	}
	return t, nil
}

// ListTemplates returns every template
func (s *EmailService) ListTemplates(ctx context.Context) ([]*model.EmailTemplate, error) {
	return s.repo.ListTemplates(ctx)
}

// DeleteTemplate removes a template; campaigns drafted from it keep their copy
func (s *EmailService) DeleteTemplate(ctx context.Context, actorID, id string) error {
	t, err := s.GetTemplate(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteTemplate(ctx, id); err != nil {
		return err
	}
	s.auditor.Record(ctx, actorID, model.AuditEmailTemplateDelete, "email_template", id, map[string]interface{}{"key": t.Key})
	return nil
}

// ===== Composer =====

// Preview renders content for a sample recipient without sending
func (s *EmailService) Preview(ctx context.Context, req *model.PreviewRequest) (*model.RenderedEmail, error) {
	return s.renderer.Render(ctx, layoutOr(req.Layout, model.LayoutPlain), req.Subject, req.Body, sampleRecipient)
}

// Compose stores a draft campaign. A template supplies subject, body and
// layout unless the request overrides them.
func (s *EmailService) Compose(ctx context.Context, actorID string, req *model.ComposeRequest) (*model.EmailCampaign, error) {
	c := &model.EmailCampaign{
		Subject:   strings.TrimSpace(req.Subject),
		Body:      req.Body,
		Layout:    layoutOr(req.Layout, model.LayoutPlain),
		Audience:  model.EmailAudience(req.Audience),
		Status:    model.CampaignDraft,
		CreatedBy: actorID,
	}

	if req.TemplateID != nil && *req.TemplateID != "" {
		t, err := s.GetTemplate(ctx, *req.TemplateID)
		if err != nil {
			return nil, err
		}
		c.TemplateID = &t.ID
		if c.Subject == "" {
			c.Subject = t.Subject
		}
		if c.Body == "" {
			c.Body = t.Body
		}
		if req.Layout == "" {
			c.Layout = t.Layout
		}
	}
	if c.Subject == "" || strings.TrimSpace(c.Body) == "" {
		return nil, ErrInvalidInput
	}

	if err := s.repo.CreateCampaign(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetCampaign retrieves a campaign
func (s *EmailService) GetCampaign(ctx context.Context, id string) (*model.EmailCampaign, error) {
	c, err := s.repo.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCampaignNotFound
	}
	return c, nil
}

// ListCampaigns returns campaigns newest first
func (s *EmailService) ListCampaigns(ctx context.Context, page model.PageRequest) (*model.Page[*model.EmailCampaign], error) {
	return s.repo.ListCampaigns(ctx, page)
}

// Send delivers a draft campaign to its audience. Only one caller can claim
// a draft; individual delivery failures are counted, not returned.
func (s *EmailService) Send(ctx context.Context, actorID, id string) (*model.EmailCampaign, error) {
	c, err := s.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.CampaignDraft {
		return nil, ErrCampaignNotDraft
	}

	recipients, err := s.audiences.ListRecipients(ctx, c.Audience)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	claimed, err := s.repo.ClaimCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrCampaignNotDraft
	}

	// a claimed campaign must reach sent or failed even if the caller goes away
	work := context.WithoutCancel(ctx)
	sent, failed := s.deliver(work, c, recipients)

	status := model.CampaignSent
	if sent == 0 {
		status = model.CampaignFailed
	}
	finished, err := s.repo.FinishCampaign(work, id, status, sent, failed)
	if err != nil {
		s.logger.Error("campaign left in sending",
			slog.String("campaign_id", id),
			slog.Int("sent", sent),
			slog.Int("failed", failed),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	if finished == nil {
		return nil, ErrCampaignNotFound
	}

	s.logger.Info("campaign sent",
		slog.String("campaign_id", id),
		slog.String("audience", string(c.Audience)),
		slog.Int("sent", sent),
		slog.Int("failed", failed),
	)
	s.auditor.Record(work, actorID, model.AuditEmailSend, "email_campaign", id, map[string]interface{}{
		"audience": string(c.Audience),
		"sent":     sent,
		"failed":   failed,
	})
	return finished, nil
}

func (s *EmailService) deliver(ctx context.Context, c *model.EmailCampaign, recipients []model.Recipient) (int, int) {
	var sent, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, to := range recipients {
		g.Go(func() error {
			msg, err := s.renderer.Render(gctx, c.Layout, c.Subject, c.Body, to)
			if err == nil {
				_, err = s.mailer.Send(gctx, email.Message{
					To:      to.Email,
					Subject: msg.Subject,
					HTML:    msg.HTML,
					Text:    msg.Text,
					Tags:    map[string]string{"campaign": c.ID},
				})
			}
			if err != nil {
				failed.Add(1)
				s.logger.Warn("campaign delivery failed",
					slog.String("campaign_id", c.ID),
					slog.String("to", to.Email),
					slog.String("error", err.Error()),
				)
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(sent.Load()), int(failed.Load())
}

func layoutOr(layout string, fallback model.EmailLayout) model.EmailLayout {
	if layout == "" {
		return fallback
	}
	return model.EmailLayout(layout)
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
