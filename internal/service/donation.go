package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/forgo/shepherd/api/internal/filter"
	"github.com/forgo/shepherd/api/internal/format"
	"github.com/forgo/shepherd/api/internal/model"
	"github.com/forgo/shepherd/api/internal/payments"
)

// DonationRepository defines the interface for gift storage
type DonationRepository interface {
	Create(ctx context.Context, d *model.Donation) error
	GetByID(ctx context.Context, id string) (*model.Donation, error)
	GetByCheckoutSession(ctx context.Context, sessionID string) (*model.Donation, error)
	SetCheckoutSession(ctx context.Context, id, sessionID string) error
	UpdateStatus(ctx context.Context, id string, status model.DonationStatus) (*model.Donation, error)
	SettlePending(ctx context.Context, id string, status model.DonationStatus) (*model.Donation, error)
	ListByMember(ctx context.Context, memberID string, page model.PageRequest) (*model.Page[*model.Donation], error)
	List(ctx context.Context, cond filter.Condition, page model.PageRequest) (*model.Page[*model.Donation], error)
	Summary(ctx context.Context, memberID string, from, to time.Time) (int64, int, error)
}

// ReceiptSender emails a donation receipt
type ReceiptSender interface {
	DonationReceipt(ctx context.Context, to model.Recipient, d *model.Donation) error
}

// DonationService handles online checkout, webhooks and offline gifts
type DonationService struct {
	repo         DonationRepository
	provider     payments.Provider
	users        UserLookup
	receipts     ReceiptSender
	notifier     Notifier
	achievements AchievementChecker
	auditor      Auditor
	schema       *filter.Schema
	fmt          *format.Formatter
	currency     string
	now          func() time.Time
	logger       *slog.Logger
}

// DonationServiceConfig holds configuration for the donation service
type DonationServiceConfig struct {
	Repo         DonationRepository
	Provider     payments.Provider // nil when online giving is not configured
	Users        UserLookup
	Receipts     ReceiptSender
	Notifier     Notifier
	Achievements AchievementChecker
	Auditor      Auditor
	Filter       *filter.Schema
	Formatter    *format.Formatter
	Currency     string // Default: usd
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewDonationService creates a new donation service
func NewDonationService(cfg DonationServiceConfig) *DonationService {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.Formatter == nil {
		cfg.Formatter = format.New("en-US")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Auditor == nil {
		cfg.Auditor = noopAuditor{}
	}
	return &DonationService{
		repo:         cfg.Repo,
		provider:     cfg.Provider,
		users:        cfg.Users,
		receipts:     cfg.Receipts,
		notifier:     cfg.Notifier,
		achievements: cfg.Achievements,
		auditor:      cfg.Auditor,
		schema:       cfg.Filter,
		fmt:          cfg.Formatter,
		currency:     strings.ToLower(cfg.Currency),
		now:          cfg.Now,
		logger:       cfg.Logger,
	}
}

// Checkout creates a pending gift and a hosted checkout session for it
func (s *DonationService) Checkout(ctx context.Context, userID string, req *model.CheckoutRequest) (*model.CheckoutResult, error) {
	if s.provider == nil {
		return nil, ErrPaymentsUnavailable
	}
	if req.AmountCents < model.MinDonationCents || req.AmountCents > model.MaxDonationCents {
		return nil, ErrInvalidAmount
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	d := &model.Donation{
		MemberID:    &user.ID,
		AmountCents: req.AmountCents,
		Currency:    req.NormalizedCurrency(s.currency),
		Fund:        model.DonationFund(req.Fund),
		Frequency:   model.DonationFrequency(req.Frequency),
		Method:      model.MethodCard,
		Status:      model.DonationPending,
		Note:        stringPtr(strings.TrimSpace(req.Note)),
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}

	session, err := s.provider.CreateCheckout(ctx, payments.CheckoutInput{
		DonationID:  d.ID,
		AmountCents: d.AmountCents,
		Currency:    d.Currency,
		Fund:        string(d.Fund),
		Monthly:     d.Frequency == model.FrequencyMonthly,
		Email:       user.Email,
	})
	if err != nil {
		if _, uerr := s.repo.UpdateStatus(ctx, d.ID, model.DonationFailed); uerr != nil {
			s.logger.Warn("mark donation failed", slog.String("donation_id", d.ID), slog.String("error", uerr.Error()))
		}
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}

	if err := s.repo.SetCheckoutSession(ctx, d.ID, session.ID); err != nil {
		return nil, err
	}
	d.CheckoutSessionID = &session.ID

	return &model.CheckoutResult{Donation: d, CheckoutURL: session.URL}, nil
}

// HandleWebhook verifies a provider event and settles the matching gift.
// Events for unknown sessions and unhandled types are acknowledged.
func (s *DonationService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.provider == nil {
		return ErrPaymentsUnavailable
	}
	ev, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			return ErrInvalidWebhook
		}
		return fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}

	var status model.DonationStatus
	switch ev.Type {
	case payments.EventCheckoutCompleted:
		status = model.DonationCompleted
	case payments.EventCheckoutExpired:
		status = model.DonationFailed
	default:
		s.logger.Debug("ignoring payment event", slog.String("type", ev.Type), slog.String("event_id", ev.ID))
		return nil
	}

	d, err := s.findForEvent(ctx, ev)
	if err != nil {
		return err
	}
	if d == nil {
		s.logger.Warn("payment event for unknown donation",
			slog.String("event_id", ev.ID),
			slog.String("session_id", ev.SessionID),
		)
		return nil
	}

	// Providers redeliver; only pending gifts move
	if d.Status != model.DonationPending {
		return nil
	}

	updated, err := s.repo.SettlePending(ctx, d.ID, status)
	if err != nil {
		return err
	}
	if updated == nil {
		s.logger.Debug("payment event already settled", slog.String("event_id", ev.ID), slog.String("donation_id", d.ID))
		return nil
	}
	if status == model.DonationCompleted {
		s.afterCompleted(ctx, updated)
	}
	return nil
}

func (s *DonationService) findForEvent(ctx context.Context, ev *payments.WebhookEvent) (*model.Donation, error) {
	if ev.SessionID != "" {
		d, err := s.repo.GetByCheckoutSession(ctx, ev.SessionID)
		if err != nil || d != nil {
			return d, err
		}
	}
	if ev.ClientReferenceID != "" {
		return s.repo.GetByID(ctx, ev.ClientReferenceID)
	}
	return nil, nil
}

// afterCompleted sends the receipt, notifies the giver and checks badges
func (s *DonationService) afterCompleted(ctx context.Context, d *model.Donation) {
	if d.MemberID == nil {
		return
	}
	memberID := *d.MemberID

	if s.receipts != nil && s.users != nil {
		user, err := s.users.GetByID(ctx, memberID)
		switch {
		case err != nil:
			s.logger.Warn("receipt lookup failed", slog.String("donation_id", d.ID), slog.String("error", err.Error()))
		case user != nil:
			if err := s.receipts.DonationReceipt(ctx, recipientOf(user), d); err != nil {
				s.logger.Warn("receipt email failed", slog.String("donation_id", d.ID), slog.String("error", err.Error()))
			}
		}
	}

	if s.notifier != nil {
		n := &model.Notification{
			UserID: memberID,
			Kind:   model.NotifyDonation,
			Title:  "Thank you for your gift",
			Body:   fmt.Sprintf("We received your gift of %s.", s.fmt.Money(d.AmountCents, d.Currency)),
			Link:   stringPtr("/me/donations"),
		}
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.logger.Warn("donation notification failed", slog.String("donation_id", d.ID), slog.String("error", err.Error()))
		}
	}

	if s.achievements != nil {
		s.achievements.Check(ctx, memberID)
	}
}

// History returns a page of the member's gifts and their year-to-date total
func (s *DonationService) History(ctx context.Context, userID string, page model.PageRequest) (*model.Page[*model.Donation], model.GivingSummary, error) {
	summary, err := s.YearSummary(ctx, userID)
	if err != nil {
		return nil, model.GivingSummary{}, err
	}
	donations, err := s.repo.ListByMember(ctx, userID, page)
	if err != nil {
		return nil, model.GivingSummary{}, err
	}
	return donations, summary, nil
}

// YearSummary totals the member's completed gifts since January 1
func (s *DonationService) YearSummary(ctx context.Context, userID string) (model.GivingSummary, error) {
	now := s.now()
	from := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	to := from.AddDate(1, 0, 0)

	total, count, err := s.repo.Summary(ctx, userID, from, to)
	if err != nil {
		return model.GivingSummary{}, err
	}
	return model.GivingSummary{
		Year:           now.Year(),
		TotalCents:     total,
		TotalFormatted: s.fmt.Money(total, s.currency),
		GiftCount:      count,
	}, nil
}

// List returns gifts matching an AIP-160 filter for staff
func (s *DonationService) List(ctx context.Context, q model.ListQuery) (*model.Page[*model.Donation], error) {
	cond, err := parseFilter(s.schema, q.Filter)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, cond, q.PageRequest)
}

// Record stores an offline cash or check gift as completed
func (s *DonationService) Record(ctx context.Context, actorID string, req *model.RecordDonationRequest) (*model.Donation, error) {
	if req.AmountCents < model.MinDonationCents || req.AmountCents > model.MaxDonationCents {
		return nil, ErrInvalidAmount
	}

	d := &model.Donation{
		AmountCents: req.AmountCents,
		Currency:    strings.ToLower(req.Currency),
		Fund:        model.DonationFund(req.Fund),
		Frequency:   model.FrequencyOneTime,
		Method:      model.DonationMethod(req.Method),
		Status:      model.DonationCompleted,
		Note:        stringPtr(strings.TrimSpace(req.Note)),
		RecordedBy:  &actorID,
	}
	if d.Currency == "" {
		d.Currency = s.currency
	}
	if req.ReceivedOn != nil {
		received, err := time.Parse("2006-01-02", *req.ReceivedOn)
		if err != nil {
			return nil, ErrInvalidInput
		}
		d.CreatedOn = received
	}

	if req.MemberID != nil && *req.MemberID != "" {
		member, err := s.users.GetByID(ctx, *req.MemberID)
		if err != nil {
			return nil, err
		}
		if member == nil {
			return nil, ErrUserNotFound
		}
		d.MemberID = &member.ID
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, model.AuditDonationRecord, "donation", d.ID, map[string]interface{}{
		"amount_cents": d.AmountCents,
		"method":       string(d.Method),
		"fund":         string(d.Fund),
	})
	s.afterCompleted(ctx, d)
	return d, nil
}

// UpdateStatus corrects a gift's status, e.g. after a refund
func (s *DonationService) UpdateStatus(ctx context.Context, actorID, id string, req *model.UpdateDonationStatusRequest) (*model.Donation, error) {
	status := model.DonationStatus(req.Status)
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}

	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrDonationNotFound
	}
	if d.Status == status {
		return d, nil
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrDonationNotFound
	}

	detail := map[string]interface{}{"from": string(d.Status), "to": string(status)}
	if req.Note != "" {
		detail["note"] = req.Note
	}
	s.auditor.Record(ctx, actorID, model.AuditDonationStatus, "donation", id, detail)

	if status == model.DonationCompleted {
		s.afterCompleted(ctx, updated)
	}
	return updated, nil
}
