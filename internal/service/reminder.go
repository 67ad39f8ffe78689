package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/forgo/shepherd/api/internal/format"
	"github.com/forgo/shepherd/api/internal/model"
)

// reminderBatch caps how many reminders one pass handles per source
const reminderBatch = 200

// DueReminderSource lists and flags upcoming commitments that need a reminder
type DueReminderSource interface {
	ListDueReminders(ctx context.Context, now, until time.Time, limit int) ([]*model.DueReminder, error)
	MarkReminded(ctx context.Context, ids []string) error
}

// ReminderService sends inbox reminders for upcoming events and volunteer shifts
type ReminderService struct {
	rsvps     DueReminderSource
	signups   DueReminderSource
	notifier  Notifier
	lookahead time.Duration
	fmt       *format.Formatter
	now       func() time.Time
	logger    *slog.Logger
}

// ReminderServiceConfig holds configuration for the reminder service
type ReminderServiceConfig struct {
	RSVPs     DueReminderSource
	Signups   DueReminderSource
	Notifier  Notifier
	Lookahead time.Duration
	Formatter *format.Formatter
	Now       func() time.Time
	Logger    *slog.Logger
}

// ReminderResult counts what one pass sent
type ReminderResult struct {
	Events int
	Shifts int
}

// NewReminderService creates a new reminder service
func NewReminderService(cfg ReminderServiceConfig) *ReminderService {
	if cfg.Lookahead <= 0 {
		cfg.Lookahead = 24 * time.Hour
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
	return &ReminderService{
		rsvps:     cfg.RSVPs,
		signups:   cfg.Signups,
		notifier:  cfg.Notifier,
		lookahead: cfg.Lookahead,
		fmt:       cfg.Formatter,
		now:       cfg.Now,
		logger:    cfg.Logger,
	}
}

// ProcessDue notifies members about commitments starting within the lookahead.
// A failure in one source does not stop the other.
func (s *ReminderService) ProcessDue(ctx context.Context) (ReminderResult, error) {
	var result ReminderResult
	now := s.now().UTC()
	until := now.Add(s.lookahead)

	var firstErr error
	if s.rsvps != nil {
		n, err := s.process(ctx, s.rsvps, model.NotifyEventReminder, "/events/", now, until)
		result.Events = n
		if err != nil {
			s.logger.Error("event reminders failed", slog.String("error", err.Error()))
			firstErr = err
		}
	}
	if s.signups != nil {
		n, err := s.process(ctx, s.signups, model.NotifyShiftReminder, "/volunteer/shifts/", now, until)
		result.Shifts = n
		if err != nil {
			s.logger.Error("shift reminders failed", slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return result, firstErr
}

func (s *ReminderService) process(ctx context.Context, src DueReminderSource, kind model.NotificationKind, linkPrefix string, now, until time.Time) (int, error) {
	due, err := src.ListDueReminders(ctx, now, until, reminderBatch)
	if err != nil {
		return 0, fmt.Errorf("list due reminders: %w", err)
	}

	sent := make([]string, 0, len(due))
	for _, d := range due {
		link := linkPrefix + d.TargetID
		n := &model.Notification{
			UserID: d.UserID,
			Kind:   kind,
			Title:  "Reminder: " + d.Title,
			Body:   s.fmt.Sprintf("%s starts %s UTC.", d.Title, d.StartTime.UTC().Format("Mon Jan 2 at 3:04 PM")),
			Link:   &link,
		}
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.logger.Warn("reminder notify failed",
				slog.String("user_id", d.UserID),
				slog.String("target_id", d.TargetID),
				slog.String("error", err.Error()))
			continue
		}
		sent = append(sent, d.ID)
	}

	if err := src.MarkReminded(ctx, sent); err != nil {
		return 0, fmt.Errorf("mark reminded: %w", err)
	}
	return len(sent), nil
}
