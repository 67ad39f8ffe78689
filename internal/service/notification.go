package service

import (
	"context"
	"log/slog"

	"github.com/forgo/shepherd/api/internal/model"
)

// NotificationRepository defines the interface for inbox storage
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	Get(ctx context.Context, id string) (*model.Notification, error)
	List(ctx context.Context, userID string, q model.NotificationQuery) (*model.Page[*model.Notification], error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, id string) error
	CountUnread(ctx context.Context, userID string) (int, error)
}

// Notifier creates inbox notifications
type Notifier interface {
	Notify(ctx context.Context, n *model.Notification) error
}

// NotificationService manages member inboxes and pushes new items to open streams
type NotificationService struct {
	repo   NotificationRepository
	hub    *EventHub
	logger *slog.Logger
}

// NotificationServiceConfig holds configuration for the notification service
type NotificationServiceConfig struct {
	Repo   NotificationRepository
	Hub    *EventHub // optional
	Logger *slog.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(cfg NotificationServiceConfig) *NotificationService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &NotificationService{repo: cfg.Repo, hub: cfg.Hub, logger: cfg.Logger}
}

// Notify stores a notification and pushes it to the member's open streams
func (s *NotificationService) Notify(ctx context.Context, n *model.Notification) error {
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	if s.hub != nil {
		s.hub.SendToUser(n.UserID, &Event{Type: EventNotification, Data: n})
	}
	return nil
}

// List returns a page of the member's inbox
func (s *NotificationService) List(ctx context.Context, userID string, q model.NotificationQuery) (*model.Page[*model.Notification], error) {
	return s.repo.List(ctx, userID, q)
}

// UnreadCount returns the member's unread total
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead marks one of the member's notifications read
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return err
	}
	s.pushUnread(ctx, userID)
	return nil
}

// MarkAllRead marks the whole inbox read and returns how many changed
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	if n > 0 && s.hub != nil {
		s.hub.SendToUser(userID, &Event{Type: EventUnreadCount, Data: map[string]int{"unread": 0}})
	}
	return n, nil
}

// Delete removes one of the member's notifications
func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// owned loads a notification; other members' notifications read as missing
func (s *NotificationService) owned(ctx context.Context, userID, id string) (*model.Notification, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil || n.UserID != userID {
		return nil, ErrNotificationNotFound
	}
	return n, nil
}

func (s *NotificationService) pushUnread(ctx context.Context, userID string) {
	if s.hub == nil || s.hub.SubscriberCount(userID) == 0 {
		return
	}
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Warn("count unread failed", slog.String("user_id", userID), slog.String("error", err.Error()))
		return
	}
	s.hub.SendToUser(userID, &Event{Type: EventUnreadCount, Data: map[string]int{"unread": count}})
}
