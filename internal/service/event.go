package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/model"
)

// EventRepositoryInterface defines the repository interface
type EventRepositoryInterface interface {
	Create(ctx context.Context, event *model.Event) error
	Get(ctx context.Context, eventID string) (*model.Event, error)
	Update(ctx context.Context, eventID string, updates map[string]interface{}) (*model.Event, error)
	List(ctx context.Context, q model.EventListQuery, now time.Time) (*model.Page[*model.Event], error)
	ListUpcomingForUser(ctx context.Context, userID string, now time.Time, limit int) ([]*model.Event, error)
}

// RSVPRepositoryInterface defines RSVP storage
type RSVPRepositoryInterface interface {
	Get(ctx context.Context, eventID, userID string) (*model.RSVP, error)
	Upsert(ctx context.Context, eventID, userID string, status model.RSVPStatus) (*model.RSVP, error)
	Delete(ctx context.Context, eventID, userID string) (bool, error)
	ListByUser(ctx context.Context, userID string, now time.Time, page model.PageRequest) (*model.Page[*model.EventWithRSVP], error)
}

// EventService handles event business logic
type EventService struct {
	repo         EventRepositoryInterface
	rsvps        RSVPRepositoryInterface
	achievements AchievementChecker
	auditor      Auditor
	now          func() time.Time
}

// EventServiceConfig holds configuration for the event service
type EventServiceConfig struct {
	Repo         EventRepositoryInterface
	RSVPs        RSVPRepositoryInterface
	Achievements AchievementChecker
	Auditor      Auditor
	Now          func() time.Time
}

// NewEventService creates a new event service
func NewEventService(cfg EventServiceConfig) *EventService {
	if cfg.Auditor == nil {
		cfg.Auditor = noopAuditor{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &EventService{
		repo:         cfg.Repo,
		rsvps:        cfg.RSVPs,
		achievements: cfg.Achievements,
		auditor:      cfg.Auditor,
		now:          cfg.Now,
	}
}

// Create schedules a new event
func (s *EventService) Create(ctx context.Context, actorID string, req *model.CreateEventRequest) (*model.Event, error) {
	if !req.EndTime.After(req.StartTime) {
		return nil, ErrInvalidTimes
	}

	event := &model.Event{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Location:    req.Location,
		Category:    req.Category,
		StartTime:   req.StartTime.UTC(),
		EndTime:     req.EndTime.UTC(),
		Capacity:    req.Capacity,
		CreatedBy:   actorID,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, err
	}

	s.auditor.Record(ctx, actorID, model.AuditEventCreate, "event", event.ID, map[string]interface{}{
		"title":      event.Title,
		"start_time": event.StartTime,
	})
	return event, nil
}

// Get retrieves an event by ID
func (s *EventService) Get(ctx context.Context, eventID string) (*model.Event, error) {
	event, err := s.repo.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, ErrEventNotFound
	}
	return event, nil
}

// GetForUser returns an event with the caller's RSVP attached
func (s *EventService) GetForUser(ctx context.Context, userID, eventID string) (*model.EventWithRSVP, error) {
	event, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	rsvp, err := s.rsvps.Get(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	return &model.EventWithRSVP{Event: event, MyRSVP: rsvp}, nil
}

// List returns the event calendar
func (s *EventService) List(ctx context.Context, q model.EventListQuery) (*model.Page[*model.Event], error) {
	return s.repo.List(ctx, q, s.now())
}

// Update edits an event. Capacity can't drop below the number already going.
func (s *EventService) Update(ctx context.Context, actorID, eventID string, req *model.UpdateEventRequest) (*model.Event, error) {
	event, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Cancelled {
		return nil, ErrEventCancelled
	}

	start, end := event.StartTime, event.EndTime
	updates := make(map[string]interface{})
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.StartTime != nil {
		start = req.StartTime.UTC()
		updates["start_time"] = start
	}
	if req.EndTime != nil {
		end = req.EndTime.UTC()
		updates["end_time"] = end
	}
	if !end.After(start) {
		return nil, ErrInvalidTimes
	}
	if req.Capacity != nil {
		if *req.Capacity > 0 && *req.Capacity < event.GoingCount {
			return nil, fmt.Errorf("%w: capacity below the %d members already going", ErrInvalidInput, event.GoingCount)
		}
		updates["capacity"] = *req.Capacity
	}
	if len(updates) == 0 {
		return event, nil
	}

	updated, err := s.repo.Update(ctx, eventID, updates)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrEventNotFound
	}

	fields := make([]string, 0, len(updates))
	for k := range updates {
		fields = append(fields, k)
	}
	s.auditor.Record(ctx, actorID, model.AuditEventUpdate, "event", eventID, map[string]interface{}{"fields": fields})
	return updated, nil
}

// Cancel marks an event cancelled; existing RSVPs are kept for the record
func (s *EventService) Cancel(ctx context.Context, actorID, eventID string) (*model.Event, error) {
	event, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Cancelled {
		return event, nil
	}

	updated, err := s.repo.Update(ctx, eventID, map[string]interface{}{"cancelled": true})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrEventNotFound
	}
	s.auditor.Record(ctx, actorID, model.AuditEventCancel, "event", eventID, map[string]interface{}{"title": event.Title})
	return updated, nil
}

// RSVP creates or changes the caller's response. A new "going" on a full
// event fails with a *CapacityError wrapping ErrEventFull.
func (s *EventService) RSVP(ctx context.Context, userID, eventID string, status model.RSVPStatus) (*model.RSVP, error) {
	switch status {
	case model.RSVPGoing, model.RSVPMaybe, model.RSVPNotGoing:
	default:
		return nil, ErrInvalidStatus
	}

	event, err := s.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Cancelled {
		return nil, ErrEventCancelled
	}
	if event.HasStarted(s.now()) {
		return nil, ErrEventStarted
	}

	rsvp, err := s.rsvps.Upsert(ctx, eventID, userID, status)
	if err != nil {
		if errors.Is(err, database.ErrCapacity) {
			return nil, s.fullError(ctx, event)
		}
		return nil, err
	}

	if status == model.RSVPGoing && s.achievements != nil {
		s.achievements.Check(ctx, userID)
	}
	return rsvp, nil
}

// CancelRSVP removes the caller's response
func (s *EventService) CancelRSVP(ctx context.Context, userID, eventID string) error {
	if _, err := s.Get(ctx, eventID); err != nil {
		return err
	}
	existed, err := s.rsvps.Delete(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if !existed {
		return ErrRSVPNotFound
	}
	return nil
}

// MyEvents returns the caller's upcoming RSVPs
func (s *EventService) MyEvents(ctx context.Context, userID string, page model.PageRequest) (*model.Page[*model.EventWithRSVP], error) {
	return s.rsvps.ListByUser(ctx, userID, s.now(), page)
}

// Upcoming returns the next events the member is going to
func (s *EventService) Upcoming(ctx context.Context, userID string, limit int) ([]*model.Event, error) {
	return s.repo.ListUpcomingForUser(ctx, userID, s.now(), limit)
}

// fullError reports the capacity the transaction saw; the event is re-read
// since going_count may have moved since the pre-check
func (s *EventService) fullError(ctx context.Context, event *model.Event) error {
	current := event.GoingCount
	if fresh, err := s.repo.Get(ctx, event.ID); err == nil && fresh != nil {
		current = fresh.GoingCount
	}
	return &CapacityError{Resource: "event", Limit: event.Capacity, Current: current, Err: ErrEventFull}
}
