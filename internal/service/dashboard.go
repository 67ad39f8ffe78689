package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/forgo/shepherd/api/internal/model"
)

// The dashboard reads each part through the narrowest interface it needs
type (
	GivingSummarizer interface {
		YearSummary(ctx context.Context, userID string) (model.GivingSummary, error)
	}
	UpcomingEventLister interface {
		Upcoming(ctx context.Context, userID string, limit int) ([]*model.Event, error)
	}
	ActivePrayerCounter interface {
		CountActiveByAuthor(ctx context.Context, authorID string) (int, error)
	}
	UnreadCounter interface {
		UnreadCount(ctx context.Context, userID string) (int, error)
	}
	AchievementCounter interface {
		CountByUser(ctx context.Context, userID string) (int, error)
	}
	ReadingProgressLister interface {
		Progress(ctx context.Context, userID string) ([]*model.ReadingProgress, error)
	}
	SignupLister interface {
		MySignups(ctx context.Context, userID string, page model.PageRequest) (*model.Page[*model.SignupDetail], error)
	}
)

// DashboardService assembles the member home screen
type DashboardService struct {
	cfg DashboardServiceConfig
}

// DashboardServiceConfig holds the sources for each dashboard part
type DashboardServiceConfig struct {
	Users         UserLookup
	Giving        GivingSummarizer
	Events        UpcomingEventLister
	Prayers       ActivePrayerCounter
	Notifications UnreadCounter
	Achievements  AchievementCounter
	ReadingPlans  ReadingProgressLister
	Volunteer     SignupLister
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(cfg DashboardServiceConfig) *DashboardService {
	return &DashboardService{cfg: cfg}
}

// Get loads every part concurrently; any failure fails the whole dashboard
func (s *DashboardService) Get(ctx context.Context, userID string) (*model.Dashboard, error) {
	d := &model.Dashboard{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		user, err := s.cfg.Users.GetByID(gctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		d.Profile = user
		return nil
	})
	g.Go(func() error {
		var err error
		d.Giving, err = s.cfg.Giving.YearSummary(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		d.UpcomingEvents, err = s.cfg.Events.Upcoming(gctx, userID, model.DashboardEventLimit)
		return err
	})
	g.Go(func() error {
		var err error
		d.ActivePrayers, err = s.cfg.Prayers.CountActiveByAuthor(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		d.UnreadNotifications, err = s.cfg.Notifications.UnreadCount(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		d.AchievementCount, err = s.cfg.Achievements.CountByUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		d.ReadingPlans, err = s.cfg.ReadingPlans.Progress(gctx, userID)
		return err
	})
	g.Go(func() error {
		page, err := s.cfg.Volunteer.MySignups(gctx, userID, model.PageRequest{Page: 1, Limit: model.DashboardShiftLimit})
		if err != nil {
			return err
		}
		d.UpcomingShifts = page.Items
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if d.UpcomingEvents == nil {
		d.UpcomingEvents = []*model.Event{}
	}
	if d.ReadingPlans == nil {
		d.ReadingPlans = []*model.ReadingProgress{}
	}
	if d.UpcomingShifts == nil {
		d.UpcomingShifts = []*model.SignupDetail{}
	}
	return d, nil
}
