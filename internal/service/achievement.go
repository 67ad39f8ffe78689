package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/forgo/shepherd/api/internal/model"
	"golang.org/x/sync/errgroup"
)

// AchievementRepository defines the interface for badge storage
type AchievementRepository interface {
	Catalog(ctx context.Context) ([]*model.Achievement, error)
	GetByKey(ctx context.Context, key string) (*model.Achievement, error)
	ListByUser(ctx context.Context, userID string) ([]*model.UserAchievement, error)
	EarnedKeys(ctx context.Context, userID string) (map[string]bool, error)
	Award(ctx context.Context, userID, achievementID string) (bool, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}

// Activity counters the evaluator reads from
type (
	CompletedCounter interface {
		CountCompleted(ctx context.Context, userID string) (int, error)
	}
	PrayedCounter interface {
		CountPrayedBy(ctx context.Context, userID string) (int, error)
	}
	GoingCounter interface {
		CountGoing(ctx context.Context, userID string) (int, error)
	}
	SignupCounter interface {
		CountSignups(ctx context.Context, userID string) (int, error)
	}
)

// AchievementChecker re-evaluates a member's badges after an action
type AchievementChecker interface {
	Check(ctx context.Context, userID string)
}

// AchievementService owns the badge catalog and automatic awards
type AchievementService struct {
	repo     AchievementRepository
	gifts    CompletedCounter
	prayers  PrayedCounter
	rsvps    GoingCounter
	signups  SignupCounter
	plans    CompletedCounter
	notifier Notifier
	users    UserLookup
	auditor  Auditor
	logger   *slog.Logger
}

// AchievementServiceConfig holds configuration for the achievement service
type AchievementServiceConfig struct {
	Repo     AchievementRepository
	Gifts    CompletedCounter
	Prayers  PrayedCounter
	RSVPs    GoingCounter
	Signups  SignupCounter
	Plans    CompletedCounter
	Notifier Notifier
	Users    UserLookup
	Auditor  Auditor
	Logger   *slog.Logger
}

// NewAchievementService creates a new achievement service
func NewAchievementService(cfg AchievementServiceConfig) *AchievementService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Auditor == nil {
		cfg.Auditor = noopAuditor{}
	}
	return &AchievementService{
		repo:     cfg.Repo,
		gifts:    cfg.Gifts,
		prayers:  cfg.Prayers,
		rsvps:    cfg.RSVPs,
		signups:  cfg.Signups,
		plans:    cfg.Plans,
		notifier: cfg.Notifier,
		users:    cfg.Users,
		auditor:  cfg.Auditor,
		logger:   cfg.Logger,
	}
}

// Catalog lists every badge
func (s *AchievementService) Catalog(ctx context.Context) ([]*model.Achievement, error) {
	return s.repo.Catalog(ctx)
}

// ListForUser lists a member's earned badges
func (s *AchievementService) ListForUser(ctx context.Context, userID string) ([]*model.UserAchievement, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Counts gathers the activity totals achievements are judged on
func (s *AchievementService) Counts(ctx context.Context, userID string) (model.ActivityCounts, error) {
	var c model.ActivityCounts
	g, gctx := errgroup.WithContext(ctx)

	count := func(dst *int, fn func(context.Context, string) (int, error)) {
		g.Go(func() error {
			n, err := fn(gctx, userID)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}
	if s.gifts != nil {
		count(&c.CompletedGifts, s.gifts.CountCompleted)
	}
	if s.prayers != nil {
		count(&c.PrayersPrayed, s.prayers.CountPrayedBy)
	}
	if s.rsvps != nil {
		count(&c.GoingRSVPs, s.rsvps.CountGoing)
	}
	if s.signups != nil {
		count(&c.VolunteerSignups, s.signups.CountSignups)
	}
	if s.plans != nil {
		count(&c.PlansCompleted, s.plans.CountCompleted)
	}

	if err := g.Wait(); err != nil {
		return model.ActivityCounts{}, err
	}
	return c, nil
}

// Evaluate awards every badge the member now qualifies for and returns the new ones
func (s *AchievementService) Evaluate(ctx context.Context, userID string) ([]*model.Achievement, error) {
	counts, err := s.Counts(ctx, userID)
	if err != nil {
		return nil, err
	}
	qualified := counts.EarnedKeys()
	if len(qualified) == 0 {
		return nil, nil
	}

	earned, err := s.repo.EarnedKeys(ctx, userID)
	if err != nil {
		return nil, err
	}

	var awarded []*model.Achievement
	for _, key := range qualified {
		if earned[key] {
			continue
		}
		a, ok, err := s.award(ctx, userID, key)
		if err != nil {
			return awarded, err
		}
		if ok {
			awarded = append(awarded, a)
		}
	}
	return awarded, nil
}

// Check runs Evaluate and logs failures; badge awards never fail the action that triggered them
func (s *AchievementService) Check(ctx context.Context, userID string) {
	if _, err := s.Evaluate(ctx, userID); err != nil {
		s.logger.Warn("achievement evaluation failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// AwardByKey grants a badge manually. Awarding an already earned badge is
// not an error; the bool reports whether it was new.
func (s *AchievementService) AwardByKey(ctx context.Context, actorID, userID, key string) (*model.Achievement, bool, error) {
	if s.users != nil {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return nil, false, err
		}
		if user == nil {
			return nil, false, ErrUserNotFound
		}
	}

	a, ok, err := s.award(ctx, userID, key)
	if err != nil {
		return nil, false, err
	}
	if ok {
		s.auditor.Record(ctx, actorID, model.AuditAchievementAward, "user", userID, map[string]interface{}{"key": key})
	}
	return a, ok, nil
}

func (s *AchievementService) award(ctx context.Context, userID, key string) (*model.Achievement, bool, error) {
	a, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if a == nil {
		return nil, false, ErrAchievementNotFound
	}

	ok, err := s.repo.Award(ctx, userID, a.ID)
	if err != nil || !ok {
		return a, false, err
	}

	if s.notifier != nil {
		n := &model.Notification{
			UserID: userID,
			Kind:   model.NotifyAchievement,
			Title:  fmt.Sprintf("You earned %s", a.Name),
			Body:   a.Description,
			Link:   stringPtr("/me/achievements"),
		}
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.logger.Warn("achievement notification failed", slog.String("user_id", userID), slog.String("error", err.Error()))
		}
	}
	return a, true, nil
}
