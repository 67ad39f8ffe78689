package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/shepherd/api/internal/model"
)

type memBadges struct {
	mu      sync.Mutex
	catalog []*model.Achievement
	earned  map[string]map[string]bool // user -> achievement id
}

func newMemBadges() *memBadges {
	m := &memBadges{earned: make(map[string]map[string]bool)}
	for i, key := range []string{
		model.AchievementFirstGift,
		model.AchievementPrayerWarrior,
		model.AchievementFaithfulAttender,
		model.AchievementServantHeart,
		model.AchievementReader,
	} {
		m.catalog = append(m.catalog, &model.Achievement{
			ID:   fmt.Sprintf("achievement:%d", i+1),
			Key:  key,
			Name: key,
		})
	}
	return m
}

func (m *memBadges) Catalog(ctx context.Context) ([]*model.Achievement, error) {
	return m.catalog, nil
}

func (m *memBadges) GetByKey(ctx context.Context, key string) (*model.Achievement, error) {
	for _, a := range m.catalog {
		if a.Key == key {
			return a, nil
		}
	}
	return nil, nil
}

func (m *memBadges) ListByUser(ctx context.Context, userID string) ([]*model.UserAchievement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.UserAchievement
	for _, a := range m.catalog {
		if m.earned[userID][a.ID] {
			out = append(out, &model.UserAchievement{UserID: userID, Achievement: a})
		}
	}
	return out, nil
}

func (m *memBadges) EarnedKeys(ctx context.Context, userID string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make(map[string]bool)
	for _, a := range m.catalog {
		if m.earned[userID][a.ID] {
			keys[a.Key] = true
		}
	}
	return keys, nil
}

func (m *memBadges) Award(ctx context.Context, userID, achievementID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.earned[userID] == nil {
		m.earned[userID] = make(map[string]bool)
	}
	if m.earned[userID][achievementID] {
		return false, nil
	}
	m.earned[userID][achievementID] = true
	return true, nil
}

func (m *memBadges) CountByUser(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.earned[userID]), nil
}

// fixedCount reports the same total for every member
type fixedCount struct {
	n   int
	err error
}

func (c fixedCount) CountCompleted(ctx context.Context, userID string) (int, error) {
	return c.n, c.err
}

func (c fixedCount) CountPrayedBy(ctx context.Context, userID string) (int, error) {
	return c.n, c.err
}

func (c fixedCount) CountGoing(ctx context.Context, userID string) (int, error) {
	return c.n, c.err
}

func (c fixedCount) CountSignups(ctx context.Context, userID string) (int, error) {
	return c.n, c.err
}

type knownUsers map[string]*model.User

func (k knownUsers) GetByID(ctx context.Context, id string) (*model.User, error) {
	return k[id], nil
}

// ============================================================================
// Automatic awards
// ============================================================================

func TestAchievementService_Evaluate(t *testing.T) {
	t.Parallel()
	badges := newMemBadges()
	notes := &recordingNotifier{}
	svc := NewAchievementService(AchievementServiceConfig{
		Repo:     badges,
		Gifts:    fixedCount{n: 1},
		Prayers:  fixedCount{n: model.PrayerWarriorThreshold - 1},
		RSVPs:    fixedCount{n: model.FaithfulAttenderThreshold},
		Notifier: notes,
	})
	ctx := context.Background()

	awarded, err := svc.Evaluate(ctx, "user:ruth")
	require.NoError(t, err)

	var keys []string
	for _, a := range awarded {
		keys = append(keys, a.Key)
	}
	assert.Equal(t, []string{model.AchievementFirstGift, model.AchievementFaithfulAttender}, keys)
	assert.Len(t, notes.sent, 2)
	assert.Equal(t, model.NotifyAchievement, notes.sent[0].Kind)

	again, err := svc.Evaluate(ctx, "user:ruth")
	require.NoError(t, err)
	assert.Empty(t, again, "earned badges are awarded once")
	assert.Len(t, notes.sent, 2)
}

func TestAchievementService_Evaluate_CounterFails(t *testing.T) {
	t.Parallel()
	boom := errors.New("count failed")
	svc := NewAchievementService(AchievementServiceConfig{
		Repo:    newMemBadges(),
		Gifts:   fixedCount{n: 1},
		Signups: fixedCount{err: boom},
	})

	_, err := svc.Evaluate(context.Background(), "user:ruth")
	assert.ErrorIs(t, err, boom)

	// Check swallows the failure
	svc.Check(context.Background(), "user:ruth")
}

func TestAchievementService_Counts_SkipsMissingSources(t *testing.T) {
	t.Parallel()
	svc := NewAchievementService(AchievementServiceConfig{
		Repo:  newMemBadges(),
		Plans: fixedCount{n: 2},
	})

	c, err := svc.Counts(context.Background(), "user:ruth")
	require.NoError(t, err)
	assert.Equal(t, model.ActivityCounts{PlansCompleted: 2}, c)
}

// ============================================================================
// Manual awards
// ============================================================================

func TestAchievementService_AwardByKey(t *testing.T) {
	t.Parallel()
	audit := &recordingAuditor{}
	badges := newMemBadges()
	svc := NewAchievementService(AchievementServiceConfig{
		Repo:    badges,
		Users:   knownUsers{"user:ruth": {ID: "user:ruth"}},
		Auditor: audit,
	})
	ctx := context.Background()

	a, fresh, err := svc.AwardByKey(ctx, "user:pastor", "user:ruth", model.AchievementServantHeart)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, model.AchievementServantHeart, a.Key)

	_, fresh, err = svc.AwardByKey(ctx, "user:pastor", "user:ruth", model.AchievementServantHeart)
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.Equal(t, []string{model.AuditAchievementAward}, audit.actions(), "repeat awards are not audited")

	_, _, err = svc.AwardByKey(ctx, "user:pastor", "user:ruth", "no_such_badge")
	assert.ErrorIs(t, err, ErrAchievementNotFound)

	_, _, err = svc.AwardByKey(ctx, "user:pastor", "user:ghost", model.AchievementReader)
	assert.ErrorIs(t, err, ErrUserNotFound)

	n, err := badges.CountByUser(ctx, "user:ruth")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
