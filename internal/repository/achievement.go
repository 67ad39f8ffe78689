package repository

import (
	"context"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/model"
)

// AchievementRepository handles the badge catalog and awards
type AchievementRepository struct {
	db database.Database
}

// NewAchievementRepository creates a new achievement repository
func NewAchievementRepository(db database.Database) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// Catalog returns every achievement
func (r *AchievementRepository) Catalog(ctx context.Context) ([]*model.Achievement, error) {
	return getMany[model.Achievement](ctx, r.db, `SELECT * FROM achievement ORDER BY name ASC`, nil)
}

// GetByKey returns an achievement by key, or nil
func (r *AchievementRepository) GetByKey(ctx context.Context, key string) (*model.Achievement, error) {
	query := `SELECT * FROM achievement WHERE key = $key LIMIT 1`
	return getOne[model.Achievement](ctx, r.db, query, map[string]interface{}{"key": key})
}

// ListByUser returns a member's badges, most recent first
func (r *AchievementRepository) ListByUser(ctx context.Context, userID string) ([]*model.UserAchievement, error) {
	query := `
		SELECT id, user_id, achievement_id.* AS achievement, awarded_on
		FROM user_achievement
		WHERE user_id = type::record($user)
		ORDER BY awarded_on DESC
	`
	return getMany[model.UserAchievement](ctx, r.db, query, map[string]interface{}{"user": userID})
}

// EarnedKeys returns the keys a member already holds
func (r *AchievementRepository) EarnedKeys(ctx context.Context, userID string) (map[string]bool, error) {
	query := `SELECT VALUE achievement_id.key FROM user_achievement WHERE user_id = type::record($user)`
	results, err := r.db.Query(ctx, query, map[string]interface{}{"user": userID})
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool)
	for _, row := range statementRows(results, 0) {
		if k, ok := row.(string); ok {
			keys[k] = true
		}
	}
	return keys, nil
}

// Award grants an achievement. It returns false when the member already
// had it; the unique index on (user_id, achievement_id) keeps awards idempotent.
func (r *AchievementRepository) Award(ctx context.Context, userID, achievementID string) (bool, error) {
	query := `
		CREATE user_achievement CONTENT {
			user_id: type::record($user),
			achievement_id: type::record($achievement),
			awarded_on: time::now()
		}
	`
	vars := map[string]interface{}{"user": userID, "achievement": achievementID}
	if err := r.db.Execute(ctx, query, vars); err != nil {
		if isUniqueConstraintError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CountByUser counts a member's badges
func (r *AchievementRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	query := `SELECT count() AS count FROM user_achievement WHERE user_id = type::record($user) GROUP ALL`
	return countQuery(ctx, r.db, query, map[string]interface{}{"user": userID})
}
