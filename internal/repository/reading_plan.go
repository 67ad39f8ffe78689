package repository

import (
	"context"
	"fmt"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/model"
)

const progressFields = "*, plan_id.title AS plan_title, array::len(array::distinct(plan_id.days.day)) AS total_days"

// ReadingPlanRepository handles reading plans and member progress
type ReadingPlanRepository struct {
	db database.Database
}

// NewReadingPlanRepository creates a new reading plan repository
func NewReadingPlanRepository(db database.Database) *ReadingPlanRepository {
	return &ReadingPlanRepository{db: db}
}

// Create stores a plan
func (r *ReadingPlanRepository) Create(ctx context.Context, plan *model.ReadingPlan) error {
	query := `
		CREATE reading_plan CONTENT {
			title: $title,
			description: IF $description IS NOT NULL THEN $description ELSE NONE END,
			days: $days,
			created_by: type::record($created_by),
			created_on: time::now()
		}
	`
	vars := map[string]interface{}{
		"title":       plan.Title,
		"description": ptrToNone(plan.Description),
		"days":        plan.Days,
		"created_by":  plan.CreatedBy,
	}

	created, err := createOne[model.ReadingPlan](ctx, r.db, query, vars)
	if err != nil {
		return err
	}
	*plan = *created
	return nil
}

// Get returns a plan, or nil
func (r *ReadingPlanRepository) Get(ctx context.Context, id string) (*model.ReadingPlan, error) {
	return getOne[model.ReadingPlan](ctx, r.db, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
}

// List returns plans, newest first
func (r *ReadingPlanRepository) List(ctx context.Context, page model.PageRequest) (*model.Page[*model.ReadingPlan], error) {
	return queryPage[model.ReadingPlan](ctx, r.db, listQuery{table: "reading_plan", orderBy: "created_on DESC"}, page)
}

// Delete removes a plan and every enrollment in it
func (r *ReadingPlanRepository) Delete(ctx context.Context, id string) error {
	tb := database.NewTxBuilder().
		Bind("id", id).
		Add("DELETE reading_progress WHERE plan_id = type::record($id)").
		Add("DELETE type::record($id)")
	_, err := database.ExecuteTransaction(ctx, r.db, tb)
	return err
}

// Enroll starts a member on a plan. A second enrollment returns ErrDuplicate.
func (r *ReadingPlanRepository) Enroll(ctx context.Context, userID, planID string) (*model.ReadingProgress, error) {
	query := fmt.Sprintf(`
		CREATE reading_progress CONTENT {
			user_id: type::record($user),
			plan_id: type::record($plan),
			completed_days: [],
			started_on: time::now()
		};
		SELECT %s FROM reading_progress WHERE user_id = type::record($user) AND plan_id = type::record($plan) LIMIT 1;
	`, progressFields)
	vars := map[string]interface{}{"user": userID, "plan": planID}

	results, err := r.db.Query(ctx, query, vars)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, fmt.Errorf("%w: already enrolled", database.ErrDuplicate)
		}
		return nil, err
	}
	rows := statementRows(results, 1)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: progress not returned", database.ErrQuery)
	}
	return decodeRecord[model.ReadingProgress](rows[0])
}

// GetProgress returns a member's progress on a plan, or nil
func (r *ReadingPlanRepository) GetProgress(ctx context.Context, userID, planID string) (*model.ReadingProgress, error) {
	query := fmt.Sprintf(`SELECT %s FROM reading_progress WHERE user_id = type::record($user) AND plan_id = type::record($plan) LIMIT 1`, progressFields)
	return getOne[model.ReadingProgress](ctx, r.db, query, map[string]interface{}{"user": userID, "plan": planID})
}

// CompleteDay adds day to the completed set (idempotently) and stamps
// completed_on the first time every day is done
func (r *ReadingPlanRepository) CompleteDay(ctx context.Context, progressID string, day int) (*model.ReadingProgress, error) {
	query := fmt.Sprintf(`
		UPDATE type::record($id) SET completed_days = array::sort(array::union(completed_days, [$day]));
		UPDATE type::record($id) SET completed_on = IF completed_on IS NONE AND array::len(completed_days) >= array::len(array::distinct(plan_id.days.day)) THEN time::now() ELSE completed_on END;
		SELECT %s FROM type::record($id);
	`, progressFields)

	results, err := r.db.Query(ctx, query, map[string]interface{}{"id": progressID, "day": day})
	if err != nil {
		return nil, err
	}
	rows := statementRows(results, 2)
	if len(rows) == 0 {
		return nil, nil
	}
	return decodeRecord[model.ReadingProgress](rows[0])
}

// ListProgress returns every plan a member is enrolled in
func (r *ReadingPlanRepository) ListProgress(ctx context.Context, userID string) ([]*model.ReadingProgress, error) {
	query := fmt.Sprintf(`SELECT %s FROM reading_progress WHERE user_id = type::record($user) ORDER BY started_on DESC`, progressFields)
	return getMany[model.ReadingProgress](ctx, r.db, query, map[string]interface{}{"user": userID})
}

// CountCompleted counts plans a member has finished
func (r *ReadingPlanRepository) CountCompleted(ctx context.Context, userID string) (int, error) {
	query := `SELECT count() AS count FROM reading_progress WHERE user_id = type::record($user) AND completed_on IS NOT NONE GROUP ALL`
	return countQuery(ctx, r.db, query, map[string]interface{}{"user": userID})
}
