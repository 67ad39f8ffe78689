package repository

import (
	"context"
	"fmt"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/filter"
	"github.com/forgo/shepherd/api/internal/model"
)

// LeadFilterSchema lists the fields staff can filter leads on
var LeadFilterSchema = filter.MustSchema(
	filter.Field{Name: "status", Column: "status", Kind: filter.KindString},
	filter.Field{Name: "source", Column: "source", Kind: filter.KindString},
	filter.Field{Name: "score", Column: "score", Kind: filter.KindInt},
	filter.Field{Name: "created_on", Column: "created_on", Kind: filter.KindTimestamp},
)

var leadColumns = []string{"status", "notes"}

// LeadRepository handles visitor connect cards
type LeadRepository struct {
	db database.Database
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db database.Database) *LeadRepository {
	return &LeadRepository{db: db}
}

// Create stores a new lead with status "new"
func (r *LeadRepository) Create(ctx context.Context, l *model.Lead) error {
	query := `
		CREATE lead CONTENT {
			name: $name,
			email: IF $email IS NOT NULL THEN string::lowercase($email) ELSE NONE END,
			phone: IF $phone IS NOT NULL THEN $phone ELSE NONE END,
			source: $source,
			interests: $interests,
			message: IF $message IS NOT NULL THEN $message ELSE NONE END,
			status: 'new',
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	interests := l.Interests
	if interests == nil {
		interests = []string{}
	}
	vars := map[string]interface{}{
		"name":      l.Name,
		"email":     ptrToNone(l.Email),
		"phone":     ptrToNone(l.Phone),
		"source":    l.Source,
		"interests": interests,
		"message":   ptrToNone(l.Message),
	}

	created, err := createOne[model.Lead](ctx, r.db, query, vars)
	if err != nil {
		return err
	}
	*l = *created
	return nil
}

// GetByID returns a lead, or nil
func (r *LeadRepository) GetByID(ctx context.Context, id string) (*model.Lead, error) {
	return getOne[model.Lead](ctx, r.db, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
}

// Update applies follow-up changes
func (r *LeadRepository) Update(ctx context.Context, id string, updates map[string]interface{}) (*model.Lead, error) {
	set, vars := setClause(updates, leadColumns)
	vars["id"] = id

	result, err := r.db.Query(ctx, fmt.Sprintf(`UPDATE type::record($id) SET %s RETURN AFTER`, set), vars)
	if err != nil {
		return nil, err
	}
	row := firstRow(result)
	if row == nil {
		return nil, nil
	}
	return decodeRecord[model.Lead](row)
}

// SetScore stores a model score and its reason
func (r *LeadRepository) SetScore(ctx context.Context, id string, score *model.LeadScore) (*model.Lead, error) {
	query := `
		UPDATE type::record($id) SET
			score = $score,
			score_reason = $reason,
			scored_on = time::now(),
			updated_on = time::now()
		RETURN AFTER
	`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"id": id, "score": score.Score, "reason": score.Reason})
	if err != nil {
		return nil, err
	}
	row := firstRow(result)
	if row == nil {
		return nil, nil
	}
	return decodeRecord[model.Lead](row)
}

// List returns leads, highest score first and then newest
func (r *LeadRepository) List(ctx context.Context, cond filter.Condition, page model.PageRequest) (*model.Page[*model.Lead], error) {
	lq := listQuery{table: "lead", orderBy: "score DESC, created_on DESC"}
	lq.withFilter(cond)
	return queryPage[model.Lead](ctx, r.db, lq, page)
}
