package repository

import (
	"context"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/filter"
	"github.com/forgo/shepherd/api/internal/model"
)

// AuditFilterSchema lists the fields the audit log can be filtered on
var AuditFilterSchema = filter.MustSchema(
	filter.Field{Name: "actor_id", Column: "actor_id", Kind: filter.KindRecord},
	filter.Field{Name: "action", Column: "action", Kind: filter.KindString},
	filter.Field{Name: "resource_type", Column: "resource_type", Kind: filter.KindString},
	filter.Field{Name: "resource_id", Column: "resource_id", Kind: filter.KindString},
	filter.Field{Name: "created_on", Column: "created_on", Kind: filter.KindTimestamp},
)

// AuditRepository handles the append-only audit log
type AuditRepository struct {
	db database.Database
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db database.Database) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends an entry
func (r *AuditRepository) Create(ctx context.Context, e *model.AuditEntry) error {
	query := `
		CREATE audit CONTENT {
			actor_id: type::record($actor),
			action: $action,
			resource_type: $resource_type,
			resource_id: $resource_id,
			detail: IF $detail IS NOT NULL THEN $detail ELSE NONE END,
			ip: IF $ip IS NOT NULL THEN $ip ELSE NONE END,
			created_on: time::now()
		}
	`
	var detail interface{}
	if len(e.Detail) > 0 {
		detail = e.Detail
	}
	vars := map[string]interface{}{
		"actor":         e.ActorID,
		"action":        e.Action,
		"resource_type": e.ResourceType,
		"resource_id":   e.ResourceID,
		"detail":        detail,
		"ip":            ptrToNone(e.IP),
	}

	created, err := createOne[model.AuditEntry](ctx, r.db, query, vars)
	if err != nil {
		return err
	}
	*e = *created
	return nil
}

// List returns entries newest first
func (r *AuditRepository) List(ctx context.Context, cond filter.Condition, page model.PageRequest) (*model.Page[*model.AuditEntry], error) {
	lq := listQuery{table: "audit", orderBy: "created_on DESC"}
	lq.withFilter(cond)
	return queryPage[model.AuditEntry](ctx, r.db, lq, page)
}
