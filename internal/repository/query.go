package repository

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/filter"
	"github.com/forgo/shepherd/api/internal/model"
)

// isUniqueConstraintError matches the messages SurrealDB raises for a UNIQUE index
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{"already contains", "unique", "duplicate", "already exists"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}

// isGuard reports whether err is a transaction guard THROWn with reason
func isGuard(err error, reason string) bool {
	var ge *database.GuardError
	return errors.As(err, &ge) && ge.Reason == reason
}

// getOne decodes a single record. A missing record is nil, nil.
func getOne[T any](ctx context.Context, db database.Querier, query string, vars map[string]interface{}) (*T, error) {
	result, err := db.QueryOne(ctx, query, vars)
	if err == nil {
		var item *T
		item, err = decodeRecord[T](result)
		if err == nil {
			return item, nil
		}
	}
	if isNotFound(err) {
		return nil, nil
	}
	return nil, err
}

// getMany decodes the rows of the first statement
func getMany[T any](ctx context.Context, db database.Querier, query string, vars map[string]interface{}) ([]*T, error) {
	results, err := db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	return decodeRows[T](statementRows(results, 0))
}

// createOne runs a CREATE and decodes what it returned. A unique index
// violation comes back as database.ErrDuplicate.
func createOne[T any](ctx context.Context, db database.Querier, query string, vars map[string]interface{}) (*T, error) {
	results, err := db.Query(ctx, query, vars)
	switch {
	case err == nil:
		return decodeRecord[T](firstRow(results))
	case isUniqueConstraintError(err):
		return nil, fmt.Errorf("%w: %v", database.ErrDuplicate, err)
	default:
		return nil, err
	}
}

// countQuery runs a single `SELECT count() ... GROUP ALL`
func countQuery(ctx context.Context, db database.Querier, query string, vars map[string]interface{}) (int, error) {
	results, err := db.Query(ctx, query, vars)
	if err != nil {
		return 0, err
	}
	return countOf(statementRows(results, 0)), nil
}

// listQuery is one paginated listing. where and orderBy are trusted SurrealQL
// fragments; user input only reaches the query through vars.
type listQuery struct {
	table   string
	fields  string // default *
	where   string
	orderBy string
	vars    map[string]interface{}
}

// withFilter ANDs a compiled AIP-160 filter onto the listing
func (q *listQuery) withFilter(c filter.Condition) {
	if c.IsEmpty() {
		return
	}
	if q.vars == nil {
		q.vars = make(map[string]interface{}, len(c.Vars))
	}
	maps.Copy(q.vars, c.Vars)
	if q.where == "" {
		q.where = c.Clause
	} else {
		q.where = c.And(q.where)
	}
}

func (q listQuery) statements() string {
	fields := q.fields
	if fields == "" {
		fields = "*"
	}
	var where, order string
	if q.where != "" {
		where = " WHERE " + q.where
	}
	if q.orderBy != "" {
		order = " ORDER BY " + q.orderBy
	}
	return fmt.Sprintf("SELECT %s FROM %s%s%s LIMIT $limit START $start;\n"+
		"SELECT count() AS count FROM %s%s GROUP ALL;",
		fields, q.table, where, order, q.table, where)
}

// queryPage fetches one page and the total in a single round trip
func queryPage[T any](ctx context.Context, db database.Querier, q listQuery, page model.PageRequest) (*model.Page[*T], error) {
	vars := maps.Clone(q.vars)
	if vars == nil {
		vars = make(map[string]interface{}, 2)
	}
	vars["limit"] = page.Limit
	vars["start"] = page.Start()

	results, err := db.Query(ctx, q.statements(), vars)
	if err != nil {
		return nil, err
	}
	items, err := decodeRows[T](statementRows(results, 0))
	if err != nil {
		return nil, err
	}
	return &model.Page[*T]{
		Items:       items,
		Total:       countOf(statementRows(results, 1)),
		PageRequest: page,
	}, nil
}

// ptrToNone maps a nil pointer to nil so the field is stored as NONE
func ptrToNone(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// timeVar formats t for a `<datetime>$var` cast
func timeVar(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// setClause renders "a = $a, b = $b, updated_on = time::now()" from
// updates, visiting columns in order. Column names come from code, never
// from the request.
func setClause(updates map[string]interface{}, order []string) (string, map[string]interface{}) {
	parts := make([]string, 0, len(updates)+1)
	vars := make(map[string]interface{}, len(updates))
	for _, col := range order {
		v, ok := updates[col]
		if !ok {
			continue
		}
		if t, isTime := v.(time.Time); isTime {
			parts = append(parts, col+" = <datetime>$"+col)
			vars[col] = timeVar(t)
			continue
		}
		parts = append(parts, col+" = $"+col)
		vars[col] = v
	}
	parts = append(parts, "updated_on = time::now()")
	return strings.Join(parts, ", "), vars
}

func joinAnd(conds []string) string {
	return strings.Join(conds, " AND ")
}
