package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/model"
)

var eventColumns = []string{"title", "description", "location", "category", "start_time", "end_time", "capacity", "cancelled"}

// EventRepository handles event data access
type EventRepository struct {
	db database.Database
}

// NewEventRepository creates a new event repository
func NewEventRepository(db database.Database) *EventRepository {
	return &EventRepository{db: db}
}

// Create creates a new event
func (r *EventRepository) Create(ctx context.Context, event *model.Event) error {
	query := `
		CREATE event CONTENT {
			title: $title,
			description: IF $description IS NOT NULL THEN $description ELSE NONE END,
			location: IF $location IS NOT NULL THEN $location ELSE NONE END,
			category: $category,
			start_time: <datetime>$start_time,
			end_time: <datetime>$end_time,
			capacity: $capacity,
			going_count: 0,
			cancelled: false,
			created_by: type::record($created_by),
			created_on: time::now(),
			updated_on: time::now()
		}
	`

	vars := map[string]interface{}{
		"title":       event.Title,
		"description": ptrToNone(event.Description),
		"location":    ptrToNone(event.Location),
		"category":    event.Category,
		"start_time":  timeVar(event.StartTime),
		"end_time":    timeVar(event.EndTime),
		"capacity":    event.Capacity,
		"created_by":  event.CreatedBy,
	}

	created, err := createOne[model.Event](ctx, r.db, query, vars)
	if err != nil {
		return err
	}
	*event = *created
	return nil
}

// Get retrieves an event by ID
func (r *EventRepository) Get(ctx context.Context, eventID string) (*model.Event, error) {
	return getOne[model.Event](ctx, r.db, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": eventID})
}

// Update updates an event
func (r *EventRepository) Update(ctx context.Context, eventID string, updates map[string]interface{}) (*model.Event, error) {
	set, vars := setClause(updates, eventColumns)
	vars["id"] = eventID

	result, err := r.db.Query(ctx, fmt.Sprintf(`UPDATE type::record($id) SET %s RETURN AFTER`, set), vars)
	if err != nil {
		return nil, err
	}
	row := firstRow(result)
	if row == nil {
		return nil, nil
	}
	return decodeRecord[model.Event](row)
}

// List returns events by start time. Upcoming-only lists skip events that
// already ended and cancelled ones.
func (r *EventRepository) List(ctx context.Context, q model.EventListQuery, now time.Time) (*model.Page[*model.Event], error) {
	lq := listQuery{
		table:   "event",
		orderBy: "start_time ASC",
		vars:    map[string]interface{}{},
	}
	var conds []string
	if q.Category != "" {
		conds = append(conds, "category = $category")
		lq.vars["category"] = q.Category
	}
	if q.UpcomingOnly {
		conds = append(conds, "end_time > <datetime>$now", "cancelled = false")
		lq.vars["now"] = timeVar(now)
	}
	lq.where = joinAnd(conds)
	return queryPage[model.Event](ctx, r.db, lq, q.PageRequest)
}

// ListUpcomingForUser returns events the member is going to, soonest first
func (r *EventRepository) ListUpcomingForUser(ctx context.Context, userID string, now time.Time, limit int) ([]*model.Event, error) {
	query := `
		SELECT * FROM event
		WHERE id IN (SELECT VALUE event_id FROM rsvp WHERE user_id = type::record($user) AND status = 'going')
			AND start_time > <datetime>$now
			AND cancelled = false
		ORDER BY start_time ASC
		LIMIT $limit
	`
	vars := map[string]interface{}{"user": userID, "now": timeVar(now), "limit": limit}
	return getMany[model.Event](ctx, r.db, query, vars)
}
