package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/model"
)

// Guard reason raised when a going RSVP would exceed event capacity
const reasonEventFull = "event_full"

// RSVPRepository handles event RSVP data access
type RSVPRepository struct {
	db database.Database
}

// NewRSVPRepository creates a new RSVP repository
func NewRSVPRepository(db database.Database) *RSVPRepository {
	return &RSVPRepository{db: db}
}

// Get returns a member's RSVP for an event, or nil
func (r *RSVPRepository) Get(ctx context.Context, eventID, userID string) (*model.RSVP, error) {
	query := `SELECT * FROM rsvp WHERE event_id = type::record($event) AND user_id = type::record($user) LIMIT 1`
	return getOne[model.RSVP](ctx, r.db, query, map[string]interface{}{"event": eventID, "user": userID})
}

// Upsert creates or changes a member's RSVP and keeps the event's
// going_count in step, in one transaction. Switching to going on a full
// event fails with a *database.GuardError wrapping ErrCapacity.
func (r *RSVPRepository) Upsert(ctx context.Context, eventID, userID string, status model.RSVPStatus) (*model.RSVP, error) {
	tb := database.NewTxBuilder().
		Bind("event", eventID).
		Bind("user", userID).
		Bind("status", status).
		Let("e", "(SELECT * FROM ONLY type::record($event))").
		Let("prev", "(SELECT * FROM ONLY rsvp WHERE event_id = type::record($event) AND user_id = type::record($user) LIMIT 1)").
		Let("was_going", "$prev IS NOT NONE AND $prev.status = 'going'").
		Guard("$status = 'going' AND !$was_going AND $e.capacity > 0 AND $e.going_count >= $e.capacity", reasonEventFull).
		Add(`IF $prev IS NONE {
			CREATE rsvp CONTENT { event_id: type::record($event), user_id: type::record($user), status: $status, reminded: false, created_on: time::now(), updated_on: time::now() }
		} ELSE {
			UPDATE $prev.id SET status = $status, updated_on = time::now()
		}`).
		Let("delta", "(IF $status = 'going' THEN 1 ELSE 0 END) - (IF $was_going THEN 1 ELSE 0 END)").
		Add("UPDATE type::record($event) SET going_count += $delta").
		Add("SELECT * FROM rsvp WHERE event_id = type::record($event) AND user_id = type::record($user) LIMIT 1")

	results, err := database.ExecuteTransaction(ctx, r.db, tb)
	if err != nil {
		return nil, err
	}
	rows := statementRows(results, len(results)-1)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: rsvp not returned", database.ErrQuery)
	}
	return decodeRecord[model.RSVP](rows[0])
}

// Delete removes a member's RSVP and releases their seat if they were going.
// It reports whether an RSVP existed.
func (r *RSVPRepository) Delete(ctx context.Context, eventID, userID string) (bool, error) {
	tb := database.NewTxBuilder().
		Bind("event", eventID).
		Bind("user", userID).
		Let("prev", "(SELECT * FROM ONLY rsvp WHERE event_id = type::record($event) AND user_id = type::record($user) LIMIT 1)").
		Add(`IF $prev IS NOT NONE {
			DELETE $prev.id;
			IF $prev.status = 'going' { UPDATE type::record($event) SET going_count -= 1 };
		}`).
		Add("RETURN $prev IS NOT NONE")

	results, err := database.ExecuteTransaction(ctx, r.db, tb)
	if err != nil {
		return false, err
	}
	rows := statementRows(results, len(results)-1)
	if len(rows) == 0 {
		return false, nil
	}
	existed, _ := rows[0].(bool)
	return existed, nil
}

// ListByUser returns a member's RSVPs for upcoming events with each event
func (r *RSVPRepository) ListByUser(ctx context.Context, userID string, now time.Time, page model.PageRequest) (*model.Page[*model.EventWithRSVP], error) {
	lq := listQuery{
		table:   "rsvp",
		where:   "user_id = type::record($user) AND event_id.start_time > <datetime>$now",
		orderBy: "created_on DESC",
		vars:    map[string]interface{}{"user": userID, "now": timeVar(now)},
	}
	rsvps, err := queryPage[model.RSVP](ctx, r.db, lq, page)
	if err != nil {
		return nil, err
	}

	out := &model.Page[*model.EventWithRSVP]{Total: rsvps.Total, PageRequest: rsvps.PageRequest}
	for _, rv := range rsvps.Items {
		ev, err := getOne[model.Event](ctx, r.db, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": rv.EventID})
		if err != nil {
			return nil, err
		}
		if ev == nil {
			continue
		}
		out.Items = append(out.Items, &model.EventWithRSVP{Event: ev, MyRSVP: rv})
	}
	return out, nil
}

// CountGoing counts events a member has said they are going to
func (r *RSVPRepository) CountGoing(ctx context.Context, userID string) (int, error) {
	query := `SELECT count() AS count FROM rsvp WHERE user_id = type::record($user) AND status = 'going' GROUP ALL`
	return countQuery(ctx, r.db, query, map[string]interface{}{"user": userID})
}

// ListDueReminders returns going RSVPs not yet reminded whose event starts in [now, until)
func (r *RSVPRepository) ListDueReminders(ctx context.Context, now, until time.Time, limit int) ([]*model.DueReminder, error) {
	query := `
		SELECT id, user_id, event_id AS target_id, event_id.title AS title, event_id.start_time AS start_time
		FROM rsvp
		WHERE status = 'going'
			AND reminded = false
			AND event_id.cancelled = false
			AND event_id.start_time >= <datetime>$now
			AND event_id.start_time < <datetime>$until
		LIMIT $limit
	`
	vars := map[string]interface{}{"now": timeVar(now), "until": timeVar(until), "limit": limit}
	return getMany[model.DueReminder](ctx, r.db, query, vars)
}

// MarkReminded flags RSVPs as reminded
func (r *RSVPRepository) MarkReminded(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `FOR $id IN $ids { UPDATE type::record($id) SET reminded = true }`
	return r.db.Execute(ctx, query, map[string]interface{}{"ids": ids})
}
