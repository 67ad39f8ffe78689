package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/model"
)

// Guard reasons raised by the signup transaction
const (
	reasonShiftMissing    = "shift_missing"
	reasonShiftStarted    = "shift_started"
	reasonAlreadySignedUp = "already_signed_up"
	reasonShiftFull       = "shift_full"
)

var opportunityColumns = []string{"title", "description", "ministry", "location", "active"}

// VolunteerRepository handles opportunities, shifts and signups
type VolunteerRepository struct {
	db database.Database
}

// NewVolunteerRepository creates a new volunteer repository
func NewVolunteerRepository(db database.Database) *VolunteerRepository {
	return &VolunteerRepository{db: db}
}

// ===== Opportunities =====

// CreateOpportunity stores an active opportunity
func (r *VolunteerRepository) CreateOpportunity(ctx context.Context, o *model.Opportunity) error {
	query := `
		CREATE volunteer_opportunity CONTENT {
			title: $title,
			description: IF $description IS NOT NULL THEN $description ELSE NONE END,
			ministry: $ministry,
			location: IF $location IS NOT NULL THEN $location ELSE NONE END,
			active: true,
			created_by: type::record($created_by),
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	vars := map[string]interface{}{
		"title":       o.Title,
		"description": ptrToNone(o.Description),
		"ministry":    o.Ministry,
		"location":    ptrToNone(o.Location),
		"created_by":  o.CreatedBy,
	}

	created, err := createOne[model.Opportunity](ctx, r.db, query, vars)
	if err != nil {
		return err
	}
	*o = *created
	return nil
}

// GetOpportunity returns an opportunity, or nil
func (r *VolunteerRepository) GetOpportunity(ctx context.Context, id string) (*model.Opportunity, error) {
	return getOne[model.Opportunity](ctx, r.db, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
}

// UpdateOpportunity applies changes and returns the updated opportunity
func (r *VolunteerRepository) UpdateOpportunity(ctx context.Context, id string, updates map[string]interface{}) (*model.Opportunity, error) {
	set, vars := setClause(updates, opportunityColumns)
	vars["id"] = id

	result, err := r.db.Query(ctx, fmt.Sprintf(`UPDATE type::record($id) SET %s RETURN AFTER`, set), vars)
	if err != nil {
		return nil, err
	}
	row := firstRow(result)
	if row == nil {
		return nil, nil
	}
	return decodeRecord[model.Opportunity](row)
}

// ListOpportunities returns active opportunities, optionally for one ministry
func (r *VolunteerRepository) ListOpportunities(ctx context.Context, q model.OpportunityQuery) (*model.Page[*model.Opportunity], error) {
	lq := listQuery{
		table:   "volunteer_opportunity",
		where:   "active = true",
		orderBy: "title ASC",
	}
	if q.Ministry != "" {
		lq.where += " AND string::lowercase(ministry) = string::lowercase($ministry)"
		lq.vars = map[string]interface{}{"ministry": q.Ministry}
	}
	return queryPage[model.Opportunity](ctx, r.db, lq, q.PageRequest)
}

// ===== Shifts =====

// CreateShift adds a time slot with no one signed up yet
func (r *VolunteerRepository) CreateShift(ctx context.Context, s *model.Shift) error {
	query := `
		CREATE volunteer_shift CONTENT {
			opportunity_id: type::record($opportunity),
			start_time: <datetime>$start_time,
			end_time: <datetime>$end_time,
			slots_available: $slots_available,
			slots_filled: 0,
			created_on: time::now()
		}
	`
	vars := map[string]interface{}{
		"opportunity":     s.OpportunityID,
		"start_time":      timeVar(s.StartTime),
		"end_time":        timeVar(s.EndTime),
		"slots_available": s.SlotsAvailable,
	}

	created, err := createOne[model.Shift](ctx, r.db, query, vars)
	if err != nil {
		return err
	}
	*s = *created
	return nil
}

// GetShift returns a shift, or nil
func (r *VolunteerRepository) GetShift(ctx context.Context, id string) (*model.Shift, error) {
	return getOne[model.Shift](ctx, r.db, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
}

// ListUpcomingShifts returns the shifts of the given opportunities that start after now
func (r *VolunteerRepository) ListUpcomingShifts(ctx context.Context, opportunityIDs []string, now time.Time) ([]*model.Shift, error) {
	if len(opportunityIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT * FROM volunteer_shift
		WHERE opportunity_id IN $opportunities.map(|$o| type::record($o))
			AND start_time > <datetime>$now
		ORDER BY start_time ASC
	`
	vars := map[string]interface{}{"opportunities": opportunityIDs, "now": timeVar(now)}
	return getMany[model.Shift](ctx, r.db, query, vars)
}

// ===== Signups =====

// SignUp claims one slot on a shift for userID. The capacity check and the
// increment run in one transaction. A missing shift returns
// database.ErrNotFound and a second signup database.ErrDuplicate; a full or
// already started shift fails with a *database.GuardError (ErrCapacity).
func (r *VolunteerRepository) SignUp(ctx context.Context, shiftID, userID string, now time.Time) (*model.Signup, error) {
	tb := database.NewTxBuilder().
		Bind("shift", shiftID).
		Bind("user", userID).
		Bind("now", timeVar(now)).
		Let("s", "(SELECT * FROM ONLY type::record($shift))").
		Guard("$s IS NONE", reasonShiftMissing).
		Guard("$s.start_time <= <datetime>$now", reasonShiftStarted).
		Let("existing", "(SELECT VALUE id FROM volunteer_signup WHERE shift_id = type::record($shift) AND user_id = type::record($user))").
		Guard("array::len($existing) > 0", reasonAlreadySignedUp).
		Guard("$s.slots_filled >= $s.slots_available", reasonShiftFull).
		Add("UPDATE type::record($shift) SET slots_filled += 1").
		Add("CREATE volunteer_signup CONTENT { shift_id: type::record($shift), user_id: type::record($user), reminded: false, created_on: time::now() }")

	results, err := database.ExecuteTransaction(ctx, r.db, tb)
	switch {
	case isGuard(err, reasonShiftMissing):
		return nil, database.ErrNotFound
	case isGuard(err, reasonAlreadySignedUp):
		return nil, fmt.Errorf("%w: %v", database.ErrDuplicate, err)
	case err != nil:
		return nil, err
	}
	rows := statementRows(results, len(results)-1)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: signup not returned", database.ErrQuery)
	}
	return decodeRecord[model.Signup](rows[0])
}

// Cancel deletes a member's signup and frees the slot. It reports whether a
// signup existed.
func (r *VolunteerRepository) Cancel(ctx context.Context, shiftID, userID string) (bool, error) {
	tb := database.NewTxBuilder().
		Bind("shift", shiftID).
		Bind("user", userID).
		Let("prev", "(SELECT * FROM ONLY volunteer_signup WHERE shift_id = type::record($shift) AND user_id = type::record($user) LIMIT 1)").
		Add(`IF $prev IS NOT NONE {
			DELETE $prev.id;
			UPDATE type::record($shift) SET slots_filled = math::max([slots_filled - 1, 0]);
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

// SignedUpShifts returns which of shiftIDs the member holds a signup for
func (r *VolunteerRepository) SignedUpShifts(ctx context.Context, userID string, shiftIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(shiftIDs) == 0 {
		return out, nil
	}
	query := `
		SELECT VALUE shift_id FROM volunteer_signup
		WHERE user_id = type::record($user) AND shift_id IN $shifts.map(|$s| type::record($s))
	`
	results, err := r.db.Query(ctx, query, map[string]interface{}{"user": userID, "shifts": shiftIDs})
	if err != nil {
		return nil, err
	}
	for _, row := range statementRows(results, 0) {
		out[recordIDString(row)] = true
	}
	return out, nil
}

// signupRow is a signup with its shift and opportunity fetched alongside
type signupRow struct {
	model.Signup
	Shift       *model.Shift       `json:"shift"`
	Opportunity *model.Opportunity `json:"opportunity"`
}

// ListUpcomingSignups returns a member's signups for shifts that have not started
func (r *VolunteerRepository) ListUpcomingSignups(ctx context.Context, userID string, now time.Time, page model.PageRequest) (*model.Page[*model.SignupDetail], error) {
	lq := listQuery{
		table:   "volunteer_signup",
		fields:  "*, shift_id.* AS shift, shift_id.opportunity_id.* AS opportunity",
		where:   "user_id = type::record($user) AND shift_id.start_time > <datetime>$now",
		orderBy: "shift.start_time ASC",
		vars:    map[string]interface{}{"user": userID, "now": timeVar(now)},
	}
	rows, err := queryPage[signupRow](ctx, r.db, lq, page)
	if err != nil {
		return nil, err
	}

	out := &model.Page[*model.SignupDetail]{Total: rows.Total, PageRequest: rows.PageRequest}
	for _, row := range rows.Items {
		signup := row.Signup
		out.Items = append(out.Items, &model.SignupDetail{Signup: &signup, Shift: row.Shift, Opportunity: row.Opportunity})
	}
	return out, nil
}

// CountSignups counts a member's current signups
func (r *VolunteerRepository) CountSignups(ctx context.Context, userID string) (int, error) {
	query := `SELECT count() AS count FROM volunteer_signup WHERE user_id = type::record($user) GROUP ALL`
	return countQuery(ctx, r.db, query, map[string]interface{}{"user": userID})
}

// ListDueReminders returns unreminded signups whose shift starts in [now, until)
func (r *VolunteerRepository) ListDueReminders(ctx context.Context, now, until time.Time, limit int) ([]*model.DueReminder, error) {
	query := `
		SELECT id, user_id, shift_id AS target_id, shift_id.opportunity_id.title AS title, shift_id.start_time AS start_time
		FROM volunteer_signup
		WHERE reminded = false
			AND shift_id.start_time >= <datetime>$now
			AND shift_id.start_time < <datetime>$until
		LIMIT $limit
	`
	vars := map[string]interface{}{"now": timeVar(now), "until": timeVar(until), "limit": limit}
	return getMany[model.DueReminder](ctx, r.db, query, vars)
}

// MarkReminded flags signups as reminded
func (r *VolunteerRepository) MarkReminded(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `FOR $id IN $ids { UPDATE type::record($id) SET reminded = true }`
	return r.db.Execute(ctx, query, map[string]interface{}{"ids": ids})
}
