package repository

import (
	"context"
	"time"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/filter"
	"github.com/forgo/shepherd/api/internal/model"
)

// DonationFilterSchema lists the fields admins can filter donations on
var DonationFilterSchema = filter.MustSchema(
	filter.Field{Name: "status", Column: "status", Kind: filter.KindString},
	filter.Field{Name: "fund", Column: "fund", Kind: filter.KindString},
	filter.Field{Name: "method", Column: "method", Kind: filter.KindString},
	filter.Field{Name: "member_id", Column: "member_id", Kind: filter.KindRecord},
	filter.Field{Name: "amount_cents", Column: "amount_cents", Kind: filter.KindInt},
	filter.Field{Name: "created_on", Column: "created_on", Kind: filter.KindTimestamp},
)

// DonationRepository handles gift data access
type DonationRepository struct {
	db database.Database
}

// NewDonationRepository creates a new donation repository
func NewDonationRepository(db database.Database) *DonationRepository {
	return &DonationRepository{db: db}
}

// Create stores a donation. Completed gifts get completed_on set.
func (r *DonationRepository) Create(ctx context.Context, d *model.Donation) error {
	query := `
		CREATE donation CONTENT {
			member_id: IF $member IS NOT NULL THEN type::record($member) ELSE NONE END,
			amount_cents: $amount_cents,
			currency: $currency,
			fund: $fund,
			frequency: $frequency,
			method: $method,
			status: $status,
			note: IF $note IS NOT NULL THEN $note ELSE NONE END,
			recorded_by: IF $recorded_by IS NOT NULL THEN type::record($recorded_by) ELSE NONE END,
			created_on: IF $created_on IS NOT NULL THEN <datetime>$created_on ELSE time::now() END,
			completed_on: IF $status = 'completed' THEN time::now() ELSE NONE END
		}
	`

	var createdOn interface{}
	if !d.CreatedOn.IsZero() {
		createdOn = timeVar(d.CreatedOn)
	}

	vars := map[string]interface{}{
		"member":       ptrToNone(d.MemberID),
		"amount_cents": d.AmountCents,
		"currency":     d.Currency,
		"fund":         d.Fund,
		"frequency":    d.Frequency,
		"method":       d.Method,
		"status":       d.Status,
		"note":         ptrToNone(d.Note),
		"recorded_by":  ptrToNone(d.RecordedBy),
		"created_on":   createdOn,
	}

	created, err := createOne[model.Donation](ctx, r.db, query, vars)
	if err != nil {
		return err
	}
	*d = *created
	return nil
}

// GetByID retrieves a donation
func (r *DonationRepository) GetByID(ctx context.Context, id string) (*model.Donation, error) {
	return getOne[model.Donation](ctx, r.db, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
}

// GetByCheckoutSession finds the donation opened for a checkout session
func (r *DonationRepository) GetByCheckoutSession(ctx context.Context, sessionID string) (*model.Donation, error) {
	query := `SELECT * FROM donation WHERE checkout_session_id = $session LIMIT 1`
	return getOne[model.Donation](ctx, r.db, query, map[string]interface{}{"session": sessionID})
}

// SetCheckoutSession links a pending donation to its hosted checkout
func (r *DonationRepository) SetCheckoutSession(ctx context.Context, id, sessionID string) error {
	query := `UPDATE type::record($id) SET checkout_session_id = $session`
	return r.db.Execute(ctx, query, map[string]interface{}{"id": id, "session": sessionID})
}

// UpdateStatus changes a donation's status. Moving to completed stamps
// completed_on once.
func (r *DonationRepository) UpdateStatus(ctx context.Context, id string, status model.DonationStatus) (*model.Donation, error) {
	query := `
		UPDATE type::record($id) SET
			status = $status,
			completed_on = IF $status = 'completed' AND completed_on IS NONE THEN time::now() ELSE completed_on END
		RETURN AFTER
	`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"id": id, "status": status})
	if err != nil {
		return nil, err
	}
	row := firstRow(result)
	if row == nil {
		return nil, nil
	}
	return decodeRecord[model.Donation](row)
}

// SettlePending moves a pending donation to status. It returns nil when the
// donation was no longer pending, so concurrent redeliveries settle it once.
func (r *DonationRepository) SettlePending(ctx context.Context, id string, status model.DonationStatus) (*model.Donation, error) {
	query := `
		UPDATE type::record($id) SET
			status = $status,
			completed_on = IF $status = 'completed' THEN time::now() ELSE completed_on END
		WHERE status = 'pending'
		RETURN AFTER
	`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"id": id, "status": status})
	if err != nil {
		return nil, err
	}
	row := firstRow(result)
	if row == nil {
		return nil, nil
	}
	return decodeRecord[model.Donation](row)
}

// ListByMember returns a member's gifts, newest first
func (r *DonationRepository) ListByMember(ctx context.Context, memberID string, page model.PageRequest) (*model.Page[*model.Donation], error) {
	return queryPage[model.Donation](ctx, r.db, listQuery{
		table:   "donation",
		where:   "member_id = type::record($member)",
		orderBy: "created_on DESC",
		vars:    map[string]interface{}{"member": memberID},
	}, page)
}

// List returns all gifts matching an admin filter, newest first
func (r *DonationRepository) List(ctx context.Context, cond filter.Condition, page model.PageRequest) (*model.Page[*model.Donation], error) {
	lq := listQuery{table: "donation", orderBy: "created_on DESC"}
	lq.withFilter(cond)
	return queryPage[model.Donation](ctx, r.db, lq, page)
}

// Summary totals a member's completed gifts in [from, to)
func (r *DonationRepository) Summary(ctx context.Context, memberID string, from, to time.Time) (totalCents int64, count int, err error) {
	query := `
		SELECT math::sum(amount_cents) AS total, count() AS count FROM donation
		WHERE member_id = type::record($member)
			AND status = 'completed'
			AND created_on >= <datetime>$from AND created_on < <datetime>$to
		GROUP ALL
	`
	vars := map[string]interface{}{"member": memberID, "from": timeVar(from), "to": timeVar(to)}

	results, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return 0, 0, err
	}
	rows := statementRows(results, 0)
	return sumOf(rows, "total"), countOf(rows), nil
}

// CountCompleted counts a member's completed gifts
func (r *DonationRepository) CountCompleted(ctx context.Context, memberID string) (int, error) {
	query := `SELECT count() AS count FROM donation WHERE member_id = type::record($member) AND status = 'completed' GROUP ALL`
	return countQuery(ctx, r.db, query, map[string]interface{}{"member": memberID})
}
