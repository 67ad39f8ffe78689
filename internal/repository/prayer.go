package repository

import (
	"context"
	"fmt"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/filter"
	"github.com/forgo/shepherd/api/internal/model"
)

// PrayerFilterSchema lists the fields staff can filter prayer requests on
var PrayerFilterSchema = filter.MustSchema(
	filter.Field{Name: "status", Column: "status", Kind: filter.KindString},
	filter.Field{Name: "visibility", Column: "visibility", Kind: filter.KindString},
	filter.Field{Name: "anonymous", Column: "anonymous", Kind: filter.KindBool},
	filter.Field{Name: "author_id", Column: "author_id", Kind: filter.KindRecord},
	filter.Field{Name: "title", Column: "title", Kind: filter.KindString},
	filter.Field{Name: "created_on", Column: "created_on", Kind: filter.KindTimestamp},
)

// Guard reason raised when a member prays for the same request twice
const reasonAlreadyPrayed = "already_prayed"

const prayerFields = "*, string::trim(string::concat(author_id.firstname ?? '', ' ', author_id.lastname ?? '')) AS author_name"

var prayerColumns = []string{"title", "body", "visibility", "anonymous", "status", "answered_note", "answered_on"}

// PrayerRepository handles prayer request data access
type PrayerRepository struct {
	db database.Database
}

// NewPrayerRepository creates a new prayer repository
func NewPrayerRepository(db database.Database) *PrayerRepository {
	return &PrayerRepository{db: db}
}

// Create stores a new request with status active and no prayers yet
func (r *PrayerRepository) Create(ctx context.Context, p *model.PrayerRequest) error {
	query := `
		CREATE prayer_request CONTENT {
			author_id: type::record($author),
			title: $title,
			body: IF $body IS NOT NULL THEN $body ELSE NONE END,
			visibility: $visibility,
			anonymous: $anonymous,
			status: 'active',
			prayer_count: 0,
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	vars := map[string]interface{}{
		"author":     ptrToNone(p.AuthorID),
		"title":      p.Title,
		"body":       ptrToNone(p.Body),
		"visibility": p.Visibility,
		"anonymous":  p.Anonymous,
	}

	created, err := createOne[model.PrayerRequest](ctx, r.db, query, vars)
	if err != nil {
		return err
	}
	*p = *created
	return nil
}

// GetByID retrieves a request with its author's name
func (r *PrayerRepository) GetByID(ctx context.Context, id string) (*model.PrayerRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM type::record($id)`, prayerFields)
	return getOne[model.PrayerRequest](ctx, r.db, query, map[string]interface{}{"id": id})
}

// Update applies changes and returns the updated request
func (r *PrayerRepository) Update(ctx context.Context, id string, updates map[string]interface{}) (*model.PrayerRequest, error) {
	set, vars := setClause(updates, prayerColumns)
	vars["id"] = id

	query := fmt.Sprintf("UPDATE type::record($id) SET %s;\nSELECT %s FROM type::record($id);", set, prayerFields)
	results, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	rows := statementRows(results, 1)
	if len(rows) == 0 {
		return nil, nil
	}
	return decodeRecord[model.PrayerRequest](rows[0])
}

// Delete removes a request with its prayed marks and partner links
func (r *PrayerRepository) Delete(ctx context.Context, id string) error {
	tb := database.NewTxBuilder().
		Bind("id", id).
		Add("DELETE prayer_prayed WHERE request_id = type::record($id)").
		Add("DELETE prayer_partner WHERE request_id = type::record($id)").
		Add("DELETE type::record($id)")
	_, err := database.ExecuteTransaction(ctx, r.db, tb)
	return err
}

// ListWall returns requests visible to signed-in members, newest first
func (r *PrayerRepository) ListWall(ctx context.Context, q model.PrayerListQuery) (*model.Page[*model.PrayerRequest], error) {
	lq := listQuery{
		table:   "prayer_request",
		fields:  prayerFields,
		where:   "visibility IN ['public', 'members']",
		orderBy: "created_on DESC",
		vars:    map[string]interface{}{},
	}
	if q.Status != nil {
		lq.where += " AND status = $status"
		lq.vars["status"] = *q.Status
	} else {
		lq.where += " AND status != 'archived'"
	}
	return queryPage[model.PrayerRequest](ctx, r.db, lq, q.PageRequest)
}

// ListByAuthor returns a member's own requests, newest first
func (r *PrayerRepository) ListByAuthor(ctx context.Context, authorID string, page model.PageRequest) (*model.Page[*model.PrayerRequest], error) {
	return queryPage[model.PrayerRequest](ctx, r.db, listQuery{
		table:   "prayer_request",
		fields:  prayerFields,
		where:   "author_id = type::record($author)",
		orderBy: "created_on DESC",
		vars:    map[string]interface{}{"author": authorID},
	}, page)
}

// List returns every request matching a staff filter, newest first
func (r *PrayerRepository) List(ctx context.Context, cond filter.Condition, page model.PageRequest) (*model.Page[*model.PrayerRequest], error) {
	lq := listQuery{table: "prayer_request", fields: prayerFields, orderBy: "created_on DESC"}
	lq.withFilter(cond)
	return queryPage[model.PrayerRequest](ctx, r.db, lq, page)
}

// CountActiveByAuthor counts a member's active requests
func (r *PrayerRepository) CountActiveByAuthor(ctx context.Context, authorID string) (int, error) {
	query := `SELECT count() AS count FROM prayer_request WHERE author_id = type::record($author) AND status = 'active' GROUP ALL`
	return countQuery(ctx, r.db, query, map[string]interface{}{"author": authorID})
}

// RecordPrayer marks that userID prayed for a request and bumps its count.
// A second mark by the same member returns ErrDuplicate.
func (r *PrayerRepository) RecordPrayer(ctx context.Context, requestID, userID string) (int, error) {
	tb := database.NewTxBuilder().
		Bind("request", requestID).
		Bind("user", userID).
		Let("existing", "(SELECT VALUE id FROM prayer_prayed WHERE request_id = type::record($request) AND user_id = type::record($user))").
		Guard("array::len($existing) > 0", reasonAlreadyPrayed).
		Add("CREATE prayer_prayed CONTENT { request_id: type::record($request), user_id: type::record($user), created_on: time::now() }").
		Add("UPDATE type::record($request) SET prayer_count += 1 RETURN VALUE prayer_count")

	results, err := database.ExecuteTransaction(ctx, r.db, tb)
	if err != nil {
		if isGuard(err, reasonAlreadyPrayed) {
			return 0, fmt.Errorf("%w: already prayed", database.ErrDuplicate)
		}
		return 0, err
	}

	rows := statementRows(results, len(results)-1)
	if len(rows) == 0 {
		return 0, nil
	}
	return int(asInt64(rows[0])), nil
}

// CountPrayedBy counts how many requests a member has prayed for
func (r *PrayerRepository) CountPrayedBy(ctx context.Context, userID string) (int, error) {
	query := `SELECT count() AS count FROM prayer_prayed WHERE user_id = type::record($user) GROUP ALL`
	return countQuery(ctx, r.db, query, map[string]interface{}{"user": userID})
}

// CreatePartners stores partner matches for a request, skipping members
// already linked to it
func (r *PrayerRepository) CreatePartners(ctx context.Context, requestID string, partners []*model.PrayerPartner) ([]*model.PrayerPartner, error) {
	if len(partners) == 0 {
		return nil, nil
	}

	tb := database.NewTxBuilder().Bind("request", requestID)
	for i, p := range partners {
		pv, rv := fmt.Sprintf("partner%d", i), fmt.Sprintf("reason%d", i)
		tb.Bind(pv, p.PartnerID).Bind(rv, p.Reason)
		tb.Add(fmt.Sprintf(`IF array::len((SELECT id FROM prayer_partner WHERE request_id = type::record($request) AND partner_id = type::record($%s))) = 0 {
			CREATE prayer_partner CONTENT { request_id: type::record($request), partner_id: type::record($%s), reason: $%s, created_on: time::now() }
		}`, pv, pv, rv))
	}
	if _, err := database.ExecuteTransaction(ctx, r.db, tb); err != nil {
		return nil, err
	}
	return r.ListPartners(ctx, requestID)
}

// ListPartners returns the partners linked to a request with their names
func (r *PrayerRepository) ListPartners(ctx context.Context, requestID string) ([]*model.PrayerPartner, error) {
	query := `
		SELECT *, string::trim(string::concat(partner_id.firstname ?? '', ' ', partner_id.lastname ?? '')) AS partner_name
		FROM prayer_partner
		WHERE request_id = type::record($request)
		ORDER BY created_on ASC
	`
	return getMany[model.PrayerPartner](ctx, r.db, query, map[string]interface{}{"request": requestID})
}
