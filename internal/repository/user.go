package repository

import (
	"cmp"
	"context"
	"fmt"
	"strings"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/model"
)

// UserRepository stores member accounts. Emails are kept lowercased and
// the user_email index keeps them unique.
type UserRepository struct {
	db database.Database
}

func NewUserRepository(db database.Database) *UserRepository {
	return &UserRepository{db: db}
}

// profileColumns are the fields a member may change on their own profile
var profileColumns = []string{
	"firstname", "lastname", "phone", "bio", "ministries",
	"directory_visible", "show_contact", "prayer_partner",
}

const createMember = `
	CREATE user SET
		email = string::lowercase($email),
		hash = $hash,
		firstname = $firstname,
		lastname = $lastname,
		role = $role,
		ministries = [],
		directory_visible = false,
		show_contact = false,
		prayer_partner = false,
		email_verified = $verified,
		created_on = time::now(),
		updated_on = time::now()
`

// Create stores a new member and fills user from the stored record. A taken
// email is database.ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	role := cmp.Or(user.Role, model.UserRoleMember)
	created, err := createOne[model.User](ctx, r.db, createMember, map[string]interface{}{
		"email":     user.Email,
		"hash":      ptrToNone(user.Hash),
		"firstname": ptrToNone(user.Firstname),
		"lastname":  ptrToNone(user.Lastname),
		"role":      role,
		"verified":  user.EmailVerified,
	})
	if err != nil {
		return err
	}

	created.Hash = user.Hash
	*user = *created
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.member(ctx, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
}

// GetByEmail matches case-insensitively
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.member(ctx, `SELECT * FROM user WHERE email = string::lowercase($email) LIMIT 1`,
		map[string]interface{}{"email": email})
}

// member loads one account. The hash is json:"-" on the model, so it is
// lifted from the raw row before decoding.
func (r *UserRepository) member(ctx context.Context, query string, vars map[string]interface{}) (*model.User, error) {
	raw, err := r.db.QueryOne(ctx, query, vars)
	var row map[string]interface{}
	if err == nil {
		row, err = unwrapRecord(raw)
	}
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	user, err := decodeRecord[model.User](row)
	if err != nil {
		return nil, err
	}
	if h, ok := row["hash"].(string); ok && h != "" {
		user.Hash = &h
	}
	return user, nil
}

// UpdateProfile applies profile changes and returns the updated user
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, updates map[string]interface{}) (*model.User, error) {
	set, vars := setClause(updates, profileColumns)
	vars["id"] = id

	query := fmt.Sprintf(`UPDATE type::record($id) SET %s RETURN AFTER`, set)
	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	row := firstRow(result)
	if row == nil {
		return nil, nil
	}
	return decodeRecord[model.User](row)
}

// SetRole changes a member's role. The change takes effect on the next
// role-guarded request since guards re-read the stored role.
func (r *UserRepository) SetRole(ctx context.Context, userID string, role model.UserRole) error {
	return r.db.Execute(ctx, `UPDATE type::record($id) SET role = $role, updated_on = time::now()`,
		map[string]interface{}{"id": userID, "role": role})
}

// TouchLogin records a successful login
func (r *UserRepository) TouchLogin(ctx context.Context, userID string) error {
	query := `UPDATE type::record($id) SET login_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{"id": userID})
}

// Directory lists members who opted into the directory. search matches
// first or last name case-insensitively.
func (r *UserRepository) Directory(ctx context.Context, q model.DirectoryQuery) (*model.Page[*model.User], error) {
	lq := listQuery{
		table:   "user",
		where:   "directory_visible = true",
		orderBy: "lastname ASC, firstname ASC",
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		lq.where += " AND (string::contains(string::lowercase(firstname ?? ''), $q) OR string::contains(string::lowercase(lastname ?? ''), $q))"
		lq.vars = map[string]interface{}{"q": strings.ToLower(s)}
	}
	return queryPage[model.User](ctx, r.db, lq, q.PageRequest)
}

// ListPrayerPartners returns up to limit members who opted in as prayer
// partners, excluding one user (usually the request author)
func (r *UserRepository) ListPrayerPartners(ctx context.Context, excludeID string, limit int) ([]*model.User, error) {
	query := `
		SELECT * FROM user
		WHERE prayer_partner = true AND id != type::record($exclude)
		ORDER BY login_on DESC
		LIMIT $limit
	`
	vars := map[string]interface{}{"exclude": excludeID, "limit": limit}
	return getMany[model.User](ctx, r.db, query, vars)
}

// ListRecipients resolves an email audience into addresses
func (r *UserRepository) ListRecipients(ctx context.Context, audience model.EmailAudience) ([]model.Recipient, error) {
	var where string
	switch audience {
	case model.AudienceMembers:
		where = "WHERE role = 'member'"
	case model.AudienceStaff:
		where = "WHERE role IN ['staff', 'admin']"
	case model.AudienceVolunteers:
		where = "WHERE id IN (SELECT VALUE user_id FROM volunteer_signup)"
	case model.AudienceDonors:
		where = "WHERE id IN (SELECT VALUE member_id FROM donation WHERE status = 'completed')"
	default:
		where = ""
	}

	query := fmt.Sprintf(`SELECT id AS user_id, email, firstname ?? '' AS firstname, lastname ?? '' AS lastname FROM user %s ORDER BY email`, where)
	rows, err := getMany[model.Recipient](ctx, r.db, query, nil)
	if err != nil {
		return nil, err
	}

	out := make([]model.Recipient, 0, len(rows))
	for _, rcpt := range rows {
		out = append(out, *rcpt)
	}
	return out, nil
}
