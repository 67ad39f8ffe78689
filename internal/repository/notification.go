package repository

import (
	"context"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/model"
)

// NotificationRepository handles inbox data access
type NotificationRepository struct {
	db database.Database
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db database.Database) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create stores a notification
func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
		CREATE notification CONTENT {
			user_id: type::record($user),
			kind: $kind,
			title: $title,
			body: $body,
			link: IF $link IS NOT NULL THEN $link ELSE NONE END,
			read: false,
			created_on: time::now()
		}
	`
	vars := map[string]interface{}{
		"user":  n.UserID,
		"kind":  n.Kind,
		"title": n.Title,
		"body":  n.Body,
		"link":  ptrToNone(n.Link),
	}

	created, err := createOne[model.Notification](ctx, r.db, query, vars)
	if err != nil {
		return err
	}
	*n = *created
	return nil
}

// Get returns a notification, or nil
func (r *NotificationRepository) Get(ctx context.Context, id string) (*model.Notification, error) {
	return getOne[model.Notification](ctx, r.db, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
}

// List returns a member's inbox, newest first
func (r *NotificationRepository) List(ctx context.Context, userID string, q model.NotificationQuery) (*model.Page[*model.Notification], error) {
	lq := listQuery{
		table:   "notification",
		where:   "user_id = type::record($user)",
		orderBy: "created_on DESC",
		vars:    map[string]interface{}{"user": userID},
	}
	if q.UnreadOnly {
		lq.where += " AND read = false"
	}
	return queryPage[model.Notification](ctx, r.db, lq, q.PageRequest)
}

// MarkRead marks one notification read
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	query := `UPDATE type::record($id) SET read = true, read_on = read_on ?? time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{"id": id})
}

// MarkAllRead marks a member's whole inbox read and returns how many changed
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	query := `SELECT count() AS count FROM notification WHERE user_id = type::record($user) AND read = false GROUP ALL;
		UPDATE notification SET read = true, read_on = time::now() WHERE user_id = type::record($user) AND read = false RETURN NONE;`
	results, err := r.db.Query(ctx, query, map[string]interface{}{"user": userID})
	if err != nil {
		return 0, err
	}
	return countOf(statementRows(results, 0)), nil
}

// Delete removes a notification
func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	return r.db.Execute(ctx, `DELETE type::record($id)`, map[string]interface{}{"id": id})
}

// CountUnread counts a member's unread notifications
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	query := `SELECT count() AS count FROM notification WHERE user_id = type::record($user) AND read = false GROUP ALL`
	return countQuery(ctx, r.db, query, map[string]interface{}{"user": userID})
}
