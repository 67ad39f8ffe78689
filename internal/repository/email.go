package repository

import (
	"context"
	"fmt"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/model"
)

// EmailRepository handles templates and campaigns
type EmailRepository struct {
	db database.Database
}

// NewEmailRepository creates a new email repository
func NewEmailRepository(db database.Database) *EmailRepository {
	return &EmailRepository{db: db}
}

// ===== Templates =====

// SaveTemplate creates a template or replaces the one with the same key
func (r *EmailRepository) SaveTemplate(ctx context.Context, t *model.EmailTemplate) error {
	query := `
		LET $existing = (SELECT * FROM ONLY email_template WHERE key = $key LIMIT 1);
		IF $existing IS NONE {
			CREATE email_template CONTENT {
				key: $key,
				name: $name,
				subject: $subject,
				body: $body,
				layout: $layout,
				created_by: type::record($created_by),
				created_on: time::now(),
				updated_on: time::now()
			}
		} ELSE {
			UPDATE $existing.id SET
				name = $name,
				subject = $subject,
				body = $body,
				layout = $layout,
				updated_on = time::now()
			RETURN AFTER
		};
	`
	vars := map[string]interface{}{
		"key":        t.Key,
		"name":       t.Name,
		"subject":    t.Subject,
		"body":       t.Body,
		"layout":     t.Layout,
		"created_by": t.CreatedBy,
	}

	results, err := r.db.Query(ctx, query, vars)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %v", database.ErrDuplicate, err)
		}
		return err
	}
	rows := statementRows(results, 1)
	if len(rows) == 0 {
		return fmt.Errorf("%w: template not returned", database.ErrQuery)
	}
	saved, err := decodeRecord[model.EmailTemplate](rows[0])
	if err != nil {
		return err
	}
	*t = *saved
	return nil
}

// GetTemplate returns a template by id, or nil
func (r *EmailRepository) GetTemplate(ctx context.Context, id string) (*model.EmailTemplate, error) {
	return getOne[model.EmailTemplate](ctx, r.db, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
}

// GetTemplateByKey returns a template by key, or nil
func (r *EmailRepository) GetTemplateByKey(ctx context.Context, key string) (*model.EmailTemplate, error) {
	return getOne[model.EmailTemplate](ctx, r.db, `SELECT * FROM email_template WHERE key = $key LIMIT 1`, map[string]interface{}{"key": key})
}

// ListTemplates returns every template by name
func (r *EmailRepository) ListTemplates(ctx context.Context) ([]*model.EmailTemplate, error) {
	return getMany[model.EmailTemplate](ctx, r.db, `SELECT * FROM email_template ORDER BY name ASC`, nil)
}

// DeleteTemplate removes a template
func (r *EmailRepository) DeleteTemplate(ctx context.Context, id string) error {
	return r.db.Execute(ctx, `DELETE type::record($id)`, map[string]interface{}{"id": id})
}

// ===== Campaigns =====

// CreateCampaign stores a draft campaign
func (r *EmailRepository) CreateCampaign(ctx context.Context, c *model.EmailCampaign) error {
	query := `
		CREATE email_campaign CONTENT {
			template_id: IF $template IS NOT NULL THEN type::record($template) ELSE NONE END,
			subject: $subject,
			body: $body,
			layout: $layout,
			audience: $audience,
			status: 'draft',
			recipient_count: 0,
			failed_count: 0,
			created_by: type::record($created_by),
			created_on: time::now()
		}
	`
	vars := map[string]interface{}{
		"template":   ptrToNone(c.TemplateID),
		"subject":    c.Subject,
		"body":       c.Body,
		"layout":     c.Layout,
		"audience":   c.Audience,
		"created_by": c.CreatedBy,
	}

	created, err := createOne[model.EmailCampaign](ctx, r.db, query, vars)
	if err != nil {
		return err
	}
	*c = *created
	return nil
}

// GetCampaign returns a campaign, or nil
func (r *EmailRepository) GetCampaign(ctx context.Context, id string) (*model.EmailCampaign, error) {
	return getOne[model.EmailCampaign](ctx, r.db, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id})
}

// ListCampaigns returns campaigns newest first
func (r *EmailRepository) ListCampaigns(ctx context.Context, page model.PageRequest) (*model.Page[*model.EmailCampaign], error) {
	return queryPage[model.EmailCampaign](ctx, r.db, listQuery{table: "email_campaign", orderBy: "created_on DESC"}, page)
}

// ClaimCampaign moves a draft to sending. It returns false when the
// campaign was not a draft, so only one caller sends it.
func (r *EmailRepository) ClaimCampaign(ctx context.Context, id string) (bool, error) {
	query := `UPDATE type::record($id) SET status = 'sending' WHERE status = 'draft' RETURN AFTER`
	results, err := r.db.Query(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return false, err
	}
	return len(statementRows(results, 0)) > 0, nil
}

// FinishCampaign records the send outcome
func (r *EmailRepository) FinishCampaign(ctx context.Context, id string, status model.CampaignStatus, sent, failed int) (*model.EmailCampaign, error) {
	query := `
		UPDATE type::record($id) SET
			status = $status,
			recipient_count = $sent,
			failed_count = $failed,
			sent_on = time::now()
		RETURN AFTER
	`
	vars := map[string]interface{}{"id": id, "status": status, "sent": sent, "failed": failed}
	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	row := firstRow(result)
	if row == nil {
		return nil, nil
	}
	return decodeRecord[model.EmailCampaign](row)
}
