package model

import "time"

// EmailLayout selects the outer HTML shell for a message
type EmailLayout string

const (
	LayoutAnnouncement EmailLayout = "announcement"
	LayoutNewsletter   EmailLayout = "newsletter"
	LayoutPlain        EmailLayout = "plain"
)

// EmailAudience selects campaign recipients
type EmailAudience string

const (
	AudienceAll        EmailAudience = "all"
	AudienceMembers    EmailAudience = "members"
	AudienceStaff      EmailAudience = "staff"
	AudienceVolunteers EmailAudience = "volunteers"
	AudienceDonors     EmailAudience = "donors"
)

// CampaignStatus is the send lifecycle of a campaign
type CampaignStatus string

const (
	CampaignDraft   CampaignStatus = "draft"
	CampaignSending CampaignStatus = "sending"
	CampaignSent    CampaignStatus = "sent"
	CampaignFailed  CampaignStatus = "failed"
)

// EmailTemplate is a reusable subject and body
type EmailTemplate struct {
	ID        string      `json:"id"`
	Key       string      `json:"key"`
	Name      string      `json:"name"`
	Subject   string      `json:"subject"`
	Body      string      `json:"body"`
	Layout    EmailLayout `json:"layout"`
	CreatedBy string      `json:"created_by"`
	CreatedOn time.Time   `json:"created_on"`
	UpdatedOn time.Time   `json:"updated_on"`
}

// EmailCampaign is one composed message sent to an audience
type EmailCampaign struct {
	ID             string         `json:"id"`
	TemplateID     *string        `json:"template_id,omitempty"`
	Subject        string         `json:"subject"`
	Body           string         `json:"body"`
	Layout         EmailLayout    `json:"layout"`
	Audience       EmailAudience  `json:"audience"`
	Status         CampaignStatus `json:"status"`
	RecipientCount int            `json:"recipient_count"`
	FailedCount    int            `json:"failed_count"`
	CreatedBy      string         `json:"created_by"`
	CreatedOn      time.Time      `json:"created_on"`
	SentOn         *time.Time     `json:"sent_on,omitempty"`
}

// Recipient is one resolved address with personalization fields
type Recipient struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

// SaveTemplateRequest creates or replaces a template
type SaveTemplateRequest struct {
	Key     string `json:"key" validate:"required,max=64"`
	Name    string `json:"name" validate:"required,max=200"`
	Subject string `json:"subject" validate:"required,max=200"`
	Body    string `json:"body" validate:"required,max=50000"`
	Layout  string `json:"layout" validate:"required,oneof=announcement newsletter plain"`
}

// Validate validates the template
func (r *SaveTemplateRequest) Validate() []FieldError {
	return ValidateStruct(r)
}

// ComposeRequest drafts a campaign from a template or raw content
type ComposeRequest struct {
	TemplateID *string `json:"template_id,omitempty"`
	Subject    string  `json:"subject,omitempty" validate:"max=200"`
	Body       string  `json:"body,omitempty" validate:"max=50000"`
	Layout     string  `json:"layout,omitempty" validate:"omitempty,oneof=announcement newsletter plain"`
	Audience   string  `json:"audience" validate:"required,oneof=all members staff volunteers donors"`
}

// Validate requires either a template or both subject and body
func (r *ComposeRequest) Validate() []FieldError {
	errs := ValidateStruct(r)
	if r.TemplateID == nil || *r.TemplateID == "" {
		if r.Subject == "" {
			errs = append(errs, FieldError{Field: "subject", Message: "subject is required without template_id"})
		}
		if r.Body == "" {
			errs = append(errs, FieldError{Field: "body", Message: "body is required without template_id"})
		}
	}
	return errs
}

// PreviewRequest renders content without sending
type PreviewRequest struct {
	Subject string `json:"subject" validate:"required,max=200"`
	Body    string `json:"body" validate:"required,max=50000"`
	Layout  string `json:"layout,omitempty" validate:"omitempty,oneof=announcement newsletter plain"`
}

// Validate validates the preview
func (r *PreviewRequest) Validate() []FieldError {
	return ValidateStruct(r)
}

// RenderedEmail is a message ready for delivery
type RenderedEmail struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}
