package model

import "time"

// LeadSource is where a visitor first connected
type LeadSource string

const (
	LeadSourceWebsite  LeadSource = "website"
	LeadSourceEvent    LeadSource = "event"
	LeadSourceReferral LeadSource = "referral"
	LeadSourceWalkIn   LeadSource = "walk_in"
)

// LeadStatus is the follow-up stage for a visitor
type LeadStatus string

const (
	LeadNew       LeadStatus = "new"
	LeadContacted LeadStatus = "contacted"
	LeadEngaged   LeadStatus = "engaged"
	LeadMember    LeadStatus = "member"
)

// Lead is a visitor who filled out a connect card
type Lead struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       *string    `json:"email,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	Source      LeadSource `json:"source"`
	Interests   []string   `json:"interests,omitempty"`
	Message     *string    `json:"message,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	Status      LeadStatus `json:"status"`
	Score       *int       `json:"score,omitempty"`
	ScoreReason *string    `json:"score_reason,omitempty"`
	ScoredOn    *time.Time `json:"scored_on,omitempty"`
	CreatedOn   time.Time  `json:"created_on"`
	UpdatedOn   time.Time  `json:"updated_on"`
}

// ConnectCardRequest is the public visitor form
type ConnectCardRequest struct {
	Name      string   `json:"name" validate:"required,max=200"`
	Email     *string  `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone     *string  `json:"phone,omitempty" validate:"omitempty,max=30"`
	Source    string   `json:"source,omitempty" validate:"omitempty,oneof=website event referral walk_in"`
	Interests []string `json:"interests,omitempty" validate:"omitempty,max=10,dive,min=1,max=50"`
	Message   *string  `json:"message,omitempty" validate:"omitempty,max=2000"`
}

// Validate requires at least one way to follow up
func (r *ConnectCardRequest) Validate() []FieldError {
	errs := ValidateStruct(r)
	if (r.Email == nil || *r.Email == "") && (r.Phone == nil || *r.Phone == "") {
		errs = append(errs, FieldError{Field: "email", Message: "email or phone is required"})
	}
	return errs
}

// UpdateLeadRequest is staff recording follow-up
type UpdateLeadRequest struct {
	Status *string `json:"status,omitempty" validate:"omitempty,oneof=new contacted engaged member"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

// Validate validates the follow-up
func (r *UpdateLeadRequest) Validate() []FieldError {
	return ValidateStruct(r)
}

// LeadScore is the model's assessment of a lead
type LeadScore struct {
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// Clamp bounds the score to 0..100
func (s *LeadScore) Clamp() {
	if s.Score < 0 {
		s.Score = 0
	}
	if s.Score > 100 {
		s.Score = 100
	}
}
