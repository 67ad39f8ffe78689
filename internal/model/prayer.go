package model

import "time"

// PrayerStatus is the lifecycle of a prayer request
type PrayerStatus string

const (
	PrayerActive   PrayerStatus = "active"
	PrayerAnswered PrayerStatus = "answered"
	PrayerArchived PrayerStatus = "archived"
)

// IsValid returns true if the status is known
func (s PrayerStatus) IsValid() bool {
	switch s {
	case PrayerActive, PrayerAnswered, PrayerArchived:
		return true
	}
	return false
}

// PrayerVisibility controls who sees a request
type PrayerVisibility string

const (
	PrayerPublic  PrayerVisibility = "public"  // Shown on the prayer wall
	PrayerMembers PrayerVisibility = "members" // Signed-in members only
	PrayerPrivate PrayerVisibility = "private" // Author and staff only
)

const (
	MaxPrayerTitleLength = 200
	MaxPrayerBodyLength  = 5000
	MaxPrayerPartners    = 3
	MaxPartnerCandidates = 50
)

// PrayerRequest represents a request for prayer
type PrayerRequest struct {
	ID           string           `json:"id"`
	AuthorID     *string          `json:"author_id,omitempty"` // nil when shown anonymously
	AuthorName   *string          `json:"author_name,omitempty"`
	Title        string           `json:"title"`
	Body         *string          `json:"body,omitempty"`
	Visibility   PrayerVisibility `json:"visibility"`
	Anonymous    bool             `json:"anonymous"`
	Status       PrayerStatus     `json:"status"`
	PrayerCount  int              `json:"prayer_count"`
	AnsweredNote *string          `json:"answered_note,omitempty"`
	CreatedOn    time.Time        `json:"created_on"`
	UpdatedOn    time.Time        `json:"updated_on"`
	AnsweredOn   *time.Time       `json:"answered_on,omitempty"`
}

// IsAuthor returns true if userID wrote the request
func (p *PrayerRequest) IsAuthor(userID string) bool {
	return p.AuthorID != nil && *p.AuthorID == userID
}

// Redacted returns a copy suitable for other members; anonymous requests hide the author
func (p *PrayerRequest) Redacted() *PrayerRequest {
	cp := *p
	if p.Anonymous {
		cp.AuthorID = nil
		cp.AuthorName = nil
	}
	return &cp
}

// CreatePrayerRequest represents a new prayer request
type CreatePrayerRequest struct {
	Title      string  `json:"title" validate:"required,max=200"`
	Body       *string `json:"body,omitempty" validate:"omitempty,max=5000"`
	Visibility string  `json:"visibility,omitempty" validate:"omitempty,oneof=public members private"`
	Anonymous  bool    `json:"anonymous"`
}

// Validate validates the new request
func (r *CreatePrayerRequest) Validate() []FieldError {
	return ValidateStruct(r)
}

// UpdatePrayerRequest represents an author editing a request
type UpdatePrayerRequest struct {
	Title      *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Body       *string `json:"body,omitempty" validate:"omitempty,max=5000"`
	Visibility *string `json:"visibility,omitempty" validate:"omitempty,oneof=public members private"`
	Anonymous  *bool   `json:"anonymous,omitempty"`
}

// Validate validates the edit
func (r *UpdatePrayerRequest) Validate() []FieldError {
	return ValidateStruct(r)
}

// AnswerPrayerRequest marks a request answered
type AnswerPrayerRequest struct {
	Note *string `json:"note,omitempty" validate:"omitempty,max=2000"`
}

// Validate validates the answer
func (r *AnswerPrayerRequest) Validate() []FieldError {
	return ValidateStruct(r)
}

// ModeratePrayerRequest is staff changing a request's status
type ModeratePrayerRequest struct {
	Status string `json:"status" validate:"required,oneof=active answered archived"`
}

// Validate validates the status change
func (r *ModeratePrayerRequest) Validate() []FieldError {
	return ValidateStruct(r)
}

// PrayerListQuery filters the prayer wall
type PrayerListQuery struct {
	Status *PrayerStatus
	PageRequest
}

// PrayerPartner links a member who committed to pray for a request
type PrayerPartner struct {
	ID          string    `json:"id"`
	RequestID   string    `json:"request_id"`
	PartnerID   string    `json:"partner_id"`
	PartnerName string    `json:"partner_name,omitempty"`
	Reason      string    `json:"reason"`
	CreatedOn   time.Time `json:"created_on"`
}
