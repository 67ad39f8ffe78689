package model

import "time"

// Event represents a scheduled gathering (service, class, outreach)
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Location    *string   `json:"location,omitempty"`
	Category    string    `json:"category"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Capacity    int       `json:"capacity"` // 0 = unlimited
	GoingCount  int       `json:"going_count"`
	Cancelled   bool      `json:"cancelled"`
	CreatedBy   string    `json:"created_by"`
	CreatedOn   time.Time `json:"created_on"`
	UpdatedOn   time.Time `json:"updated_on"`
}

// EventCategory constants
const (
	EventCategoryWorship  = "worship"
	EventCategoryClass    = "class"
	EventCategoryFellow   = "fellowship"
	EventCategoryOutreach = "outreach"
	EventCategoryYouth    = "youth"
	EventCategoryOther    = "other"
)

// IsFull reports whether a new "going" RSVP would exceed capacity
func (e *Event) IsFull() bool {
	return e.Capacity > 0 && e.GoingCount >= e.Capacity
}

// HasStarted reports whether the event start is in the past
func (e *Event) HasStarted(now time.Time) bool {
	return !e.StartTime.After(now)
}

// RSVPStatus is a member's response to an event
type RSVPStatus string

const (
	RSVPGoing    RSVPStatus = "going"
	RSVPMaybe    RSVPStatus = "maybe"
	RSVPNotGoing RSVPStatus = "not_going"
)

// RSVP represents a member's response to an event
type RSVP struct {
	ID        string     `json:"id"`
	EventID   string     `json:"event_id"`
	UserID    string     `json:"user_id"`
	Status    RSVPStatus `json:"status"`
	Reminded  bool       `json:"reminded"`
	CreatedOn time.Time  `json:"created_on"`
	UpdatedOn time.Time  `json:"updated_on"`
}

// EventWithRSVP pairs an event with the caller's RSVP, if any
type EventWithRSVP struct {
	*Event
	MyRSVP *RSVP `json:"my_rsvp,omitempty"`
}

// CreateEventRequest represents staff scheduling an event
type CreateEventRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=5000"`
	Location    *string   `json:"location,omitempty" validate:"omitempty,max=300"`
	Category    string    `json:"category" validate:"required,oneof=worship class fellowship outreach youth other"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	Capacity    int       `json:"capacity" validate:"gte=0,lte=100000"`
}

// Validate validates the new event
func (r *CreateEventRequest) Validate() []FieldError {
	return ValidateStruct(r)
}

// UpdateEventRequest represents staff editing an event
type UpdateEventRequest struct {
	Title       *string    `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=5000"`
	Location    *string    `json:"location,omitempty" validate:"omitempty,max=300"`
	Category    *string    `json:"category,omitempty" validate:"omitempty,oneof=worship class fellowship outreach youth other"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Capacity    *int       `json:"capacity,omitempty" validate:"omitempty,gte=0,lte=100000"`
}

// Validate validates the edit; when both times are given the end must follow the start
func (r *UpdateEventRequest) Validate() []FieldError {
	errs := ValidateStruct(r)
	if r.StartTime != nil && r.EndTime != nil && !r.EndTime.After(*r.StartTime) {
		errs = append(errs, FieldError{Field: "end_time", Message: "end_time must be after start_time"})
	}
	return errs
}

// RSVPRequest represents a member responding to an event
type RSVPRequest struct {
	Status string `json:"status" validate:"required,oneof=going maybe not_going"`
}

// Validate validates the RSVP
func (r *RSVPRequest) Validate() []FieldError {
	return ValidateStruct(r)
}

// EventListQuery filters the event calendar
type EventListQuery struct {
	Category     string
	UpcomingOnly bool
	PageRequest
}
