package model

import "time"

// Opportunity is a standing place to serve (greeters, nursery, food pantry)
type Opportunity struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Ministry    string    `json:"ministry"`
	Location    *string   `json:"location,omitempty"`
	Active      bool      `json:"active"`
	CreatedBy   string    `json:"created_by"`
	CreatedOn   time.Time `json:"created_on"`
	UpdatedOn   time.Time `json:"updated_on"`
}

// Shift is a time slot for an opportunity with fixed capacity
type Shift struct {
	ID             string    `json:"id"`
	OpportunityID  string    `json:"opportunity_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	SlotsAvailable int       `json:"slots_available"`
	SlotsFilled    int       `json:"slots_filled"`
	CreatedOn      time.Time `json:"created_on"`
}

// IsFull reports whether every slot is taken
func (s *Shift) IsFull() bool {
	return s.SlotsFilled >= s.SlotsAvailable
}

// OpenSlots returns the remaining capacity, never negative
func (s *Shift) OpenSlots() int {
	if s.SlotsFilled >= s.SlotsAvailable {
		return 0
	}
	return s.SlotsAvailable - s.SlotsFilled
}

// ShiftView is a shift as shown to members
type ShiftView struct {
	*Shift
	OpenSlots int  `json:"open_slots"`
	SignedUp  bool `json:"signed_up"`
}

// OpportunityWithShifts groups an opportunity with its upcoming shifts
type OpportunityWithShifts struct {
	*Opportunity
	Shifts []*ShiftView `json:"shifts"`
}

// Signup is a member committed to a shift
type Signup struct {
	ID        string    `json:"id"`
	ShiftID   string    `json:"shift_id"`
	UserID    string    `json:"user_id"`
	Reminded  bool      `json:"reminded"`
	CreatedOn time.Time `json:"created_on"`
}

// SignupDetail is a member's signup joined with its shift and opportunity
type SignupDetail struct {
	*Signup
	Shift       *Shift       `json:"shift"`
	Opportunity *Opportunity `json:"opportunity,omitempty"`
}

// CreateOpportunityRequest represents staff listing a way to serve
type CreateOpportunityRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	Ministry    string  `json:"ministry" validate:"required,max=100"`
	Location    *string `json:"location,omitempty" validate:"omitempty,max=300"`
}

// Validate validates the new opportunity
func (r *CreateOpportunityRequest) Validate() []FieldError {
	return ValidateStruct(r)
}

// UpdateOpportunityRequest represents staff editing an opportunity
type UpdateOpportunityRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	Ministry    *string `json:"ministry,omitempty" validate:"omitempty,min=1,max=100"`
	Location    *string `json:"location,omitempty" validate:"omitempty,max=300"`
	Active      *bool   `json:"active,omitempty"`
}

// Validate validates the edit
func (r *UpdateOpportunityRequest) Validate() []FieldError {
	return ValidateStruct(r)
}

// CreateShiftRequest represents staff adding a time slot
type CreateShiftRequest struct {
	StartTime      time.Time `json:"start_time" validate:"required"`
	EndTime        time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	SlotsAvailable int       `json:"slots_available" validate:"gte=1,lte=1000"`
}

// Validate validates the new shift
func (r *CreateShiftRequest) Validate() []FieldError {
	return ValidateStruct(r)
}

// OpportunityQuery filters the opportunity list
type OpportunityQuery struct {
	Ministry string
	PageRequest
}
