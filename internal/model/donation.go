package model

import (
	"strings"
	"time"
)

// DonationFund is the designated use of a gift
type DonationFund string

const (
	FundGeneral     DonationFund = "general"
	FundMissions    DonationFund = "missions"
	FundBuilding    DonationFund = "building"
	FundBenevolence DonationFund = "benevolence"
)

// DonationFrequency distinguishes one-time gifts from recurring ones
type DonationFrequency string

const (
	FrequencyOneTime DonationFrequency = "one_time"
	FrequencyMonthly DonationFrequency = "monthly"
)

// DonationMethod records how a gift arrived
type DonationMethod string

const (
	MethodCard  DonationMethod = "card"
	MethodCash  DonationMethod = "cash"
	MethodCheck DonationMethod = "check"
)

// DonationStatus tracks a gift through checkout
type DonationStatus string

const (
	DonationPending   DonationStatus = "pending"
	DonationCompleted DonationStatus = "completed"
	DonationFailed    DonationStatus = "failed"
	DonationRefunded  DonationStatus = "refunded"
)

// IsValid returns true if the status is known
func (s DonationStatus) IsValid() bool {
	switch s {
	case DonationPending, DonationCompleted, DonationFailed, DonationRefunded:
		return true
	}
	return false
}

// Gift amount bounds, in minor units
const (
	MinDonationCents = 100
	MaxDonationCents = 10_000_000
)

// Donation represents a single gift
type Donation struct {
	ID                string            `json:"id"`
	MemberID          *string           `json:"member_id,omitempty"`
	AmountCents       int64             `json:"amount_cents"`
	Currency          string            `json:"currency"`
	Fund              DonationFund      `json:"fund"`
	Frequency         DonationFrequency `json:"frequency"`
	Method            DonationMethod    `json:"method"`
	Status            DonationStatus    `json:"status"`
	CheckoutSessionID *string           `json:"checkout_session_id,omitempty"`
	Note              *string           `json:"note,omitempty"`
	RecordedBy        *string           `json:"recorded_by,omitempty"`
	CreatedOn         time.Time         `json:"created_on"`
	CompletedOn       *time.Time        `json:"completed_on,omitempty"`
}

// CheckoutRequest starts an online gift
type CheckoutRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"gte=100,lte=10000000"`
	Currency    string `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	Fund        string `json:"fund" validate:"required,oneof=general missions building benevolence"`
	Frequency   string `json:"frequency" validate:"required,oneof=one_time monthly"`
	Note        string `json:"note,omitempty" validate:"max=500"`
}

// Validate validates the checkout request
func (r *CheckoutRequest) Validate() []FieldError {
	return ValidateStruct(r)
}

// NormalizedCurrency returns the lowercase ISO code, or fallback when unset
func (r *CheckoutRequest) NormalizedCurrency(fallback string) string {
	if r.Currency == "" {
		return strings.ToLower(fallback)
	}
	return strings.ToLower(r.Currency)
}

// CheckoutResult is returned to the client to redirect into hosted checkout
type CheckoutResult struct {
	Donation    *Donation `json:"donation"`
	CheckoutURL string    `json:"checkout_url"`
}

// RecordDonationRequest is staff entering an offline gift
type RecordDonationRequest struct {
	MemberID    *string `json:"member_id,omitempty"`
	AmountCents int64   `json:"amount_cents" validate:"gte=100,lte=10000000"`
	Currency    string  `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	Fund        string  `json:"fund" validate:"required,oneof=general missions building benevolence"`
	Method      string  `json:"method" validate:"required,oneof=cash check"`
	Note        string  `json:"note,omitempty" validate:"max=500"`
	ReceivedOn  *string `json:"received_on,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// Validate validates the offline gift
func (r *RecordDonationRequest) Validate() []FieldError {
	return ValidateStruct(r)
}

// UpdateDonationStatusRequest is an admin correcting a gift's status
type UpdateDonationStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending completed failed refunded"`
	Note   string `json:"note,omitempty" validate:"max=500"`
}

// Validate validates the status change
func (r *UpdateDonationStatusRequest) Validate() []FieldError {
	return ValidateStruct(r)
}

// GivingSummary totals a member's completed gifts for one year
type GivingSummary struct {
	Year           int    `json:"year"`
	TotalCents     int64  `json:"total_cents"`
	TotalFormatted string `json:"total_formatted"`
	GiftCount      int    `json:"gift_count"`
}

// GivingHistory is a page of gifts plus the year-to-date summary
type GivingHistory struct {
	Summary   GivingSummary `json:"summary"`
	Donations []*Donation   `json:"donations"`
}
