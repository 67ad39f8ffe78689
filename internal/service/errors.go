package service

import "errors"

// Centralized service layer errors.
// All errors returned by service methods are defined here for consistency
// and to make error handling in handlers predictable.

// ===== Authentication Errors =====
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong    = errors.New("password must be at most 128 characters")
	ErrPasswordTooWeak    = errors.New("password must contain a letter and a digit")
	ErrInvalidEmail       = errors.New("invalid email format")
)

// ===== Token Errors =====
var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
)

// ===== Authorization Errors =====
var (
	ErrForbidden   = errors.New("not authorized to perform this action")
	ErrInvalidRole = errors.New("invalid role")
)

// ===== Donation Errors =====
var (
	ErrDonationNotFound    = errors.New("donation not found")
	ErrInvalidAmount       = errors.New("donation amount out of range")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrPaymentsUnavailable = errors.New("online giving is not configured")
	ErrPaymentProvider     = errors.New("payment provider error")
	ErrInvalidWebhook      = errors.New("invalid webhook signature")
)

// ===== Prayer Errors =====
var (
	ErrPrayerNotFound   = errors.New("prayer request not found")
	ErrNotPrayerAuthor  = errors.New("only the author can change this request")
	ErrAlreadyPrayed    = errors.New("already prayed for this request")
	ErrPrayerNotActive  = errors.New("prayer request is not active")
	ErrNoPartnerMatches = errors.New("no prayer partners available")
)

// ===== Event Errors =====
var (
	ErrEventNotFound  = errors.New("event not found")
	ErrRSVPNotFound   = errors.New("RSVP not found")
	ErrEventFull      = errors.New("event is full")
	ErrEventCancelled = errors.New("event is cancelled")
	ErrEventStarted   = errors.New("event has already started")
	ErrInvalidTimes   = errors.New("end time must be after start time")
)

// ===== Achievement Errors =====
var (
	ErrAchievementNotFound = errors.New("achievement not found")
)

// ===== Notification Errors =====
var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// ===== Reading Plan Errors =====
var (
	ErrReadingPlanNotFound = errors.New("reading plan not found")
	ErrAlreadyEnrolled     = errors.New("already enrolled in this plan")
	ErrNotEnrolled         = errors.New("not enrolled in this plan")
	ErrInvalidDay          = errors.New("day is not part of this plan")
)

// ===== Volunteer Errors =====
var (
	ErrOpportunityNotFound = errors.New("volunteer opportunity not found")
	ErrShiftNotFound       = errors.New("shift not found")
	ErrShiftStarted        = errors.New("shift has already started")
	ErrShiftFull           = errors.New("shift is full")
	ErrAlreadySignedUp     = errors.New("already signed up for this shift")
	ErrSignupNotFound      = errors.New("signup not found")
	ErrOpportunityInactive = errors.New("volunteer opportunity is not active")
)

// ===== Lead Errors =====
var (
	ErrLeadNotFound = errors.New("lead not found")
)

// ===== Email Errors =====
var (
	ErrTemplateNotFound  = errors.New("email template not found")
	ErrTemplateKeyExists = errors.New("a template with this key already exists")
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrCampaignNotDraft  = errors.New("campaign has already been sent")
	ErrNoRecipients      = errors.New("audience has no recipients")
)

// ===== AI Errors =====
var (
	ErrAIUnavailable = errors.New("AI features are not configured")
	ErrAIUpstream    = errors.New("AI provider error")
)

// ===== Validation Errors =====
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidFilter = errors.New("invalid filter")
	ErrInvalidWindow = errors.New("days must be between 7 and 365")
)

// CapacityError is returned when a bounded resource is full. It matches
// the sentinel it wraps with errors.Is and carries the numbers for the
// problem response.
type CapacityError struct {
	Resource string
	Limit    int
	Current  int
	Err      error
}

func (e *CapacityError) Error() string {
	return e.Err.Error()
}

func (e *CapacityError) Unwrap() error {
	return e.Err
}
