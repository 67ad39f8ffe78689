// Package model defines domain entities and request types for the Shepherd API.
//
// Models are shared by every layer. Entities carry json tags for the API
// surface; fields that must never leave the server (password hashes) use
// `json:"-"`.
//
// # Domain Entities
//
//   - User: a member account with role, profile and directory settings
//   - Donation: a gift with fund, frequency and checkout status
//   - PrayerRequest and PrayerPartner: the prayer wall and matched partners
//   - Event and RSVP: the calendar with optional capacity
//   - Opportunity, Shift and Signup: volunteer scheduling
//   - ReadingPlan and ReadingProgress
//   - Achievement and UserAchievement
//   - Notification, AuditEntry, Lead
//   - EmailTemplate and EmailCampaign
//
// # Validation
//
// Request types implement Validate() []FieldError. Most declare their rules
// as go-playground/validator struct tags and delegate to ValidateStruct,
// which reports fields by their json name. Cross-field rules that tags
// cannot express are appended by hand.
//
//	type RSVPRequest struct {
//	    Status string `json:"status" validate:"required,oneof=going maybe not_going"`
//	}
//
// # Pagination
//
// PageRequest carries 1-based page and limit; Page[T] carries the rows and
// total so handlers can report has_more.
//
// # Error Types
//
// RFC 9457 Problem Details errors are defined in errors.go.
package model
