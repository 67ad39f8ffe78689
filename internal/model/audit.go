package model

import "time"

// Audit actions recorded for admin mutations
const (
	AuditMemberRole          = "member.role"
	AuditAchievementAward    = "achievement.award"
	AuditDonationRecord      = "donation.record"
	AuditDonationStatus      = "donation.status"
	AuditPrayerStatus        = "prayer.status"
	AuditPrayerDelete        = "prayer.delete"
	AuditPrayerMatch         = "prayer.match"
	AuditEventCreate         = "event.create"
	AuditEventUpdate         = "event.update"
	AuditEventCancel         = "event.cancel"
	AuditOpportunityCreate   = "volunteer.opportunity.create"
	AuditOpportunityUpdate   = "volunteer.opportunity.update"
	AuditShiftCreate         = "volunteer.shift.create"
	AuditReadingPlanCreate   = "reading_plan.create"
	AuditReadingPlanDelete   = "reading_plan.delete"
	AuditLeadUpdate          = "lead.update"
	AuditLeadScore           = "lead.score"
	AuditEmailTemplateSave   = "email.template.save"
	AuditEmailTemplateDelete = "email.template.delete"
	AuditEmailSend           = "email.send"
)

// AuditEntry records one privileged change
type AuditEntry struct {
	ID           string                 `json:"id"`
	ActorID      string                 `json:"actor_id"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id"`
	Detail       map[string]interface{} `json:"detail,omitempty"`
	IP           *string                `json:"ip,omitempty"`
	CreatedOn    time.Time              `json:"created_on"`
}

// ListQuery is a page plus an optional AIP-160 filter expression
type ListQuery struct {
	Filter string
	PageRequest
}
