package model

import "time"

// NotificationKind categorizes in-app notifications
type NotificationKind string

const (
	NotifyEventReminder  NotificationKind = "event_reminder"
	NotifyShiftReminder  NotificationKind = "shift_reminder"
	NotifyPrayerPartner  NotificationKind = "prayer_partner"
	NotifyPrayerAnswered NotificationKind = "prayer_answered"
	NotifyAchievement    NotificationKind = "achievement"
	NotifyDonation       NotificationKind = "donation"
	NotifyAnnouncement   NotificationKind = "announcement"
)

// Notification is a message in a member's inbox
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Link      *string          `json:"link,omitempty"`
	Read      bool             `json:"read"`
	CreatedOn time.Time        `json:"created_on"`
	ReadOn    *time.Time       `json:"read_on,omitempty"`
}

// NotificationQuery filters the inbox
type NotificationQuery struct {
	UnreadOnly bool
	PageRequest
}

// DueReminder is an RSVP or shift signup whose start time is close enough
// to warrant a reminder. TargetID is the event or shift.
type DueReminder struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TargetID  string    `json:"target_id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
}
