package model

// Dashboard is the member home screen
type Dashboard struct {
	Profile             *User              `json:"profile"`
	Giving              GivingSummary      `json:"giving"`
	UpcomingEvents      []*Event           `json:"upcoming_events"`
	ActivePrayers       int                `json:"active_prayers"`
	UnreadNotifications int                `json:"unread_notifications"`
	AchievementCount    int                `json:"achievement_count"`
	ReadingPlans        []*ReadingProgress `json:"reading_plans"`
	UpcomingShifts      []*SignupDetail    `json:"upcoming_shifts"`
}

// Dashboard list sizes
const (
	DashboardEventLimit = 5
	DashboardShiftLimit = 5
)
