package model

import "time"

// Achievement keys awarded automatically
const (
	AchievementFirstGift        = "first_gift"
	AchievementPrayerWarrior    = "prayer_warrior"
	AchievementFaithfulAttender = "faithful_attender"
	AchievementServantHeart     = "servant_heart"
	AchievementReader           = "reader"
)

// Thresholds for count-based achievements
const (
	PrayerWarriorThreshold    = 10
	FaithfulAttenderThreshold = 5
)

// Achievement is an entry in the badge catalog
type Achievement struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// UserAchievement records a badge earned by a member
type UserAchievement struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	Achievement *Achievement `json:"achievement"`
	AwardedOn   time.Time    `json:"awarded_on"`
}

// AwardAchievementRequest is an admin granting a badge by key
type AwardAchievementRequest struct {
	Key string `json:"key" validate:"required,max=50"`
}

// Validate validates the award
func (r *AwardAchievementRequest) Validate() []FieldError {
	return ValidateStruct(r)
}

// ActivityCounts are the per-member totals achievements are evaluated against
type ActivityCounts struct {
	CompletedGifts   int
	PrayersPrayed    int
	GoingRSVPs       int
	VolunteerSignups int
	PlansCompleted   int
}

// EarnedKeys lists every achievement key the counts qualify for
func (c ActivityCounts) EarnedKeys() []string {
	var keys []string
	if c.CompletedGifts >= 1 {
		keys = append(keys, AchievementFirstGift)
	}
	if c.PrayersPrayed >= PrayerWarriorThreshold {
		keys = append(keys, AchievementPrayerWarrior)
	}
	if c.GoingRSVPs >= FaithfulAttenderThreshold {
		keys = append(keys, AchievementFaithfulAttender)
	}
	if c.VolunteerSignups >= 1 {
		keys = append(keys, AchievementServantHeart)
	}
	if c.PlansCompleted >= 1 {
		keys = append(keys, AchievementReader)
	}
	return keys
}
