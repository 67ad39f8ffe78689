package model

import (
	"fmt"
	"time"
)

// ReadingDay is one day's passages in a plan
type ReadingDay struct {
	Day      int      `json:"day" validate:"gte=1"`
	Passages []string `json:"passages" validate:"required,min=1,dive,required,max=100"`
}

// ReadingPlan is a multi-day scripture reading schedule
type ReadingPlan struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	Days        []ReadingDay `json:"days"`
	CreatedBy   string       `json:"created_by"`
	CreatedOn   time.Time    `json:"created_on"`
}

// HasDay reports whether the plan defines day n
func (p *ReadingPlan) HasDay(n int) bool {
	for _, d := range p.Days {
		if d.Day == n {
			return true
		}
	}
	return false
}

// ReadingProgress tracks one member's enrollment in a plan
type ReadingProgress struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	PlanID        string     `json:"plan_id"`
	PlanTitle     string     `json:"plan_title,omitempty"`
	TotalDays     int        `json:"total_days"`
	CompletedDays []int      `json:"completed_days"`
	Percent       float64    `json:"percent"`
	StartedOn     time.Time  `json:"started_on"`
	CompletedOn   *time.Time `json:"completed_on,omitempty"`
}

// HasCompleted reports whether day n was already marked complete
func (p *ReadingProgress) HasCompleted(n int) bool {
	for _, d := range p.CompletedDays {
		if d == n {
			return true
		}
	}
	return false
}

// ComputePercent sets Percent from completed and total days, rounded to one decimal
func (p *ReadingProgress) ComputePercent() {
	if p.TotalDays == 0 {
		p.Percent = 0
		return
	}
	pct := float64(len(p.CompletedDays)) / float64(p.TotalDays) * 100
	p.Percent = float64(int(pct*10+0.5)) / 10
}

// CreateReadingPlanRequest represents staff publishing a plan
type CreateReadingPlanRequest struct {
	Title       string       `json:"title" validate:"required,max=200"`
	Description *string      `json:"description,omitempty" validate:"omitempty,max=2000"`
	Days        []ReadingDay `json:"days" validate:"required,min=1,max=366,dive"`
}

// Validate validates the plan; day numbers must be unique
func (r *CreateReadingPlanRequest) Validate() []FieldError {
	errs := ValidateStruct(r)
	seen := make(map[int]bool, len(r.Days))
	for i, d := range r.Days {
		if seen[d.Day] {
			errs = append(errs, FieldError{Field: fmt.Sprintf("days[%d].day", i), Message: "day numbers must be unique"})
		}
		seen[d.Day] = true
	}
	return errs
}
