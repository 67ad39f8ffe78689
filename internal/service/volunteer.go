package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/model"
)

// VolunteerRepository defines opportunity, shift and signup storage
type VolunteerRepository interface {
	CreateOpportunity(ctx context.Context, o *model.Opportunity) error
	GetOpportunity(ctx context.Context, id string) (*model.Opportunity, error)
	UpdateOpportunity(ctx context.Context, id string, updates map[string]interface{}) (*model.Opportunity, error)
	ListOpportunities(ctx context.Context, q model.OpportunityQuery) (*model.Page[*model.Opportunity], error)
	CreateShift(ctx context.Context, s *model.Shift) error
	GetShift(ctx context.Context, id string) (*model.Shift, error)
	ListUpcomingShifts(ctx context.Context, opportunityIDs []string, now time.Time) ([]*model.Shift, error)
	SignUp(ctx context.Context, shiftID, userID string, now time.Time) (*model.Signup, error)
	Cancel(ctx context.Context, shiftID, userID string) (bool, error)
	SignedUpShifts(ctx context.Context, userID string, shiftIDs []string) (map[string]bool, error)
	ListUpcomingSignups(ctx context.Context, userID string, now time.Time, page model.PageRequest) (*model.Page[*model.SignupDetail], error)
}

// VolunteerService handles serving opportunities and shift signups
type VolunteerService struct {
	repo         VolunteerRepository
	achievements AchievementChecker
	auditor      Auditor
	now          func() time.Time
}

// VolunteerServiceConfig holds configuration for the volunteer service
type VolunteerServiceConfig struct {
	Repo         VolunteerRepository
	Achievements AchievementChecker
	Auditor      Auditor
	Now          func() time.Time
}

// NewVolunteerService creates a new volunteer service
func NewVolunteerService(cfg VolunteerServiceConfig) *VolunteerService {
	if cfg.Auditor == nil {
		cfg.Auditor = noopAuditor{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &VolunteerService{
		repo:         cfg.Repo,
		achievements: cfg.Achievements,
		auditor:      cfg.Auditor,
		now:          cfg.Now,
	}
}

// CreateOpportunity lists a new way to serve
func (s *VolunteerService) CreateOpportunity(ctx context.Context, actorID string, req *model.CreateOpportunityRequest) (*model.Opportunity, error) {
	o := &model.Opportunity{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Ministry:    strings.TrimSpace(req.Ministry),
		Location:    req.Location,
		Active:      true,
		CreatedBy:   actorID,
	}
	if err := s.repo.CreateOpportunity(ctx, o); err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, actorID, model.AuditOpportunityCreate, "volunteer_opportunity", o.ID, map[string]interface{}{
		"title":    o.Title,
		"ministry": o.Ministry,
	})
	return o, nil
}

// UpdateOpportunity edits an opportunity or toggles whether it is active
func (s *VolunteerService) UpdateOpportunity(ctx context.Context, actorID, id string, req *model.UpdateOpportunityRequest) (*model.Opportunity, error) {
	o, err := s.opportunity(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Ministry != nil {
		updates["ministry"] = strings.TrimSpace(*req.Ministry)
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if len(updates) == 0 {
		return o, nil
	}

	updated, err := s.repo.UpdateOpportunity(ctx, id, updates)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrOpportunityNotFound
	}
	fields := make([]string, 0, len(updates))
	for k := range updates {
		fields = append(fields, k)
	}
	s.auditor.Record(ctx, actorID, model.AuditOpportunityUpdate, "volunteer_opportunity", id, map[string]interface{}{"fields": fields})
	return updated, nil
}

// AddShift adds a time slot to an active opportunity
func (s *VolunteerService) AddShift(ctx context.Context, actorID, opportunityID string, req *model.CreateShiftRequest) (*model.Shift, error) {
	o, err := s.opportunity(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	if !o.Active {
		return nil, ErrOpportunityInactive
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, ErrInvalidTimes
	}
	if req.SlotsAvailable < 1 {
		return nil, ErrInvalidInput
	}

	shift := &model.Shift{
		OpportunityID:  opportunityID,
		StartTime:      req.StartTime.UTC(),
		EndTime:        req.EndTime.UTC(),
		SlotsAvailable: req.SlotsAvailable,
	}
	if err := s.repo.CreateShift(ctx, shift); err != nil {
		return nil, err
	}
	s.auditor.Record(ctx, actorID, model.AuditShiftCreate, "volunteer_shift", shift.ID, map[string]interface{}{
		"opportunity_id":  opportunityID,
		"slots_available": shift.SlotsAvailable,
	})
	return shift, nil
}

// ListOpportunities returns active opportunities, each with its upcoming
// shifts, open slots and whether the caller already signed up
func (s *VolunteerService) ListOpportunities(ctx context.Context, userID string, q model.OpportunityQuery) (*model.Page[*model.OpportunityWithShifts], error) {
	page, err := s.repo.ListOpportunities(ctx, q)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(page.Items))
	for _, o := range page.Items {
		ids = append(ids, o.ID)
	}
	views, err := s.shiftViews(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	out := &model.Page[*model.OpportunityWithShifts]{Total: page.Total, PageRequest: page.PageRequest}
	out.Items = make([]*model.OpportunityWithShifts, 0, len(page.Items))
	for _, o := range page.Items {
		shifts := views[o.ID]
		if shifts == nil {
			shifts = []*model.ShiftView{}
		}
		out.Items = append(out.Items, &model.OpportunityWithShifts{Opportunity: o, Shifts: shifts})
	}
	return out, nil
}

// GetOpportunity returns one opportunity with its upcoming shifts
func (s *VolunteerService) GetOpportunity(ctx context.Context, userID, id string) (*model.OpportunityWithShifts, error) {
	o, err := s.opportunity(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.shiftViews(ctx, userID, []string{id})
	if err != nil {
		return nil, err
	}
	shifts := views[id]
	if shifts == nil {
		shifts = []*model.ShiftView{}
	}
	return &model.OpportunityWithShifts{Opportunity: o, Shifts: shifts}, nil
}

func (s *VolunteerService) shiftViews(ctx context.Context, userID string, opportunityIDs []string) (map[string][]*model.ShiftView, error) {
	out := make(map[string][]*model.ShiftView, len(opportunityIDs))
	if len(opportunityIDs) == 0 {
		return out, nil
	}

	shifts, err := s.repo.ListUpcomingShifts(ctx, opportunityIDs, s.now())
	if err != nil {
		return nil, err
	}
	shiftIDs := make([]string, 0, len(shifts))
	for _, sh := range shifts {
		shiftIDs = append(shiftIDs, sh.ID)
	}

	signedUp := map[string]bool{}
	if userID != "" && len(shiftIDs) > 0 {
		signedUp, err = s.repo.SignedUpShifts(ctx, userID, shiftIDs)
		if err != nil {
			return nil, err
		}
	}

	for _, sh := range shifts {
		out[sh.OpportunityID] = append(out[sh.OpportunityID], &model.ShiftView{
			Shift:     sh,
			OpenSlots: sh.OpenSlots(),
			SignedUp:  signedUp[sh.ID],
		})
	}
	return out, nil
}

// SignUp commits the caller to a shift. The capacity check and the slot
// increment happen in one transaction; a full shift yields a *CapacityError
// wrapping ErrShiftFull.
func (s *VolunteerService) SignUp(ctx context.Context, userID, shiftID string) (*model.Signup, error) {
	shift, err := s.shift(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	o, err := s.opportunity(ctx, shift.OpportunityID)
	if err != nil {
		return nil, err
	}
	if !o.Active {
		return nil, ErrOpportunityInactive
	}

	now := s.now()
	if !shift.StartTime.After(now) {
		return nil, ErrShiftStarted
	}
	if shift.IsFull() {
		return nil, fullShift(shift)
	}

	signup, err := s.repo.SignUp(ctx, shiftID, userID, now)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			return nil, ErrShiftNotFound
		case errors.Is(err, database.ErrDuplicate):
			return nil, ErrAlreadySignedUp
		case errors.Is(err, database.ErrCapacity):
			return nil, s.signupRejected(ctx, shift, now)
		}
		return nil, err
	}

	if s.achievements != nil {
		s.achievements.Check(ctx, userID)
	}
	return signup, nil
}

// signupRejected tells a shift that filled up from one that started while
// the transaction was in flight
func (s *VolunteerService) signupRejected(ctx context.Context, shift *model.Shift, now time.Time) error {
	fresh, err := s.repo.GetShift(ctx, shift.ID)
	if err == nil && fresh != nil {
		shift = fresh
	}
	if !shift.StartTime.After(now) {
		return ErrShiftStarted
	}
	if shift.SlotsFilled < shift.SlotsAvailable {
		shift.SlotsFilled = shift.SlotsAvailable
	}
	return fullShift(shift)
}

func fullShift(shift *model.Shift) error {
	return &CapacityError{
		Resource: "shift",
		Limit:    shift.SlotsAvailable,
		Current:  shift.SlotsFilled,
		Err:      ErrShiftFull,
	}
}

// CancelSignup releases the caller's slot
func (s *VolunteerService) CancelSignup(ctx context.Context, userID, shiftID string) error {
	if _, err := s.shift(ctx, shiftID); err != nil {
		return err
	}
	existed, err := s.repo.Cancel(ctx, shiftID, userID)
	if err != nil {
		return err
	}
	if !existed {
		return ErrSignupNotFound
	}
	return nil
}

// MySignups returns the caller's upcoming shifts
func (s *VolunteerService) MySignups(ctx context.Context, userID string, page model.PageRequest) (*model.Page[*model.SignupDetail], error) {
	return s.repo.ListUpcomingSignups(ctx, userID, s.now(), page)
}

func (s *VolunteerService) opportunity(ctx context.Context, id string) (*model.Opportunity, error) {
	o, err := s.repo.GetOpportunity(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOpportunityNotFound
	}
	return o, nil
}

func (s *VolunteerService) shift(ctx context.Context, id string) (*model.Shift, error) {
	sh, err := s.repo.GetShift(ctx, id)
	if err != nil {
		return nil, err
	}
	if sh == nil {
		return nil, ErrShiftNotFound
	}
	return sh, nil
}
