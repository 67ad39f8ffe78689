// Package fixtures provides test data factories for e2e testing.
//
// Each factory method creates entities with sensible defaults while allowing
// customization via option functions. Factories insert through the real
// repositories and return fully populated models.
//
// Usage:
//
//	f := fixtures.New(tdb.DB)
//	pastor := f.CreateStaff(t)
//	opp := f.CreateOpportunity(t, pastor)
//	shift := f.CreateShift(t, opp, fixtures.WithSlots(1))
package fixtures

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/model"
	"github.com/forgo/shepherd/api/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the password every fixture user signs in with
const DefaultPassword = "testpass123"

// Factory creates test entities in the database
type Factory struct {
	db database.Database

	users     *repository.UserRepository
	donations *repository.DonationRepository
	prayers   *repository.PrayerRepository
	events    *repository.EventRepository
	volunteer *repository.VolunteerRepository
	leads     *repository.LeadRepository
	audit     *repository.AuditRepository
}

// New creates a new fixture factory
func New(db database.Database) *Factory {
	return &Factory{
		db:        db,
		users:     repository.NewUserRepository(db),
		donations: repository.NewDonationRepository(db),
		prayers:   repository.NewPrayerRepository(db),
		events:    repository.NewEventRepository(db),
		volunteer: repository.NewVolunteerRepository(db),
		leads:     repository.NewLeadRepository(db),
		audit:     repository.NewAuditRepository(db),
	}
}

// randomID generates a random hex ID
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// ctx returns a context that is cancelled when the test ends
func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return c
}

// ============================================================================
// User Fixtures
// ============================================================================

// UserOpts customizes user creation
type UserOpts struct {
	Email     string
	Firstname string
	Lastname  string
	Password  string
	Role      model.UserRole
}

// CreateUser creates a member with optional customizations
func (f *Factory) CreateUser(t *testing.T, opts ...func(*UserOpts)) *model.User {
	t.Helper()

	o := &UserOpts{
		Email:     fmt.Sprintf("member_%s@test.local", randomID()),
		Firstname: "Test",
		Lastname:  "Member",
		Password:  DefaultPassword,
		Role:      model.UserRoleMember,
	}
	for _, fn := range opts {
		fn(o)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(o.Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("fixtures: failed to hash password: %v", err)
	}
	h := string(hash)

	user := &model.User{
		Email:         o.Email,
		Hash:          &h,
		Firstname:     &o.Firstname,
		Lastname:      &o.Lastname,
		Role:          o.Role,
		EmailVerified: true,
	}
	if err := f.users.Create(ctx(t), user); err != nil {
		t.Fatalf("fixtures: failed to create user: %v", err)
	}
	user.Hash = nil // Don't expose hash in fixture
	return user
}

// CreateStaff creates a staff user
func (f *Factory) CreateStaff(t *testing.T) *model.User {
	return f.CreateUser(t, func(o *UserOpts) {
		o.Role = model.UserRoleStaff
	})
}

// CreateAdmin creates an admin user
func (f *Factory) CreateAdmin(t *testing.T) *model.User {
	return f.CreateUser(t, func(o *UserOpts) {
		o.Role = model.UserRoleAdmin
	})
}

// ============================================================================
// Giving Fixtures
// ============================================================================

// DonationOpts customizes donation creation
type DonationOpts struct {
	AmountCents int64
	Fund        model.DonationFund
	Status      model.DonationStatus
	CreatedOn   time.Time
}

// WithAmount sets the gift amount in cents
func WithAmount(cents int64) func(*DonationOpts) {
	return func(o *DonationOpts) { o.AmountCents = cents }
}

// WithGivenOn backdates the gift
func WithGivenOn(at time.Time) func(*DonationOpts) {
	return func(o *DonationOpts) { o.CreatedOn = at }
}

// CreateDonation records a completed cash gift for the member
func (f *Factory) CreateDonation(t *testing.T, member *model.User, opts ...func(*DonationOpts)) *model.Donation {
	t.Helper()

	o := &DonationOpts{
		AmountCents: 5000,
		Fund:        model.FundGeneral,
		Status:      model.DonationCompleted,
	}
	for _, fn := range opts {
		fn(o)
	}

	d := &model.Donation{
		MemberID:    &member.ID,
		AmountCents: o.AmountCents,
		Currency:    "usd",
		Fund:        o.Fund,
		Frequency:   model.FrequencyOneTime,
		Method:      model.MethodCash,
		Status:      o.Status,
		CreatedOn:   o.CreatedOn,
	}
	if err := f.donations.Create(ctx(t), d); err != nil {
		t.Fatalf("fixtures: failed to create donation: %v", err)
	}
	return d
}

// ============================================================================
// Prayer Fixtures
// ============================================================================

// PrayerOpts customizes prayer request creation
type PrayerOpts struct {
	Title      string
	Body       string
	Visibility model.PrayerVisibility
	Anonymous  bool
}

// CreatePrayer creates an active prayer request by author
func (f *Factory) CreatePrayer(t *testing.T, author *model.User, opts ...func(*PrayerOpts)) *model.PrayerRequest {
	t.Helper()

	o := &PrayerOpts{
		Title:      fmt.Sprintf("Prayer %s", randomID()),
		Body:       "Please pray with us",
		Visibility: model.PrayerMembers,
	}
	for _, fn := range opts {
		fn(o)
	}

	p := &model.PrayerRequest{
		AuthorID:   &author.ID,
		Title:      o.Title,
		Body:       &o.Body,
		Visibility: o.Visibility,
		Anonymous:  o.Anonymous,
	}
	if err := f.prayers.Create(ctx(t), p); err != nil {
		t.Fatalf("fixtures: failed to create prayer request: %v", err)
	}
	return p
}

// ============================================================================
// Event Fixtures
// ============================================================================

// EventOpts customizes event creation
type EventOpts struct {
	Title     string
	Category  string
	StartTime time.Time
	Duration  time.Duration
	Capacity  int
}

// WithCapacity caps the number of going RSVPs
func WithCapacity(n int) func(*EventOpts) {
	return func(o *EventOpts) { o.Capacity = n }
}

// CreateEvent creates an event starting tomorrow
func (f *Factory) CreateEvent(t *testing.T, creator *model.User, opts ...func(*EventOpts)) *model.Event {
	t.Helper()

	o := &EventOpts{
		Title:     fmt.Sprintf("Event %s", randomID()),
		Category:  model.EventCategoryFellow,
		StartTime: time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second),
		Duration:  2 * time.Hour,
	}
	for _, fn := range opts {
		fn(o)
	}

	e := &model.Event{
		Title:     o.Title,
		Category:  o.Category,
		StartTime: o.StartTime,
		EndTime:   o.StartTime.Add(o.Duration),
		Capacity:  o.Capacity,
		CreatedBy: creator.ID,
	}
	if err := f.events.Create(ctx(t), e); err != nil {
		t.Fatalf("fixtures: failed to create event: %v", err)
	}
	return e
}

// ============================================================================
// Volunteer Fixtures
// ============================================================================

// CreateOpportunity creates an active volunteer opportunity
func (f *Factory) CreateOpportunity(t *testing.T, creator *model.User) *model.Opportunity {
	t.Helper()

	o := &model.Opportunity{
		Title:     fmt.Sprintf("Serve %s", randomID()),
		Ministry:  "hospitality",
		CreatedBy: creator.ID,
	}
	if err := f.volunteer.CreateOpportunity(ctx(t), o); err != nil {
		t.Fatalf("fixtures: failed to create opportunity: %v", err)
	}
	return o
}

// ShiftOpts customizes shift creation
type ShiftOpts struct {
	Slots     int
	StartTime time.Time
}

// WithSlots sets slots_available
func WithSlots(n int) func(*ShiftOpts) {
	return func(o *ShiftOpts) { o.Slots = n }
}

// WithShiftStart sets the shift start time
func WithShiftStart(at time.Time) func(*ShiftOpts) {
	return func(o *ShiftOpts) { o.StartTime = at }
}

// CreateShift adds a two hour shift to the opportunity
func (f *Factory) CreateShift(t *testing.T, opp *model.Opportunity, opts ...func(*ShiftOpts)) *model.Shift {
	t.Helper()

	o := &ShiftOpts{
		Slots:     3,
		StartTime: time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second),
	}
	for _, fn := range opts {
		fn(o)
	}

	s := &model.Shift{
		OpportunityID:  opp.ID,
		StartTime:      o.StartTime,
		EndTime:        o.StartTime.Add(2 * time.Hour),
		SlotsAvailable: o.Slots,
	}
	if err := f.volunteer.CreateShift(ctx(t), s); err != nil {
		t.Fatalf("fixtures: failed to create shift: %v", err)
	}
	return s
}

// ============================================================================
// Lead and Audit Fixtures
// ============================================================================

// CreateLead records a connect card from the website
func (f *Factory) CreateLead(t *testing.T, name string) *model.Lead {
	t.Helper()

	email := fmt.Sprintf("visitor_%s@test.local", randomID())
	l := &model.Lead{
		Name:      name,
		Email:     &email,
		Source:    model.LeadSourceWebsite,
		Interests: []string{"small groups"},
	}
	if err := f.leads.Create(ctx(t), l); err != nil {
		t.Fatalf("fixtures: failed to create lead: %v", err)
	}
	return l
}

// CreateAuditEntry writes an audit row attributed to actor
func (f *Factory) CreateAuditEntry(t *testing.T, actor *model.User, action, resourceType, resourceID string) *model.AuditEntry {
	t.Helper()

	e := &model.AuditEntry{
		ActorID:      actor.ID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
	if err := f.audit.Create(ctx(t), e); err != nil {
		t.Fatalf("fixtures: failed to create audit entry: %v", err)
	}
	return e
}
