package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	mrand "math/rand/v2"
	"strings"
	"time"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/model"

	"golang.org/x/crypto/bcrypt"
)

// SeedPassword is the password every seeded member signs in with
const SeedPassword = "shepherd-seed"

const defaultSeedPrefix = "seed_"

// SeederService fills a development database with a demo congregation.
// Every row it writes carries a prefix in a text field so Cleanup can find
// it again.
type SeederService struct {
	db  database.Database
	now func() time.Time
}

func NewSeederService(db database.Database) *SeederService {
	return &SeederService{db: db, now: time.Now}
}

type SeedMembersRequest struct {
	Count int `json:"count"`
	// Staff is how many of Count get the staff role
	Staff  int    `json:"staff,omitempty"`
	Prefix string `json:"prefix,omitempty"`
}

type SeedEventsRequest struct {
	Count     int    `json:"count"`
	CreatedBy string `json:"created_by"`
	Prefix    string `json:"prefix,omitempty"`
}

// SeedVolunteerRequest creates Opportunities, each with its own shifts
type SeedVolunteerRequest struct {
	Opportunities        int    `json:"opportunities"`
	ShiftsPerOpportunity int    `json:"shifts_per_opportunity,omitempty"`
	SlotsPerShift        int    `json:"slots_per_shift,omitempty"`
	CreatedBy            string `json:"created_by"`
	Prefix               string `json:"prefix,omitempty"`
}

type SeedPrayersRequest struct {
	Count     int      `json:"count"`
	AuthorIDs []string `json:"author_ids"`
	Prefix    string   `json:"prefix,omitempty"`
}

// SeedResult lists the record ids a seeding run created
type SeedResult struct {
	Created  int      `json:"created"`
	IDs      []string `json:"ids"`
	Duration int64    `json:"duration_ms"`
}

type CleanupResult struct {
	Deleted  int   `json:"deleted"`
	Duration int64 `json:"duration_ms"`
}

var (
	seedFirstNames = []string{
		"Ruth", "Samuel", "Hannah", "Caleb", "Naomi", "Elijah", "Miriam", "Isaac",
		"Esther", "Joshua", "Lydia", "Gideon", "Abigail", "Nathan", "Deborah", "Silas",
		"Priscilla", "Micah", "Phoebe", "Jonah", "Tabitha", "Levi", "Martha", "Boaz",
	}
	seedLastNames = []string{
		"Okafor", "Lindqvist", "Nakamura", "Alvarez", "Brennan", "Haddad", "Kowalski",
		"Mensah", "Osei", "Petrov", "Quinn", "Reyes", "Sato", "Thibault", "Underwood",
		"Varga", "Whitfield", "Yamada", "Zimmer", "Castellano", "Delacroix", "Ferreira",
	}
	seedMinistries = []string{
		"worship", "children", "youth", "hospitality", "outreach", "prayer", "media",
	}
	seedEvents = []struct {
		title, category, location string
	}{
		{"Sunday Worship", model.EventCategoryWorship, "Sanctuary"},
		{"Wednesday Bible Study", model.EventCategoryClass, "Fellowship Hall"},
		{"Community Potluck", model.EventCategoryFellow, "Fellowship Hall"},
		{"Food Pantry Drive", model.EventCategoryOutreach, "Parking Lot"},
		{"Youth Night", model.EventCategoryYouth, "Youth Room"},
		{"Men's Breakfast", model.EventCategoryFellow, "Cafe"},
		{"Women's Retreat", model.EventCategoryFellow, "Camp Cedar"},
		{"Membership Class", model.EventCategoryClass, "Room 104"},
	}
	seedOpportunities = []string{
		"Greeter Team", "Nursery Volunteers", "Sound Booth", "Coffee Bar",
		"Parking Team", "Food Pantry Sorting", "Setup Crew", "Prayer Team",
	}
	seedPrayerTitles = []string{
		"Healing for my mother", "New job search", "Safe travels this week",
		"Peace in our family", "Upcoming surgery", "Wisdom for a big decision",
		"Strength for caregivers", "Our neighbors in need",
	}
	seedCapacities   = []int{0, 25, 50, 120}
	seedVisibilities = []model.PrayerVisibility{model.PrayerPublic, model.PrayerMembers, model.PrayerPrivate}
)

const (
	seedMemberFields = `email = $email, hash = $hash, firstname = $firstname, lastname = $lastname,
		role = $role, ministries = [$ministry], directory_visible = $visible, show_contact = false,
		prayer_partner = $partner, email_verified = true, created_on = time::now(), updated_on = time::now()`

	seedEventFields = `title = $title, location = $location, category = $category,
		start_time = <datetime>$start_time, end_time = <datetime>$end_time, capacity = $capacity,
		going_count = 0, cancelled = false, created_by = type::record($created_by),
		created_on = time::now(), updated_on = time::now()`

	seedOpportunityFields = `title = $title, ministry = $ministry, active = true,
		created_by = type::record($created_by), created_on = time::now(), updated_on = time::now()`

	seedShiftFields = `opportunity_id = type::record($opportunity), start_time = <datetime>$start_time,
		end_time = <datetime>$end_time, slots_available = $slots, slots_filled = 0, created_on = time::now()`

	seedPrayerFields = `author_id = type::record($author), title = $title, visibility = $visibility,
		anonymous = $anonymous, status = 'active', prayer_count = 0,
		created_on = time::now(), updated_on = time::now()`
)

// seedRun collects the ids of one seeding call
type seedRun struct {
	s     *SeederService
	start time.Time
	ids   []string
}

func (s *SeederService) begin(capacity int) *seedRun {
	return &seedRun{s: s, start: time.Now(), ids: make([]string, 0, capacity)}
}

// create runs `CREATE table SET fields` and keeps the new id
func (r *seedRun) create(ctx context.Context, table, fields string, vars map[string]interface{}) (string, error) {
	results, err := r.s.db.Query(ctx, "CREATE "+table+" SET "+fields, vars)
	if err != nil {
		return "", fmt.Errorf("seed %s: %w", table, err)
	}
	ids := recordIDs(results)
	if len(ids) == 0 {
		return "", fmt.Errorf("seed %s: no id returned", table)
	}
	r.ids = append(r.ids, ids[0])
	return ids[0], nil
}

func (r *seedRun) result() *SeedResult {
	return &SeedResult{Created: len(r.ids), IDs: r.ids, Duration: time.Since(r.start).Milliseconds()}
}

func checkRange(name string, n, lo, hi int) error {
	if n < lo || n > hi {
		return fmt.Errorf("%s must be between %d and %d", name, lo, hi)
	}
	return nil
}

// SeedMembers creates members who sign in with SeedPassword. The first
// Staff of them are staff.
func (s *SeederService) SeedMembers(ctx context.Context, req SeedMembersRequest) (*SeedResult, error) {
	if err := errors.Join(
		checkRange("count", req.Count, 1, 1000),
		checkRange("staff", req.Staff, 0, req.Count),
	); err != nil {
		return nil, err
	}
	prefix := seedPrefix(req.Prefix)

	// MinCost keeps a 1000-member seed under a few seconds
	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	run := s.begin(req.Count)
	for i := range req.Count {
		role := model.UserRoleMember
		if i < req.Staff {
			role = model.UserRoleStaff
		}
		_, err := run.create(ctx, "user", seedMemberFields, map[string]interface{}{
			"email":     prefix + randomHex(8) + "@shepherd.local",
			"hash":      string(hash),
			"firstname": pick(seedFirstNames),
			"lastname":  pick(seedLastNames),
			"role":      string(role),
			"ministry":  pick(seedMinistries),
			"visible":   mrand.IntN(4) != 0,
			"partner":   mrand.IntN(3) == 0,
		})
		if err != nil {
			return nil, err
		}
	}
	return run.result(), nil
}

// SeedEvents spreads events over the next four weeks
func (s *SeederService) SeedEvents(ctx context.Context, req SeedEventsRequest) (*SeedResult, error) {
	if err := checkRange("count", req.Count, 1, 100); err != nil {
		return nil, err
	}
	if req.CreatedBy == "" {
		return nil, errors.New("created_by is required")
	}
	prefix := seedPrefix(req.Prefix)
	base := s.now().UTC().Truncate(time.Hour)

	run := s.begin(req.Count)
	for i := range req.Count {
		e := seedEvents[i%len(seedEvents)]
		at := base.Add(time.Duration(1+mrand.IntN(28*24)) * time.Hour)
		_, err := run.create(ctx, "event", seedEventFields, map[string]interface{}{
			"title":      prefix + e.title,
			"location":   e.location,
			"category":   e.category,
			"start_time": at.Format(time.RFC3339),
			"end_time":   at.Add(90 * time.Minute).Format(time.RFC3339),
			"capacity":   seedCapacities[mrand.IntN(len(seedCapacities))],
			"created_by": req.CreatedBy,
		})
		if err != nil {
			return nil, err
		}
	}
	return run.result(), nil
}

// SeedVolunteer creates opportunities with weekly morning shifts
func (s *SeederService) SeedVolunteer(ctx context.Context, req SeedVolunteerRequest) (*SeedResult, error) {
	if err := checkRange("opportunities", req.Opportunities, 1, 50); err != nil {
		return nil, err
	}
	if req.CreatedBy == "" {
		return nil, errors.New("created_by is required")
	}
	shifts := max(req.ShiftsPerOpportunity, 0)
	if shifts == 0 {
		shifts = 3
	}
	slots := req.SlotsPerShift
	if slots <= 0 {
		slots = 4
	}
	prefix := seedPrefix(req.Prefix)
	day := s.now().UTC().Truncate(24 * time.Hour)

	run := s.begin(req.Opportunities * (1 + shifts))
	for i := range req.Opportunities {
		oppID, err := run.create(ctx, "volunteer_opportunity", seedOpportunityFields, map[string]interface{}{
			"title":      prefix + seedOpportunities[i%len(seedOpportunities)],
			"ministry":   pick(seedMinistries),
			"created_by": req.CreatedBy,
		})
		if err != nil {
			return nil, err
		}

		for week := 1; week <= shifts; week++ {
			at := day.AddDate(0, 0, 7*week).Add(9 * time.Hour)
			_, err := run.create(ctx, "volunteer_shift", seedShiftFields, map[string]interface{}{
				"opportunity": oppID,
				"start_time":  at.Format(time.RFC3339),
				"end_time":    at.Add(2 * time.Hour).Format(time.RFC3339),
				"slots":       slots,
			})
			if err != nil {
				return nil, err
			}
		}
	}
	return run.result(), nil
}

// SeedPrayers creates active requests, cycling through AuthorIDs
func (s *SeederService) SeedPrayers(ctx context.Context, req SeedPrayersRequest) (*SeedResult, error) {
	if err := checkRange("count", req.Count, 1, 500); err != nil {
		return nil, err
	}
	if len(req.AuthorIDs) == 0 {
		return nil, errors.New("at least one author is required")
	}
	prefix := seedPrefix(req.Prefix)

	run := s.begin(req.Count)
	for i := range req.Count {
		_, err := run.create(ctx, "prayer_request", seedPrayerFields, map[string]interface{}{
			"author":     req.AuthorIDs[i%len(req.AuthorIDs)],
			"title":      prefix + pick(seedPrayerTitles),
			"visibility": string(seedVisibilities[mrand.IntN(len(seedVisibilities))]),
			"anonymous":  mrand.IntN(5) == 0,
		})
		if err != nil {
			return nil, err
		}
	}
	return run.result(), nil
}

// SeedCongregation seeds members (a tenth of them staff, at least one),
// then events, volunteer shifts and prayer requests owned by them. It stops
// at the first failing step.
func (s *SeederService) SeedCongregation(ctx context.Context, members int, prefix string) (*SeedResult, error) {
	if members < 2 {
		return nil, errors.New("members must be at least 2")
	}
	start := time.Now()
	staff := max(members/10, 1)

	people, err := s.SeedMembers(ctx, SeedMembersRequest{Count: members, Staff: staff, Prefix: prefix})
	if err != nil {
		return nil, err
	}
	owner := people.IDs[0]
	all := people.IDs

	for _, step := range []func() (*SeedResult, error){
		func() (*SeedResult, error) {
			return s.SeedEvents(ctx, SeedEventsRequest{Count: 8, CreatedBy: owner, Prefix: prefix})
		},
		func() (*SeedResult, error) {
			return s.SeedVolunteer(ctx, SeedVolunteerRequest{Opportunities: 4, CreatedBy: owner, Prefix: prefix})
		},
		func() (*SeedResult, error) {
			return s.SeedPrayers(ctx, SeedPrayersRequest{Count: members / 2, AuthorIDs: people.IDs[staff:], Prefix: prefix})
		},
	} {
		res, err := step()
		if err != nil {
			return nil, err
		}
		all = append(all, res.IDs...)
	}

	return &SeedResult{Created: len(all), IDs: all, Duration: time.Since(start).Milliseconds()}, nil
}

// seedCleanup deletes children before parents so no row is left pointing
// at a deleted record
var seedCleanup = []struct {
	table string
	where string
}{
	{"volunteer_signup", "string::starts_with(shift_id.opportunity_id.title, $prefix) OR string::starts_with(user_id.email, $prefix)"},
	{"volunteer_shift", "string::starts_with(opportunity_id.title, $prefix)"},
	{"volunteer_opportunity", "string::starts_with(title, $prefix)"},
	{"rsvp", "string::starts_with(event_id.title, $prefix) OR string::starts_with(user_id.email, $prefix)"},
	{"event", "string::starts_with(title, $prefix)"},
	{"prayer_prayed", "string::starts_with(request_id.title, $prefix)"},
	{"prayer_request", "string::starts_with(title, $prefix)"},
	{"notification", "string::starts_with(user_id.email, $prefix)"},
	{"user", "string::starts_with(email, $prefix)"},
}

// Cleanup removes every row seeded with prefix
func (s *SeederService) Cleanup(ctx context.Context, prefix string) (*CleanupResult, error) {
	start := time.Now()
	vars := map[string]interface{}{"prefix": seedPrefix(prefix)}

	deleted := 0
	for _, c := range seedCleanup {
		results, err := s.db.Query(ctx, "DELETE "+c.table+" WHERE "+c.where+" RETURN BEFORE", vars)
		if err != nil {
			return nil, fmt.Errorf("clean %s: %w", c.table, err)
		}
		deleted += len(recordIDs(results))
	}
	return &CleanupResult{Deleted: deleted, Duration: time.Since(start).Milliseconds()}, nil
}

func seedPrefix(p string) string {
	if p == "" {
		return defaultSeedPrefix
	}
	return p
}

func pick(options []string) string {
	return options[mrand.IntN(len(options))]
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// recordIDs reads the ids out of the first statement's rows
func recordIDs(results []interface{}) []string {
	if len(results) == 0 {
		return nil
	}
	stmt, _ := results[0].(map[string]interface{})
	var rows []interface{}
	switch v := stmt["result"].(type) {
	case []interface{}:
		rows = v
	case map[string]interface{}:
		rows = []interface{}{v}
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		m, _ := row.(map[string]interface{})
		if id := recordRef(m["id"]); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// recordRef renders a record id as "table:key" whatever shape the driver
// decoded it into
func recordRef(v interface{}) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case fmt.Stringer:
		return id.String()
	case map[string]interface{}:
		if tb, ok := id["tb"].(string); ok && id["id"] != nil {
			return fmt.Sprintf("%s:%v", tb, id["id"])
		}
	}
	s := fmt.Sprint(v)
	if inner, ok := strings.CutPrefix(s, "{"); ok {
		if inner, ok = strings.CutSuffix(inner, "}"); ok {
			tb, key, _ := strings.Cut(inner, " ")
			return tb + ":" + key
		}
	}
	return s
}
