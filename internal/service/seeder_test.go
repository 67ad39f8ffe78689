package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/forgo/shepherd/api/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedDB answers every CREATE with a fresh record id and every DELETE
// with a fixed number of removed rows
type scriptedDB struct {
	database.Database

	mu       sync.Mutex
	queries  []string
	vars     []map[string]interface{}
	next     int
	deletes  int
	failWith string
}

func (d *scriptedDB) Query(_ context.Context, query string, vars map[string]interface{}) ([]interface{}, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.queries = append(d.queries, query)
	d.vars = append(d.vars, vars)
	if d.failWith != "" && strings.Contains(query, d.failWith) {
		return nil, fmt.Errorf("boom")
	}

	trimmed := strings.TrimSpace(query)
	switch {
	case strings.HasPrefix(trimmed, "CREATE"):
		table := strings.Fields(trimmed)[1]
		d.next++
		return []interface{}{map[string]interface{}{
			"status": "OK",
			"result": []interface{}{map[string]interface{}{"id": fmt.Sprintf("%s:%d", table, d.next)}},
		}}, nil
	case strings.HasPrefix(trimmed, "DELETE"):
		rows := make([]interface{}, d.deletes)
		for i := range rows {
			rows[i] = map[string]interface{}{"id": fmt.Sprintf("row:%d", i)}
		}
		return []interface{}{map[string]interface{}{"status": "OK", "result": rows}}, nil
	}
	return nil, nil
}

func (d *scriptedDB) count(prefix string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, q := range d.queries {
		if strings.HasPrefix(strings.TrimSpace(q), prefix) {
			n++
		}
	}
	return n
}

// ============================================================================
// Members
// ============================================================================

func TestSeeder_SeedMembers(t *testing.T) {
	t.Parallel()

	db := &scriptedDB{}
	s := NewSeederService(db)

	res, err := s.SeedMembers(context.Background(), SeedMembersRequest{Count: 5, Staff: 2, Prefix: "demo_"})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Created)
	assert.Equal(t, []string{"user:1", "user:2", "user:3", "user:4", "user:5"}, res.IDs)

	assert.Equal(t, "staff", db.vars[0]["role"])
	assert.Equal(t, "staff", db.vars[1]["role"])
	assert.Equal(t, "member", db.vars[2]["role"])
	for _, v := range db.vars {
		assert.True(t, strings.HasPrefix(v["email"].(string), "demo_"))
	}
}

func TestSeeder_SeedMembers_RejectsBadCounts(t *testing.T) {
	t.Parallel()

	s := NewSeederService(&scriptedDB{})
	ctx := context.Background()

	_, err := s.SeedMembers(ctx, SeedMembersRequest{Count: 0})
	assert.Error(t, err)
	_, err = s.SeedMembers(ctx, SeedMembersRequest{Count: 1001})
	assert.Error(t, err)
	_, err = s.SeedMembers(ctx, SeedMembersRequest{Count: 2, Staff: 3})
	assert.Error(t, err)
}

// ============================================================================
// Volunteer
// ============================================================================

func TestSeeder_SeedVolunteer_CreatesShiftsPerOpportunity(t *testing.T) {
	t.Parallel()

	db := &scriptedDB{}
	s := NewSeederService(db)

	res, err := s.SeedVolunteer(context.Background(), SeedVolunteerRequest{
		Opportunities:        2,
		ShiftsPerOpportunity: 3,
		SlotsPerShift:        5,
		CreatedBy:            "user:staff",
	})
	require.NoError(t, err)
	assert.Equal(t, 8, res.Created)
	assert.Equal(t, 2, db.count("CREATE volunteer_opportunity"))
	assert.Equal(t, 6, db.count("CREATE volunteer_shift"))

	for i, q := range db.queries {
		if strings.Contains(q, "CREATE volunteer_shift") {
			assert.Equal(t, 5, db.vars[i]["slots"])
		}
	}
}

func TestSeeder_SeedVolunteer_RequiresCreator(t *testing.T) {
	t.Parallel()

	_, err := NewSeederService(&scriptedDB{}).SeedVolunteer(context.Background(), SeedVolunteerRequest{Opportunities: 1})
	assert.Error(t, err)
}

// ============================================================================
// Congregation
// ============================================================================

func TestSeeder_SeedCongregation(t *testing.T) {
	t.Parallel()

	db := &scriptedDB{}
	s := NewSeederService(db)

	res, err := s.SeedCongregation(context.Background(), 10, "")
	require.NoError(t, err)

	// 10 members, 8 events, 4 opportunities with 3 shifts each, 5 prayers
	assert.Equal(t, 10+8+4+12+5, res.Created)
	assert.Equal(t, 1, countRole(db, "staff"))
}

func TestSeeder_SeedCongregation_StopsOnError(t *testing.T) {
	t.Parallel()

	db := &scriptedDB{failWith: "CREATE volunteer_opportunity"}
	_, err := NewSeederService(db).SeedCongregation(context.Background(), 4, "")
	require.Error(t, err)
	assert.Equal(t, 0, db.count("CREATE prayer_request"))
}

func countRole(db *scriptedDB, role string) int {
	n := 0
	for _, v := range db.vars {
		if v["role"] == role {
			n++
		}
	}
	return n
}

// ============================================================================
// Cleanup
// ============================================================================

func TestSeeder_Cleanup_SumsDeletedRows(t *testing.T) {
	t.Parallel()

	db := &scriptedDB{deletes: 2}
	res, err := NewSeederService(db).Cleanup(context.Background(), "")
	require.NoError(t, err)

	deletes := db.count("DELETE")
	assert.Equal(t, 2*deletes, res.Deleted)
	for _, v := range db.vars {
		assert.Equal(t, defaultSeedPrefix, v["prefix"])
	}
}

func TestRecordRef(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "user:abc", recordRef("user:abc"))
	assert.Equal(t, "user:abc", recordRef(map[string]interface{}{"tb": "user", "id": "abc"}))
	assert.Equal(t, "event:42", recordRef(struct {
		Table string
		ID    int
	}{"event", 42}))
	assert.Equal(t, "", recordRef(nil))
}

func TestRecordIDs_AcceptsSingleRow(t *testing.T) {
	t.Parallel()

	results := []interface{}{map[string]interface{}{
		"status": "OK",
		"result": map[string]interface{}{"id": "event:1"},
	}}
	assert.Equal(t, []string{"event:1"}, recordIDs(results))
	assert.Empty(t, recordIDs(nil))
}
