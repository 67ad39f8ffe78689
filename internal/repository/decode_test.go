package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/model"
)

// ============================================================================
// Decoding
// ============================================================================

func TestRecordIDString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"string", "user:ruth", "user:ruth"},
		{"record id", models.RecordID{Table: "user", ID: "ruth"}, "user:ruth"},
		{"record id pointer", &models.RecordID{Table: "prayer_request", ID: "p1"}, "prayer_request:p1"},
		{"map form", map[string]interface{}{"tb": "event", "id": map[string]interface{}{"String": "easter"}}, "event:easter"},
		{"map without table", map[string]interface{}{"ID": "x1"}, "x1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, recordIDString(tt.in))
		})
	}
}

func TestDecodeRecord_NormalizesDriverTypes(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 4, 5, 9, 30, 0, 0, time.UTC)
	row := map[string]interface{}{
		"id":         models.RecordID{Table: "prayer_request", ID: "p1"},
		"author_id":  models.RecordID{Table: "user", ID: "ruth"},
		"title":      "Healing for Naomi",
		"status":     "active",
		"created_on": models.CustomDateTime{Time: created},
	}

	got, err := decodeRecord[model.PrayerRequest](map[string]interface{}{"status": "OK", "result": []interface{}{row}})
	require.NoError(t, err)
	assert.Equal(t, "prayer_request:p1", got.ID)
	assert.Equal(t, "Healing for Naomi", got.Title)
	assert.True(t, got.CreatedOn.Equal(created))
}

func TestUnwrapRecord(t *testing.T) {
	t.Parallel()

	_, err := unwrapRecord(nil)
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = unwrapRecord([]interface{}{})
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = unwrapRecord(map[string]interface{}{"status": "OK", "result": []interface{}{}})
	assert.ErrorIs(t, err, database.ErrNotFound)

	_, err = unwrapRecord(float64(3))
	assert.ErrorIs(t, err, errUnexpectedShape)

	rec, err := unwrapRecord([]interface{}{map[string]interface{}{"id": "lead:1"}})
	require.NoError(t, err)
	assert.Equal(t, "lead:1", rec["id"])
}

func TestStatementRows(t *testing.T) {
	t.Parallel()

	results := []interface{}{
		map[string]interface{}{"status": "OK", "result": []interface{}{"a", "b"}},
		map[string]interface{}{"status": "OK", "result": float64(7)},
		map[string]interface{}{"status": "OK", "result": nil},
	}
	assert.Len(t, statementRows(results, 0), 2)
	assert.Equal(t, []interface{}{float64(7)}, statementRows(results, 1))
	assert.Nil(t, statementRows(results, 2))
	assert.Nil(t, statementRows(results, 3))
	assert.Equal(t, "a", firstRow(results))
}

func TestCountAndSum(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 4, countOf([]interface{}{map[string]interface{}{"count": float64(4)}}))
	assert.Equal(t, 9, countOf([]interface{}{uint64(9)}))
	assert.Zero(t, countOf(nil))

	assert.Equal(t, int64(12500), sumOf([]interface{}{map[string]interface{}{"total": float64(12500)}}, "total"))
	assert.Zero(t, sumOf([]interface{}{"not a row"}, "total"))
}

// ============================================================================
// Query building
// ============================================================================

func TestSetClause_StableOrderAndTimes(t *testing.T) {
	t.Parallel()

	starts := time.Date(2026, 12, 24, 23, 0, 0, 0, time.FixedZone("EST", -5*3600))
	set, vars := setClause(map[string]interface{}{
		"title":     "Candlelight Service",
		"starts_at": starts,
		"ignored":   true,
	}, []string{"title", "location", "starts_at"})

	assert.Equal(t, "title = $title, starts_at = <datetime>$starts_at, updated_on = time::now()", set)
	assert.Equal(t, "2026-12-25T04:00:00Z", vars["starts_at"])
	assert.NotContains(t, vars, "ignored")
}

func TestListQuery_Statements(t *testing.T) {
	t.Parallel()

	q := listQuery{table: "lead", where: "status = $status", orderBy: "created_on DESC"}
	assert.Equal(t,
		"SELECT * FROM lead WHERE status = $status ORDER BY created_on DESC LIMIT $limit START $start;\n"+
			"SELECT count() AS count FROM lead WHERE status = $status GROUP ALL;",
		q.statements())

	bare := listQuery{table: "audit", fields: "id, action"}
	assert.Equal(t,
		"SELECT id, action FROM audit LIMIT $limit START $start;\nSELECT count() AS count FROM audit GROUP ALL;",
		bare.statements())
}

func TestIsUniqueConstraintError(t *testing.T) {
	t.Parallel()

	assert.True(t, isUniqueConstraintError(errors.New("Database index `user_email` already contains 'a@b.c'")))
	assert.False(t, isUniqueConstraintError(errors.New("connection reset")))
	assert.False(t, isUniqueConstraintError(nil))
}
