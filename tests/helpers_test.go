package tests

import (
	"testing"

	"github.com/forgo/shepherd/api/internal/testing/testdb"
)

// countIDs runs a SELECT VALUE id query and returns how many rows matched
func countIDs(t *testing.T, tdb *testdb.TestDB, query string, vars map[string]interface{}) int {
	t.Helper()
	return len(tdb.Rows(query, vars))
}
