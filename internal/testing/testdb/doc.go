// Package testdb gives integration tests a real, migrated SurrealDB.
//
// Every call to New gets its own namespace, so tests may run in parallel
// and never see each other's rows. The namespace is dropped on cleanup.
//
//	func TestSignup_FullShift(t *testing.T) {
//		tdb := testdb.New(t)
//		repo := repository.NewVolunteerRepository(tdb.DB)
//		...
//	}
//
// Connection settings come from TEST_DB_HOST, TEST_DB_PORT, TEST_DB_USER
// and TEST_DB_PASSWORD (defaults localhost:8000, root/root). Without a
// reachable server the test is skipped; set TEST_DB_REQUIRE=true in CI to
// fail instead. SHEPHERD_ROOT points at the repository when tests run from
// an unusual working directory.
package testdb
