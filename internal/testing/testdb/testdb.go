package testdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/forgo/shepherd/api/internal/database"
)

// settings are read from TEST_DB_* variables
type settings struct {
	Host     string `env:"TEST_DB_HOST" envDefault:"localhost"`
	Port     string `env:"TEST_DB_PORT" envDefault:"8000"`
	User     string `env:"TEST_DB_USER" envDefault:"root"`
	Password string `env:"TEST_DB_PASSWORD" envDefault:"root"`
	// Require turns an unreachable server into a failure instead of a skip (CI)
	Require bool   `env:"TEST_DB_REQUIRE"`
	Root    string `env:"SHEPHERD_ROOT"`
}

// TestDB is a migrated SurrealDB namespace owned by one test
type TestDB struct {
	DB        database.Database
	Namespace string

	t      testing.TB
	closed atomic.Bool
}

var (
	schemaOnce sync.Once
	schema     []database.Migration
	schemaErr  error

	seq atomic.Int64
)

func loadSchema(root string) ([]database.Migration, error) {
	schemaOnce.Do(func() {
		// tests run from their package directory, so walk upwards
		var candidates []string
		if root != "" {
			candidates = append(candidates, filepath.Join(root, "migrations"))
		}
		dir := "migrations"
		for i := 0; i < 5; i++ {
			candidates = append(candidates, dir)
			dir = filepath.Join("..", dir)
		}

		found, err := database.FindMigrationsDir(candidates...)
		if err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = database.LoadMigrationsDir(found)
	})
	return schema, schemaErr
}

// New connects to the test server, creates a fresh namespace and applies the
// schema. The namespace is removed when the test ends. An unreachable server
// skips the test unless TEST_DB_REQUIRE is set.
func New(t testing.TB) *TestDB {
	t.Helper()

	var s settings
	if err := env.Parse(&s); err != nil {
		t.Fatalf("testdb: read settings: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ns := fmt.Sprintf("test_%d_%d", os.Getpid(), seq.Add(1))
	db := database.NewSurrealDB(database.Config{
		Host:      s.Host,
		Port:      s.Port,
		User:      s.User,
		Password:  s.Password,
		Namespace: ns,
		Database:  "shepherd",
	})
	if err := db.Connect(ctx); err != nil {
		if !s.Require && errors.Is(err, database.ErrConnection) {
			t.Skipf("testdb: SurrealDB not reachable at %s:%s: %v", s.Host, s.Port, err)
		}
		t.Fatalf("testdb: connect: %v", err)
	}

	tdb := &TestDB{DB: db, Namespace: ns, t: t}
	t.Cleanup(tdb.Close)

	migs, err := loadSchema(s.Root)
	if err != nil {
		tdb.Close()
		t.Fatalf("testdb: load migrations: %v", err)
	}
	if err := database.Migrate(ctx, db, migs); err != nil {
		tdb.Close()
		t.Fatalf("testdb: %v", err)
	}
	return tdb
}

// Close drops the namespace. Safe to call more than once.
func (tdb *TestDB) Close() {
	if !tdb.closed.CompareAndSwap(false, true) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = tdb.DB.Execute(ctx, "REMOVE NAMESPACE "+tdb.Namespace, nil)
	_ = tdb.DB.Close()
}

// Ctx is a ten second context cancelled when the test ends
func (tdb *TestDB) Ctx() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	tdb.t.Cleanup(cancel)
	return ctx
}

// MustQuery runs a query and fails the test on error
func (tdb *TestDB) MustQuery(query string, vars map[string]interface{}) []interface{} {
	tdb.t.Helper()
	results, err := tdb.DB.Query(tdb.Ctx(), query, vars)
	if err != nil {
		tdb.t.Fatalf("testdb: %v\nquery: %s", err, query)
	}
	return results
}

// Rows returns the rows of the first statement of query
func (tdb *TestDB) Rows(query string, vars map[string]interface{}) []interface{} {
	tdb.t.Helper()
	results := tdb.MustQuery(query, vars)
	if len(results) == 0 {
		return nil
	}
	resp, ok := results[0].(map[string]interface{})
	if !ok {
		tdb.t.Fatalf("testdb: unexpected result shape %T", results[0])
	}
	rows, _ := resp["result"].([]interface{})
	return rows
}
