package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SeedFile is the optional demo data script; Migrate never applies it
const SeedFile = "seed.surql"

// Migration is one schema script
type Migration struct {
	Name string
	SQL  string
}

// FindMigrationsDir returns the first candidate directory that exists
func FindMigrationsDir(candidates ...string) (string, error) {
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p, nil
		}
	}
	return "", errors.New("could not find migrations directory")
}

// LoadMigrations reads every *.surql file in fsys except the seed script,
// sorted by name
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasSuffix(name, ".surql") && name != SeedFile {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	migrations := make([]Migration, 0, len(names))
	for _, name := range names {
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		migrations = append(migrations, Migration{Name: name, SQL: string(content)})
	}
	return migrations, nil
}

// LoadMigrationsDir is LoadMigrations over a directory on disk
func LoadMigrationsDir(dir string) ([]Migration, error) {
	return LoadMigrations(os.DirFS(filepath.Clean(dir)))
}

// Migrate applies migrations in order. Scripts are written to be re-runnable,
// so applying them to an existing database is safe.
func Migrate(ctx context.Context, db Querier, migrations []Migration) error {
	for _, m := range migrations {
		if err := db.Execute(ctx, m.SQL, nil); err != nil {
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
	}
	return nil
}
