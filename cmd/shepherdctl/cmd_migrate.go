package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/forgo/shepherd/api/internal/database"

	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	var (
		dir    string
		seed   bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the SurrealDB schema migrations",
		Long: `Applies every migrations/*.surql script in name order. Scripts are
re-runnable, so migrate is safe against an existing database. With --seed the
optional seed.surql script runs last.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			candidates := []string{dir}
			if dir == "" {
				candidates = []string{os.Getenv("SHEPHERD_MIGRATIONS"), "migrations", "../migrations"}
			}
			found, err := database.FindMigrationsDir(candidates...)
			if err != nil {
				return err
			}
			migrations, err := database.LoadMigrationsDir(found)
			if err != nil {
				return err
			}
			if seed {
				content, err := os.ReadFile(filepath.Join(found, database.SeedFile))
				if err != nil {
					return fmt.Errorf("reading seed script: %w", err)
				}
				migrations = append(migrations, database.Migration{Name: database.SeedFile, SQL: string(content)})
			}

			out := cmd.OutOrStdout()
			if dryRun {
				for _, m := range migrations {
					fmt.Fprintln(out, m.Name)
				}
				return nil
			}

			return a.withDB(cmd, func(ctx context.Context, db database.Database) error {
				if err := database.Migrate(ctx, db, migrations); err != nil {
					return err
				}
				a.logger.Info("migrations applied",
					slog.String("dir", found),
					slog.Int("count", len(migrations)),
				)
				fmt.Fprintf(out, "Applied %d migrations from %s\n", len(migrations), found)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Migrations directory (searched when empty)")
	cmd.Flags().BoolVar(&seed, "seed", false, "Also apply seed.surql")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the scripts without applying them")
	return cmd
}
