package main

import (
	"context"
	"fmt"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/service"

	"github.com/spf13/cobra"
)

func newSeedCmd(a *app) *cobra.Command {
	var (
		members int
		prefix  string
		cleanup bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill a development database with a demo congregation",
		Long: `Creates members (a tenth of them staff), upcoming events, volunteer
shifts and prayer requests. Every seeded row carries --prefix so --cleanup can
remove exactly what was created. Seeded members sign in with the password
"` + service.SeedPassword + `".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.IsProduction() {
				return fmt.Errorf("refusing to seed a production database")
			}
			out := cmd.OutOrStdout()

			return a.withDB(cmd, func(ctx context.Context, db database.Database) error {
				seeder := service.NewSeederService(db)
				if cleanup {
					res, err := seeder.Cleanup(ctx, prefix)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Deleted %d rows in %dms\n", res.Deleted, res.Duration)
					return nil
				}

				res, err := seeder.SeedCongregation(ctx, members, prefix)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Created %d rows in %dms\n", res.Created, res.Duration)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&members, "members", 40, "Number of members to create")
	cmd.Flags().StringVar(&prefix, "prefix", "seed_", "Marker prefix for seeded rows")
	cmd.Flags().BoolVar(&cleanup, "cleanup", false, "Delete previously seeded rows instead")
	return cmd
}
