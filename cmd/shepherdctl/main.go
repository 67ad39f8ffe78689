// Command shepherdctl is the operator CLI for a Shepherd deployment: key
// generation, admin tokens, schema migrations, demo data and insight reports.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forgo/shepherd/api/internal/config"
	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/telemetry"

	"github.com/spf13/cobra"
)

// app is the state shared by every subcommand
type app struct {
	verbose bool
	timeout time.Duration

	cfg    *config.Config
	logger *slog.Logger

	// connect opens the database; tests swap it out
	connect func(ctx context.Context, cfg *config.Config) (database.Database, error)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&app{connect: connectSurreal}).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "shepherdctl",
		Short: "Operate a Shepherd church API deployment",
		Long: `shepherdctl manages a Shepherd deployment from the command line.

Configuration is read from the same environment variables as the API server
(DB_HOST, JWT_PRIVATE_KEY_PATH, CHURCH_LOCALE and friends).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if a.verbose {
				cfg.Log.Level = "debug"
			}
			a.cfg = cfg
			a.logger = telemetry.NewLogger(telemetry.LogConfig{Level: cfg.Log.Level}).
				With(slog.String("component", "shepherdctl"))
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 2*time.Minute, "Deadline for database commands")

	root.AddCommand(
		newKeysCmd(a),
		newTokenCmd(a),
		newMigrateCmd(a),
		newSeedCmd(a),
		newInsightsCmd(a),
	)
	return root
}

// withDB runs fn against a connected database and closes it afterwards
func (a *app) withDB(cmd *cobra.Command, fn func(ctx context.Context, db database.Database) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
	defer cancel()

	db, err := a.connect(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	a.logger.Debug("connected to database",
		slog.String("host", a.cfg.Database.Host),
		slog.String("database", a.cfg.Database.Database),
	)
	return fn(ctx, db)
}

func connectSurreal(ctx context.Context, cfg *config.Config) (database.Database, error) {
	db := database.NewSurrealDB(database.Config{
		Host:      cfg.Database.Host,
		Port:      cfg.Database.Port,
		User:      cfg.Database.User,
		Password:  cfg.Database.Password,
		Namespace: cfg.Database.Namespace,
		Database:  cfg.Database.Database,
	})
	if err := db.Connect(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
