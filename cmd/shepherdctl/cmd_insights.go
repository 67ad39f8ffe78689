package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/format"
	"github.com/forgo/shepherd/api/internal/insights"
	"github.com/forgo/shepherd/api/internal/repository"
	"github.com/forgo/shepherd/api/internal/service"

	"github.com/spf13/cobra"
)

func newInsightsCmd(a *app) *cobra.Command {
	var (
		days       int
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Print the ministry insights report",
		Long: `Compares the last --days of activity with the window before it and prints
the same report the admin insights endpoint returns.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := insights.NewStore(nil)
			if path := a.cfg.Insights.ConfigPath; path != "" {
				cfg, err := insights.LoadConfig(path)
				if err != nil {
					return err
				}
				store.Set(cfg)
			}
			fmtr := format.New(a.cfg.Server.Locale)

			return a.withDB(cmd, func(ctx context.Context, db database.Database) error {
				svc := service.NewInsightsService(
					repository.NewAnalyticsRepository(db),
					insights.NewEngine(store, fmtr, a.cfg.Stripe.DefaultCurrency),
					nil,
				)
				report, err := svc.Report(ctx, days)
				if err != nil {
					return err
				}
				if outputJSON {
					return writeJSON(cmd.OutOrStdout(), report)
				}
				return printReport(cmd.OutOrStdout(), report, fmtr)
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Window length in days")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output as JSON")
	return cmd
}

func printReport(w io.Writer, r *insights.Report, f *format.Formatter) error {
	fmt.Fprintf(w, "Insights for the last %d days (generated %s)\n\n", r.WindowDays, r.GeneratedAt.Format("2006-01-02 15:04 MST"))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tCURRENT\tPREVIOUS\tCHANGE\tTREND")
	for _, m := range r.Metrics {
		change := "n/a"
		if m.DeltaPercent != nil {
			change = f.Percent(*m.DeltaPercent)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.Label, f.Number(m.Current), f.Number(m.Previous), change, m.Trend)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Insights) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	for _, in := range r.Insights {
		fmt.Fprintf(w, "  [%s] %s\n", in.Severity, in.Message)
	}
	return nil
}
