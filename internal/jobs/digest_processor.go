package jobs

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/forgo/shepherd/api/internal/insights"
)

// InsightsReporter computes the insights report for a window
type InsightsReporter interface {
	Report(ctx context.Context, days int) (*insights.Report, error)
}

// DigestSender emails a report to one address
type DigestSender interface {
	Digest(ctx context.Context, to string, report *insights.Report) error
}

// DigestProcessor periodically emails the insights report to staff. The
// first digest goes out one interval after Start.
type DigestProcessor struct {
	periodic
	reporter   InsightsReporter
	sender     DigestSender
	recipients []string
	days       int
}

// DigestConfig wires the digest job. Interval defaults to a week and
// WindowDays to 7.
type DigestConfig struct {
	Reporter   InsightsReporter
	Sender     DigestSender
	Recipients []string
	WindowDays int
	Interval   time.Duration
	Logger     *slog.Logger
}

func NewDigestProcessor(cfg DigestConfig) *DigestProcessor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 7 * 24 * time.Hour
	}
	p := &DigestProcessor{
		reporter:   cfg.Reporter,
		sender:     cfg.Sender,
		recipients: cfg.Recipients,
		days:       cmp.Or(cfg.WindowDays, 7),
	}
	p.init("insights_digest", interval, 2*time.Minute, cfg.Logger, p.RunOnce)
	return p
}

// RunOnce computes the report and mails every recipient. Delivery keeps
// going past a failed recipient; the failures are joined.
func (p *DigestProcessor) RunOnce(ctx context.Context) error {
	if len(p.recipients) == 0 {
		return nil
	}
	report, err := p.reporter.Report(ctx, p.days)
	if err != nil {
		return fmt.Errorf("compute report: %w", err)
	}

	var errs []error
	for _, to := range p.recipients {
		if err := p.sender.Digest(ctx, to, report); err != nil {
			errs = append(errs, fmt.Errorf("digest to %s: %w", to, err))
		}
	}
	p.logger.Info("digest sent",
		slog.Int("window_days", p.days),
		slog.Int("insights", len(report.Insights)),
		slog.Int("failed", len(errs)))
	return errors.Join(errs...)
}
