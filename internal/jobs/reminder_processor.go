package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/forgo/shepherd/api/internal/service"
)

// ReminderRunner sends one pass of due reminders
type ReminderRunner interface {
	ProcessDue(ctx context.Context) (service.ReminderResult, error)
}

// ReminderProcessor sends event and shift reminders on a schedule. The
// first pass runs a few seconds after Start so a restart does not leave
// reminders waiting a full interval.
type ReminderProcessor struct {
	periodic
	reminders ReminderRunner
}

// NewReminderProcessor defaults interval to 15 minutes
func NewReminderProcessor(reminders ReminderRunner, interval time.Duration, logger *slog.Logger) *ReminderProcessor {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	p := &ReminderProcessor{reminders: reminders}
	p.init("reminders", interval, 5*time.Minute, logger, func(ctx context.Context) error {
		_, err := p.RunOnce(ctx)
		return err
	})
	p.delay = 5 * time.Second
	return p
}

// RunOnce sends whatever is due now
func (p *ReminderProcessor) RunOnce(ctx context.Context) (service.ReminderResult, error) {
	result, err := p.reminders.ProcessDue(ctx)
	if result.Events+result.Shifts > 0 {
		p.logger.Info("reminders sent", slog.Int("events", result.Events), slog.Int("shifts", result.Shifts))
	}
	return result, err
}
