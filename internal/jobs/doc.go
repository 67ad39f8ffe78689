// Package jobs implements the background work that runs beside the HTTP server.
//
// Every job shares one ticker loop with Start, Stop and IsRunning:
//
//   - ReminderProcessor: inbox reminders for RSVPs and volunteer shifts
//     starting within the configured lookahead
//   - DigestProcessor: emails the insights report to staff on an interval
//   - SessionSweeper: deletes expired and long-revoked refresh tokens
//
// Jobs log failures and keep ticking; a failed pass never stops the server.
//
//	p := jobs.NewReminderProcessor(reminderService, cfg.Jobs.ReminderInterval, logger)
//	p.Start()
//	defer p.Stop()
package jobs
