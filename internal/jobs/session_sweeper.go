package jobs

import (
	"context"
	"log/slog"
	"time"
)

// SessionCleaner removes dead refresh tokens
type SessionCleaner interface {
	Sweep(ctx context.Context) error
}

// SessionSweeper periodically deletes expired and revoked sessions
type SessionSweeper struct {
	periodic
}

// NewSessionSweeper creates the sweeper. Interval defaults to six hours.
func NewSessionSweeper(cleaner SessionCleaner, interval time.Duration, logger *slog.Logger) *SessionSweeper {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	s := &SessionSweeper{}
	s.init("session_sweep", interval, time.Minute, logger, cleaner.Sweep)
	return s
}
