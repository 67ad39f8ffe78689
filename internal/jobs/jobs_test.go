package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/forgo/shepherd/api/internal/insights"
	"github.com/forgo/shepherd/api/internal/service"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ============================================================================
// Reminder processor
// ============================================================================

type countingRunner struct {
	calls  atomic.Int32
	result service.ReminderResult
	err    error
}

func (r *countingRunner) ProcessDue(ctx context.Context) (service.ReminderResult, error) {
	r.calls.Add(1)
	return r.result, r.err
}

func TestReminderProcessor_StartStop(t *testing.T) {
	t.Parallel()
	runner := &countingRunner{result: service.ReminderResult{Events: 1}}
	p := NewReminderProcessor(runner, 10*time.Millisecond, nil)
	p.delay = time.Millisecond

	p.Start()
	p.Start()
	assert.True(t, p.IsRunning())

	require.Eventually(t, func() bool { return runner.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	p.Stop()
	p.Stop()
	assert.False(t, p.IsRunning())
}

func TestReminderProcessor_StopDuringDelay(t *testing.T) {
	t.Parallel()
	runner := &countingRunner{}
	p := NewReminderProcessor(runner, time.Hour, nil)

	p.Start()
	p.Stop()
	assert.Zero(t, runner.calls.Load())
}

func TestReminderProcessor_RunOnce(t *testing.T) {
	t.Parallel()
	boom := errors.New("db down")
	runner := &countingRunner{result: service.ReminderResult{Shifts: 2}, err: boom}
	p := NewReminderProcessor(runner, 0, nil)

	result, err := p.RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, result.Shifts)
	assert.Equal(t, 15*time.Minute, p.interval)
}

// ============================================================================
// Digest processor
// ============================================================================

type stubReporter struct {
	days int
	err  error
}

func (r *stubReporter) Report(ctx context.Context, days int) (*insights.Report, error) {
	r.days = days
	if r.err != nil {
		return nil, r.err
	}
	return &insights.Report{WindowDays: days}, nil
}

type recordingSender struct {
	mu   sync.Mutex
	sent []string
	fail map[string]bool
}

func (s *recordingSender) Digest(ctx context.Context, to string, report *insights.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[to] {
		return errors.New("bounced")
	}
	s.sent = append(s.sent, to)
	return nil
}

func TestDigestProcessor_RunOnceMailsEveryRecipient(t *testing.T) {
	t.Parallel()
	reporter := &stubReporter{}
	sender := &recordingSender{fail: map[string]bool{"bad@example.com": true}}
	p := NewDigestProcessor(DigestConfig{
		Reporter:   reporter,
		Sender:     sender,
		Recipients: []string{"pastor@example.com", "bad@example.com", "office@example.com"},
		WindowDays: 14,
	})

	err := p.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad@example.com")
	assert.Equal(t, 14, reporter.days)
	assert.Equal(t, []string{"pastor@example.com", "office@example.com"}, sender.sent)
}

func TestDigestProcessor_NoRecipients(t *testing.T) {
	t.Parallel()
	reporter := &stubReporter{err: errors.New("should not be called")}
	p := NewDigestProcessor(DigestConfig{Reporter: reporter, Sender: &recordingSender{}})

	assert.NoError(t, p.RunOnce(context.Background()))
	assert.Zero(t, reporter.days)
}

func TestDigestProcessor_ReportError(t *testing.T) {
	t.Parallel()
	sender := &recordingSender{}
	p := NewDigestProcessor(DigestConfig{
		Reporter:   &stubReporter{err: service.ErrInvalidWindow},
		Sender:     sender,
		Recipients: []string{"pastor@example.com"},
	})

	assert.ErrorIs(t, p.RunOnce(context.Background()), service.ErrInvalidWindow)
	assert.Empty(t, sender.sent)
}

func TestDigestProcessor_Ticks(t *testing.T) {
	t.Parallel()
	sender := &recordingSender{}
	p := NewDigestProcessor(DigestConfig{
		Reporter:   &stubReporter{},
		Sender:     sender,
		Recipients: []string{"pastor@example.com"},
		Interval:   10 * time.Millisecond,
	})

	p.Start()
	defer p.Stop()
	require.Eventually(t, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()
		return len(sender.sent) > 0
	}, time.Second, 5*time.Millisecond)
}

// ============================================================================
// Session sweeper
// ============================================================================

type countingCleaner struct {
	calls atomic.Int32
	err   error
}

func (c *countingCleaner) Sweep(ctx context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestSessionSweeper_SweepsOnEachTick(t *testing.T) {
	t.Parallel()
	cleaner := &countingCleaner{err: errors.New("transient")}
	s := NewSessionSweeper(cleaner, 5*time.Millisecond, nil)

	s.Start()
	s.Start()
	require.Eventually(t, func() bool { return cleaner.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	after := cleaner.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, cleaner.calls.Load(), "no sweeps after Stop")
}

func TestSessionSweeper_StopWithoutStart(t *testing.T) {
	t.Parallel()
	s := NewSessionSweeper(&countingCleaner{}, 0, nil)
	assert.Equal(t, 6*time.Hour, s.interval)
	assert.NotPanics(t, s.Stop)
}
