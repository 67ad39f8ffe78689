package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// periodic runs task every interval until stopped. With a positive delay
// it also runs once, delay after Start, ahead of the first tick.
type periodic struct {
	name     string
	interval time.Duration
	delay    time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	task     func(ctx context.Context) error

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (p *periodic) init(name string, interval, timeout time.Duration, logger *slog.Logger, task func(context.Context) error) {
	if logger == nil {
		logger = slog.Default()
	}
	p.name = name
	p.interval = interval
	p.timeout = timeout
	p.logger = logger.With(slog.String("job", name))
	p.task = task
}

// Start launches the loop; a second call is a no-op
func (p *periodic) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
	p.logger.Info("job started", slog.Duration("interval", p.interval))
}

// Stop ends the loop and waits for an in-flight run to return
func (p *periodic) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.logger.Info("job stopped")
}

func (p *periodic) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *periodic) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
			p.once(ctx)
		case <-ctx.Done():
			return
		}
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.once(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *periodic) once(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, p.timeout)
	defer cancel()
	if err := p.task(ctx); err != nil && parent.Err() == nil {
		p.logger.Error("job run failed", slog.String("error", err.Error()))
	}
}
