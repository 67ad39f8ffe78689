package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/forgo/shepherd/api/internal/insights"
)

// Insight window bounds, in days
const (
	MinInsightDays     = 7
	MaxInsightDays     = 365
	DefaultInsightDays = 30
)

// SnapshotSource aggregates metric values for one window
type SnapshotSource interface {
	Snapshot(ctx context.Context, w insights.Window) (insights.Snapshot, error)
}

// InsightsService compares two windows of ministry activity
type InsightsService struct {
	source SnapshotSource
	engine *insights.Engine
	now    func() time.Time
}

// NewInsightsService creates a new insights service
func NewInsightsService(source SnapshotSource, engine *insights.Engine, now func() time.Time) *InsightsService {
	if now == nil {
		now = time.Now
	}
	return &InsightsService{source: source, engine: engine, now: now}
}

// Report computes insights for the last days against the days before that
func (s *InsightsService) Report(ctx context.Context, days int) (*insights.Report, error) {
	if days < MinInsightDays || days > MaxInsightDays {
		return nil, ErrInvalidWindow
	}

	now := s.now().UTC()
	curWin, prevWin := insights.Windows(now, days)

	var cur, prev insights.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cur, err = s.source.Snapshot(gctx, curWin)
		return err
	})
	g.Go(func() error {
		var err error
		prev, err = s.source.Snapshot(gctx, prevWin)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return s.engine.Compute(cur, prev, days, now), nil
}
