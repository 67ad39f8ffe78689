package repository

import (
	"context"

	"github.com/forgo/shepherd/api/internal/database"
	"github.com/forgo/shepherd/api/internal/insights"
)

// snapshotQuery aggregates every insight metric over [$from, $to).
// Statement order matches snapshotMetrics.
const snapshotQuery = `
	SELECT math::sum(amount_cents) AS total FROM donation
		WHERE status = 'completed' AND created_on >= <datetime>$from AND created_on < <datetime>$to GROUP ALL;
	SELECT count() AS count FROM donation
		WHERE status = 'completed' AND created_on >= <datetime>$from AND created_on < <datetime>$to GROUP ALL;
	SELECT count() AS count FROM user
		WHERE created_on >= <datetime>$from AND created_on < <datetime>$to GROUP ALL;
	SELECT count() AS count FROM prayer_request
		WHERE created_on >= <datetime>$from AND created_on < <datetime>$to GROUP ALL;
	SELECT count() AS count FROM rsvp
		WHERE status = 'going' AND created_on >= <datetime>$from AND created_on < <datetime>$to GROUP ALL;
	SELECT count() AS count FROM volunteer_signup
		WHERE created_on >= <datetime>$from AND created_on < <datetime>$to GROUP ALL;
	SELECT count() AS count FROM lead
		WHERE created_on >= <datetime>$from AND created_on < <datetime>$to GROUP ALL;
`

var snapshotMetrics = []insights.MetricKey{
	insights.MetricGivingTotal,
	insights.MetricGiftCount,
	insights.MetricNewMembers,
	insights.MetricPrayerRequests,
	insights.MetricEventRSVPs,
	insights.MetricVolunteerSignups,
	insights.MetricNewLeads,
}

// AnalyticsRepository reads the aggregates behind the insights report
type AnalyticsRepository struct {
	db database.Database
}

// NewAnalyticsRepository creates a new analytics repository
func NewAnalyticsRepository(db database.Database) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// Snapshot aggregates every metric over the window in one round trip
func (r *AnalyticsRepository) Snapshot(ctx context.Context, w insights.Window) (insights.Snapshot, error) {
	vars := map[string]interface{}{"from": timeVar(w.Start), "to": timeVar(w.End)}
	results, err := r.db.Query(ctx, snapshotQuery, vars)
	if err != nil {
		return nil, err
	}

	snap := make(insights.Snapshot, len(snapshotMetrics))
	for i, key := range snapshotMetrics {
		rows := statementRows(results, i)
		if key == insights.MetricGivingTotal {
			snap[key] = sumOf(rows, "total")
			continue
		}
		snap[key] = int64(countOf(rows))
	}
	return snap, nil
}
