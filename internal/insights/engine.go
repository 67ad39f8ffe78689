package insights

import (
	"math"
	"sort"
	"time"

	"github.com/forgo/shepherd/api/internal/format"
)

// MetricKey names one aggregate tracked by the insights report
type MetricKey string

const (
	MetricGivingTotal      MetricKey = "giving_total"
	MetricGiftCount        MetricKey = "gift_count"
	MetricNewMembers       MetricKey = "new_members"
	MetricPrayerRequests   MetricKey = "prayer_requests"
	MetricEventRSVPs       MetricKey = "event_rsvps"
	MetricVolunteerSignups MetricKey = "volunteer_signups"
	MetricNewLeads         MetricKey = "new_leads"
)

// AllMetrics is the fixed order metrics appear in a report
var AllMetrics = []MetricKey{
	MetricGivingTotal,
	MetricGiftCount,
	MetricNewMembers,
	MetricPrayerRequests,
	MetricEventRSVPs,
	MetricVolunteerSignups,
	MetricNewLeads,
}

func (k MetricKey) valid() bool {
	for _, m := range AllMetrics {
		if m == k {
			return true
		}
	}
	return false
}

// Snapshot holds metric values for one window. Money is in minor units.
type Snapshot map[MetricKey]int64

// Window is a half-open time range [Start, End)
type Window struct {
	Start time.Time
	End   time.Time
}

// Windows returns the current window ending at now and the equally long window before it
func Windows(now time.Time, days int) (current, previous Window) {
	span := time.Duration(days) * 24 * time.Hour
	current = Window{Start: now.Add(-span), End: now}
	previous = Window{Start: now.Add(-2 * span), End: current.Start}
	return current, previous
}

// MetricDelta is the comparison of one metric across both windows
type MetricDelta struct {
	Key          MetricKey `json:"key"`
	Label        string    `json:"label"`
	Current      int64     `json:"current"`
	Previous     int64     `json:"previous"`
	DeltaPercent *float64  `json:"delta_percent"`
	Trend        Trend     `json:"trend"`
}

// Insight is one generated sentence about a metric
type Insight struct {
	Metric   MetricKey `json:"metric"`
	Trend    Trend     `json:"trend"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
}

// Report is the full insights payload
type Report struct {
	WindowDays  int           `json:"window_days"`
	GeneratedAt time.Time     `json:"generated_at"`
	Metrics     []MetricDelta `json:"metrics"`
	Insights    []Insight     `json:"insights"`
}

// Engine turns two snapshots into a report using a threshold table
type Engine struct {
	store    *Store
	fmt      *format.Formatter
	currency string
}

// NewEngine creates an engine reading thresholds from store. Money metrics
// are formatted in currency.
func NewEngine(store *Store, f *format.Formatter, currency string) *Engine {
	if store == nil {
		store = NewStore(nil)
	}
	if f == nil {
		f = format.New("")
	}
	return &Engine{store: store, fmt: f, currency: currency}
}

// DeltaPercent returns the percentage change from previous to current,
// rounded to one decimal. ok is false when previous is zero.
func DeltaPercent(current, previous int64) (delta float64, ok bool) {
	if previous == 0 {
		return 0, false
	}
	d := float64(current-previous) / float64(previous) * 100
	return math.Round(d*10) / 10, true
}

// Compute builds the report for the given window length
func (e *Engine) Compute(current, previous Snapshot, days int, now time.Time) *Report {
	cfg := e.store.Config()
	report := &Report{
		WindowDays:  days,
		GeneratedAt: now.UTC(),
		Metrics:     make([]MetricDelta, 0, len(AllMetrics)),
		Insights:    make([]Insight, 0, len(AllMetrics)),
	}

	for _, key := range AllMetrics {
		mc := cfg.Metrics[key]
		cur, prev := current[key], previous[key]
		md := MetricDelta{Key: key, Label: mc.Label, Current: cur, Previous: prev}

		var ins Insight
		switch delta, ok := DeltaPercent(cur, prev); {
		case ok:
			md.DeltaPercent = &delta
			b := mc.band(delta)
			md.Trend = b.Trend
			ins = Insight{Metric: key, Trend: b.Trend, Severity: b.Severity, Message: e.render(b.Message, mc, cur, delta, days)}
		case cur > 0:
			md.Trend = TrendNew
			ins = Insight{Metric: key, Trend: TrendNew, Severity: SeverityPositive, Message: e.render(cfg.NewMessage, mc, cur, 0, days)}
		default:
			// Nothing in either window
			zero := 0.0
			md.DeltaPercent = &zero
			md.Trend = TrendFlat
			report.Metrics = append(report.Metrics, md)
			continue
		}

		report.Metrics = append(report.Metrics, md)
		report.Insights = append(report.Insights, ins)
	}

	sortInsights(report.Insights, report.Metrics)
	return report
}

func (e *Engine) render(tmpl string, mc *MetricConfig, value int64, delta float64, days int) string {
	var formatted string
	if mc.Kind == KindMoney {
		formatted = e.fmt.Money(value, e.currency)
	} else {
		formatted = e.fmt.Number(value)
	}
	// band wording carries the direction, so the change is shown unsigned
	return e.fmt.Sprintf(tmpl, mc.Label, e.fmt.Percent(math.Abs(delta)), days, formatted)
}

// sortInsights puts "new" first, then the largest absolute change, then metric order
func sortInsights(insights []Insight, metrics []MetricDelta) {
	deltas := make(map[MetricKey]float64, len(metrics))
	order := make(map[MetricKey]int, len(metrics))
	for i, m := range metrics {
		order[m.Key] = i
		if m.DeltaPercent != nil {
			deltas[m.Key] = math.Abs(*m.DeltaPercent)
		}
	}

	sort.SliceStable(insights, func(i, j int) bool {
		a, b := insights[i], insights[j]
		if (a.Trend == TrendNew) != (b.Trend == TrendNew) {
			return a.Trend == TrendNew
		}
		if deltas[a.Metric] != deltas[b.Metric] {
			return deltas[a.Metric] > deltas[b.Metric]
		}
		return order[a.Metric] < order[b.Metric]
	})
}
