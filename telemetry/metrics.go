// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	MatchesImported    prometheus.Counter
	MatchImportsFailed prometheus.Counter
	ImportRetries      prometheus.Counter
	ChatEventsImported prometheus.Counter
	SpamFlagged        prometheus.Counter
	FilterToggles      *prometheus.CounterVec

	// Histograms (seconds)
	ImportDuration        prometheus.Observer
	ViewRecomputeDuration prometheus.Observer

	// Gauges
	ActiveViews prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		MatchesImported = promauto.NewCounter(prometheus.CounterOpts{Name: "match_chat_imports_succeeded_total", Help: "Number of match chat imports that were stored"})
		MatchImportsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "match_chat_imports_failed_total", Help: "Number of match chat imports that failed"})
		ImportRetries = promauto.NewCounter(prometheus.CounterOpts{Name: "match_chat_import_retries_total", Help: "Number of match fetches retried after a transient error"})
		ChatEventsImported = promauto.NewCounter(prometheus.CounterOpts{Name: "match_chat_events_imported_total", Help: "Number of chat events stored by imports"})
		SpamFlagged = promauto.NewCounter(prometheus.CounterOpts{Name: "match_chat_spam_flagged_total", Help: "Number of events flagged as spam when building views"})
		FilterToggles = promauto.NewCounterVec(prometheus.CounterOpts{Name: "match_chat_filter_toggles_total", Help: "Filter toggles by filter name"}, []string{"filter"})
		ImportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "match_chat_import_duration_seconds",
			Help:    "Fetch, parse and store duration of a match chat import",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		})
		ViewRecomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "match_chat_view_build_duration_seconds",
			Help:    "Time spent filtering and sorting a chat view",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		})
		ActiveViews = promauto.NewGauge(prometheus.GaugeOpts{Name: "match_chat_active_views", Help: "Current number of stateful chat views"})
	})
}

// SetActiveViews records the current view count.
func SetActiveViews(n int) {
	if ActiveViews != nil {
		ActiveViews.Set(float64(n))
	}
}

// RecordToggle counts one toggle of the named filter.
func RecordToggle(filter string) {
	if FilterToggles != nil {
		FilterToggles.WithLabelValues(filter).Inc()
	}
}

// AddSpamFlagged adds n newly built spam flags.
func AddSpamFlagged(n int) {
	if SpamFlagged != nil && n > 0 {
		SpamFlagged.Add(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
