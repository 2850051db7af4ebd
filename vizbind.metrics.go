package vizbind

import (
	"time"

	"github.com/itsatony/go-vizbind/internal"
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names
const (
	MetricRendersTotal       = "vizbind_renders_total"
	MetricRenderDuration     = "vizbind_render_duration_seconds"
	MetricDirectivesTotal    = "vizbind_directives_total"
	MetricCacheRequestsTotal = "vizbind_cache_requests_total"
)

// Metric label values
const (
	renderOutcomeSuccess = "success"
	renderOutcomeError   = "error"
	renderOutcomeCached  = "cached"

	cacheResultHit   = "hit"
	cacheResultMiss  = "miss"
	cacheResultError = "error"
)

// Metrics holds the Prometheus collectors an Engine reports to.
// A nil *Metrics records nothing.
type Metrics struct {
	renders       *prometheus.CounterVec
	duration      prometheus.Histogram
	directives    *prometheus.CounterVec
	cacheRequests *prometheus.CounterVec
}

// NewMetrics creates the vizbind collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRendersTotal,
				Help: "Total number of renders by outcome",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricRenderDuration,
				Help:    "Duration of renders",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
		),
		directives: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricDirectivesTotal,
				Help: "Total number of directives applied",
			},
			[]string{"directive"},
		),
		cacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricCacheRequestsTotal,
				Help: "Result cache lookups by result",
			},
			[]string{"result"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.renders, m.duration, m.directives, m.cacheRequests)
	}
	return m
}

func (m *Metrics) observeRender(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(outcome).Inc()
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) observeCache(result string) {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues(result).Inc()
}

// directiveHook returns the renderer callback counting applied directives
func (m *Metrics) directiveHook() func(internal.Directive) {
	if m == nil {
		return nil
	}
	return func(d internal.Directive) {
		m.directives.WithLabelValues(d.String()).Inc()
	}
}
