package di

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts installer activity. A nil *Metrics records nothing.
type Metrics struct {
	passes   prometheus.Counter
	injected prometheus.Counter
	scopes   prometheus.Counter
	failures *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics creates the installer collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scenedi_install_passes_total",
			Help: "Scope context passes started by the installer.",
		}),
		injected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scenedi_nodes_injected_total",
			Help: "Nodes whose binder ran successfully.",
		}),
		scopes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scenedi_scopes_created_total",
			Help: "Nested scopes created for scope contexts.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scenedi_install_failures_total",
			Help: "Install calls aborted by an error, by kind.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scenedi_install_duration_seconds",
			Help:    "Wall time of a full Install or InjectSubtree call.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
	for _, c := range []prometheus.Collector{m.passes, m.injected, m.scopes, m.failures, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) pass() {
	if m != nil {
		m.passes.Inc()
	}
}

func (m *Metrics) nodeInjected() {
	if m != nil {
		m.injected.Inc()
	}
}

func (m *Metrics) scopeCreated() {
	if m != nil {
		m.scopes.Inc()
	}
}

func (m *Metrics) observe(start time.Time, err error) {
	if m == nil {
		return
	}
	m.duration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.failures.WithLabelValues(failureKind(err)).Inc()
	}
}

func failureKind(err error) string {
	var (
		resolution *ResolutionError
		inv        *InvokeError
		panicked   *BinderPanicError
		provide    *ProvideError
	)
	switch {
	case errors.As(err, &resolution):
		return "resolution"
	case errors.As(err, &inv):
		return "invoke"
	case errors.As(err, &panicked):
		return "panic"
	case errors.As(err, &provide):
		return "provide"
	default:
		return "other"
	}
}
