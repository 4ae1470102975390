package beans

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Resolution outcomes recorded by the metrics collector.
const (
	outcomeResolved      = "resolved"
	outcomeNoSuchBean    = "no_such_bean"
	outcomeNonUnique     = "non_unique"
	outcomeCircular      = "circular"
	outcomeInstantiation = "instantiation_failed"
	outcomeClosed        = "closed"
	outcomeError         = "error"
)

// metrics holds the Prometheus metrics of one container.
type metrics struct {
	registry prometheus.Gatherer

	resolutions    *prometheus.CounterVec
	instantiations *prometheus.CounterVec
	cacheHits      prometheus.Counter
	duration       prometheus.Histogram
}

// newMetrics creates the container metrics and registers them with reg. When
// reg is nil a private registry is created so independent containers never
// collide.
func newMetrics(reg prometheus.Registerer, containerID string) (*metrics, error) {
	var gatherer prometheus.Gatherer
	if reg == nil {
		r := prometheus.NewRegistry()
		reg, gatherer = r, r
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	labels := prometheus.Labels{"container": containerID}

	m := &metrics{
		registry: gatherer,
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   "beans",
				Name:        "resolutions_total",
				Help:        "Total number of bean resolutions by outcome",
				ConstLabels: labels,
			},
			[]string{"outcome"},
		),
		instantiations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   "beans",
				Name:        "instantiations_total",
				Help:        "Total number of bean instances constructed by scope",
				ConstLabels: labels,
			},
			[]string{"scope"},
		),
		cacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace:   "beans",
				Name:        "singleton_cache_hits_total",
				Help:        "Total number of singleton requests served from the cache",
				ConstLabels: labels,
			},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace:   "beans",
				Name:        "resolution_duration_seconds",
				Help:        "Bean resolution duration in seconds",
				Buckets:     prometheus.ExponentialBuckets(0.00001, 4, 10),
				ConstLabels: labels,
			},
		),
	}

	for _, c := range []prometheus.Collector{m.resolutions, m.instantiations, m.cacheHits, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *metrics) observeResolution(outcome string, start time.Time) {
	m.resolutions.WithLabelValues(outcome).Inc()
	m.duration.Observe(time.Since(start).Seconds())
}

func (m *metrics) observeInstantiation(s Scope) {
	m.instantiations.WithLabelValues(s.String()).Inc()
}
