package metatype

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts resolution activity. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	Resolutions        prometheus.Counter
	ExtractorFallbacks *prometheus.CounterVec
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
}

// NewMetrics creates the counters and registers them with reg. If reg is
// nil, the counters are created but not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Resolutions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "metatype",
			Name:      "resolutions_total",
			Help:      "Number of annotation sets resolved.",
		}),
		ExtractorFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metatype",
			Name:      "extractor_fallbacks_total",
			Help:      "Number of times a named extractor could not be created and the default was used.",
		}, []string{"extractor"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "metatype",
			Name:      "view_cache_hits_total",
			Help:      "Number of element views served from the cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "metatype",
			Name:      "view_cache_misses_total",
			Help:      "Number of element views that had to be resolved.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Resolutions, m.ExtractorFallbacks, m.CacheHits, m.CacheMisses)
	}
	return m
}

func (m *Metrics) resolved() {
	if m != nil {
		m.Resolutions.Inc()
	}
}

func (m *Metrics) fellBack(extractor string) {
	if m != nil {
		m.ExtractorFallbacks.WithLabelValues(extractor).Inc()
	}
}

func (m *Metrics) cacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

func (m *Metrics) cacheMiss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}
