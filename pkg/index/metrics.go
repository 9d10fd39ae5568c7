package index

import "github.com/prometheus/client_golang/prometheus"

// metricsSink is the seam between Index's operations and its observability
// backend, exactly the shape of the teacher's pkg/metrics.go metricsSink
// interface: a noop implementation when metrics are disabled, a Prometheus
// implementation otherwise, chosen once at construction time by
// newMetricsSink so Set/Get/Delete never branch on "is metrics enabled" on
// the hot path.
type metricsSink interface {
	incHit()
	incMiss()
	incInsert()
	incUpdate()
	incDelete()
	incUpsize()
	addReclaimed(kind string, n int)
	setBuckets(n uint64)
}

type noopMetrics struct{}

func (noopMetrics) incHit()                        {}
func (noopMetrics) incMiss()                        {}
func (noopMetrics) incInsert()                      {}
func (noopMetrics) incUpdate()                      {}
func (noopMetrics) incDelete()                      {}
func (noopMetrics) incUpsize()                      {}
func (noopMetrics) addReclaimed(kind string, n int) {}
func (noopMetrics) setBuckets(n uint64)             {}

// promMetrics implements metricsSink against a caller-supplied
// *prometheus.Registry, mirroring the teacher's promMetrics
// (pkg/metrics.go): one Counter per event family, plus a CounterVec for
// reclamations labeled only by object kind, so nothing is expensive on the
// hot path (no per-key labels, ever).
type promMetrics struct {
	hits       prometheus.Counter
	misses     prometheus.Counter
	inserts    prometheus.Counter
	updates    prometheus.Counter
	deletes    prometheus.Counter
	upsizes    prometheus.Counter
	reclaimed  *prometheus.CounterVec
	bucketsGauge prometheus.Gauge
}

func newPromMetrics(reg *prometheus.Registry) *promMetrics {
	const namespace = "mpmc_index"
	m := &promMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "hits_total", Help: "Get calls that found a live key.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "misses_total", Help: "Get calls that found nothing.",
		}),
		inserts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "inserts_total", Help: "Set calls that created a new key.",
		}),
		updates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "updates_total", Help: "Set calls that replaced an existing key's value.",
		}),
		deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "deletes_total", Help: "Delete calls that removed a live key.",
		}),
		upsizes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "upsizes_total", Help: "Cooperative upsizes started.",
		}),
		reclaimed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "reclaimed_total", Help: "Objects released by the epoch GC, by kind.",
		}, []string{"kind"}),
		bucketsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "buckets", Help: "Current bucket count of the live table.",
		}),
	}
	reg.MustRegister(m.hits, m.misses, m.inserts, m.updates, m.deletes, m.upsizes, m.reclaimed, m.bucketsGauge)
	return m
}

func (m *promMetrics) incHit()   { m.hits.Inc() }
func (m *promMetrics) incMiss()  { m.misses.Inc() }
func (m *promMetrics) incInsert() { m.inserts.Inc() }
func (m *promMetrics) incUpdate() { m.updates.Inc() }
func (m *promMetrics) incDelete() { m.deletes.Inc() }
func (m *promMetrics) incUpsize() { m.upsizes.Inc() }
func (m *promMetrics) addReclaimed(kind string, n int) {
	m.reclaimed.WithLabelValues(kind).Add(float64(n))
}
func (m *promMetrics) setBuckets(n uint64) { m.bucketsGauge.Set(float64(n)) }

// newMetricsSink mirrors the teacher's newMetricsSink factory
// (pkg/metrics.go): a nil registry means metrics are disabled.
func newMetricsSink(reg *prometheus.Registry) metricsSink {
	if reg == nil {
		return noopMetrics{}
	}
	return newPromMetrics(reg)
}
