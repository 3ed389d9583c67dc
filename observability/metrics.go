package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "echoes"

// Metrics groups the collectors of the echo board. They are registered on the
// registry handed to NewMetrics; exposing that registry is left to the binary.
type Metrics struct {
	StoreCalls    *prometheus.CounterVec
	StoreDuration *prometheus.HistogramVec
	PollsApplied  *prometheus.CounterVec
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		StoreCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_calls_total",
			Help:      "Calls made against the message store, by operation and outcome.",
		}, []string{"op", "outcome"}),
		StoreDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_call_seconds",
			Help:      "Latency of message store calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		PollsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_applied_total",
			Help:      "Snapshot responses by result: applied, stale or failed.",
		}, []string{"result"}),
	}
	registerer.MustRegister(m.StoreCalls, m.StoreDuration, m.PollsApplied)
	return m
}

// The snapshot counters accept a nil receiver so
// services can run without metrics.
func (m *Metrics) SnapshotApplied() { m.snapshot("applied") }
func (m *Metrics) SnapshotStale()   { m.snapshot("stale") }
func (m *Metrics) SnapshotFailed()  { m.snapshot("failed") }

func (m *Metrics) snapshot(result string) {
	if m == nil {
		return
	}
	m.PollsApplied.WithLabelValues(result).Inc()
}

// Summary sums every counter gathered from g by metric family name.
func Summary(g prometheus.Gatherer) (map[string]float64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}
	summary := make(map[string]float64, len(families))
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			if counter := metric.GetCounter(); counter != nil {
				summary[family.GetName()] += counter.GetValue()
			}
		}
	}
	return summary, nil
}
