package runtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "vdiff"

// metrics holds the Prometheus collectors of one Program.
type metrics struct {
	cycles        prometheus.Counter
	syncDraws     prometheus.Counter
	patches       prometheus.Counter
	failures      prometheus.Counter
	diffDuration  prometheus.Histogram
	applyDuration prometheus.Histogram
}

// diffBuckets span 10µs to ~160ms.
var diffBuckets = prometheus.ExponentialBuckets(0.00001, 4, 8)

// newMetrics creates the collectors. A nil registerer leaves them
// unregistered.
func newMetrics(reg prometheus.Registerer, namespace string) *metrics {
	factory := promauto.With(reg)
	if namespace == "" {
		namespace = DefaultNamespace
	}

	return &metrics{
		cycles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Total number of completed render cycles",
		}),
		syncDraws: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_draws_total",
			Help:      "Render cycles run immediately for synchronous changes",
		}),
		patches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patches_total",
			Help:      "Total number of top-level patches applied",
		}),
		failures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_failures_total",
			Help:      "Render cycles abandoned after a panic",
		}),
		diffDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "diff_duration_seconds",
			Help:      "Time spent diffing trees",
			Buckets:   diffBuckets,
		}),
		applyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "apply_duration_seconds",
			Help:      "Time spent applying patches to the live tree",
			Buckets:   diffBuckets,
		}),
	}
}
