// Package promstats exports async range bookkeeping of a phaseprof
// Profiler as Prometheus metrics.
package promstats

import (
	"github.com/luxas/deklarative/phaseprof"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace prefixes every metric name unless New is given another.
const DefaultNamespace = "phaseprof"

var _ phaseprof.AsyncObserver = &Observer{}

// Observer is a phaseprof.AsyncObserver counting async range starts, ends,
// replacements and misses, and tracking how many are open.
//
// Open is eventually consistent. It may briefly read one lower per
// completion racing its own start (see phaseprof.AsyncObserver), even
// below zero, and settles once both notifications arrived.
type Observer struct {
	Started  prometheus.Counter
	Ended    prometheus.Counter
	Replaced *prometheus.CounterVec
	Missed   prometheus.Counter
	Open     prometheus.Gauge
}

// New creates the metrics and registers them on reg. A nil reg means
// prometheus.DefaultRegisterer. New panics if the metrics are already
// registered on reg, like promauto does.
func New(reg prometheus.Registerer, namespace string) *Observer {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	f := promauto.With(reg)

	return &Observer{
		Started: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "async_started_total",
			Help:      "Total number of async ranges started",
		}),
		Ended: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "async_ended_total",
			Help:      "Total number of async ranges ended, including the shutdown sweep",
		}),
		Replaced: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "async_replaced_total",
			Help:      "Total number of open async ranges overwritten by a start with the same key",
		}, []string{"policy"}),
		Missed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "async_missed_total",
			Help:      "Total number of async ends without an open range",
		}),
		Open: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "async_open",
			Help:      "Number of async ranges currently open",
		}),
	}
}

func (o *Observer) AsyncStarted(phaseprof.CorrelationKey) {
	o.Started.Inc()
	o.Open.Inc()
}

func (o *Observer) AsyncEnded(phaseprof.CorrelationKey) {
	o.Ended.Inc()
	o.Open.Dec()
}

// AsyncReplaced counts the replacement. The replaced range no longer
// counts as open, whether it was closed or leaked.
func (o *Observer) AsyncReplaced(_ phaseprof.CorrelationKey, policy phaseprof.StalePolicy) {
	o.Replaced.WithLabelValues(policy.String()).Inc()
	o.Open.Dec()
}

func (o *Observer) AsyncMissed(phaseprof.CorrelationKey) { o.Missed.Inc() }
