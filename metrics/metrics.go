// Package metrics exposes the engine's Prometheus instrumentation, using a
// package-level-var + sync.Once + promauto style rather than a hand-rolled
// counter type.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AttributeFindersRegistered prometheus.Counter
	AttributeCacheMisses       prometheus.Counter
	AttributeStreamsTornDown   prometheus.Counter

	DecisionsEmittedTotal *prometheus.CounterVec
	CombiningDuration     *prometheus.HistogramVec
)

var initOnce sync.Once

// Init registers every metric exactly once. Safe to call from multiple
// goroutines and multiple times; subsequent calls are no-ops. Callers that
// never call Init still get registered metric handles, because init() below
// calls Init when the package is loaded.
func Init() {
	initOnce.Do(func() {
		AttributeFindersRegistered = promauto.NewCounter(prometheus.CounterOpts{
			Name: "sapl_attribute_finders_registered_total",
			Help: "Number of attribute finder registrations accepted by the broker.",
		})
		AttributeCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
			Name: "sapl_attribute_cache_misses_total",
			Help: "Number of attribute subscriptions that did not find an existing cached stream.",
		})
		AttributeStreamsTornDown = promauto.NewCounter(prometheus.CounterOpts{
			Name: "sapl_attribute_streams_torn_down_total",
			Help: "Number of attribute streams torn down after their grace period expired.",
		})
		DecisionsEmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sapl_decisions_emitted_total",
			Help: "Number of aggregate decisions emitted to subscribers, by decision value.",
		}, []string{"decision"})
		CombiningDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sapl_combining_duration_seconds",
			Help:    "Time spent running a combining algorithm over one policy set's decisions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"algorithm"})
	})
}

func init() { Init() }
