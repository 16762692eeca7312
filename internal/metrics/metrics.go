// Package metrics holds the Prometheus instrumentation shared by the
// detectors, the fetch-cycle service and the session orchestrator.
//
// A nil *Recorder is valid and records nothing, so tests and one-shot
// commands can skip instrumentation entirely.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_client"

// Recorder groups the collectors used across the client.
type Recorder struct {
	decisions     *prometheus.CounterVec
	cycles        *prometheus.CounterVec
	superseded    prometheus.Counter
	fetchDuration *prometheus.HistogramVec
	cacheWrites   *prometheus.CounterVec
	transitions   *prometheus.CounterVec
}

// New creates a Recorder and registers its collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "freshness_decisions_total",
			Help:      "Freshness policy decisions by action.",
		}, []string{"action"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_cycles_total",
			Help:      "Resolved fetch cycles by resulting view state.",
		}, []string{"outcome"}),
		superseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_cycles_superseded_total",
			Help:      "Fetch cycle results discarded because a newer cycle already resolved.",
		}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_fetch_duration_seconds",
			Help:      "Latency of forecast provider fetches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "result"}),
		cacheWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_writes_total",
			Help:      "Forecast cache replace operations by result.",
		}, []string{"result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_transitions_total",
			Help:      "States emitted by availability detectors.",
		}, []string{"detector", "state"}),
	}

	reg.MustRegister(r.decisions, r.cycles, r.superseded, r.fetchDuration, r.cacheWrites, r.transitions)
	return r
}

func (r *Recorder) Decision(action string) {
	if r == nil {
		return
	}
	r.decisions.WithLabelValues(action).Inc()
}

func (r *Recorder) CycleResolved(outcome string) {
	if r == nil {
		return
	}
	r.cycles.WithLabelValues(outcome).Inc()
}

func (r *Recorder) CycleSuperseded() {
	if r == nil {
		return
	}
	r.superseded.Inc()
}

func (r *Recorder) ProviderFetch(provider string, took time.Duration, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.fetchDuration.WithLabelValues(provider, result).Observe(took.Seconds())
}

func (r *Recorder) CacheWrite(err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.cacheWrites.WithLabelValues(result).Inc()
}

func (r *Recorder) Transition(detector, state string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(detector, state).Inc()
}
