// Package metrics exposes raidbot's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danifischer/raidbot/internal/model"
)

const namespace = "raidbot"

// Metrics holds the collectors and the registry they are registered with.
// It satisfies service.Recorder and jobs.StoreGauge.
type Metrics struct {
	registry *prometheus.Registry

	reactions     *prometheus.CounterVec
	mutations     *prometheus.CounterVec
	snapshotSave  *prometheus.HistogramVec
	raids         prometheus.Gauge
	conversations prometheus.Gauge
	storeUp       prometheus.Gauge
}

// New creates the collectors on a fresh registry, along with the Go runtime
// and process collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reactions_total",
			Help:      "Reaction events handled, by outcome.",
		}, []string{"outcome"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roster_mutations_total",
			Help:      "Roster mutations attempted, by operation and result.",
		}, []string{"op", "result"}),
		snapshotSave: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_save_seconds",
			Help:      "Time spent writing the roster snapshot, including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"result"}),
		raids: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "raids",
			Help:      "Raids currently held by the roster store.",
		}),
		conversations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_conversations",
			Help:      "Sign-up conversations waiting for an answer.",
		}),
		storeUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_store_up",
			Help:      "1 if the last snapshot store ping succeeded.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.reactions,
		m.mutations,
		m.snapshotSave,
		m.raids,
		m.conversations,
		m.storeUp,
	)
	return m
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Reaction counts one handled reaction event
func (m *Metrics) Reaction(outcome model.ReactionOutcome) {
	m.reactions.WithLabelValues(string(outcome)).Inc()
}

// RosterMutation counts one roster mutation attempt
func (m *Metrics) RosterMutation(op string, err error) {
	m.mutations.WithLabelValues(op, result(err)).Inc()
}

// Conversations sets the number of pending conversations
func (m *Metrics) Conversations(open int) {
	m.conversations.Set(float64(open))
}

// ObserveSnapshotSave records one snapshot write; it matches
// repository.RaidRepositoryConfig.OnSave
func (m *Metrics) ObserveSnapshotSave(d time.Duration, err error) {
	m.snapshotSave.WithLabelValues(result(err)).Observe(d.Seconds())
}

// SetRaids sets the raid gauge
func (m *Metrics) SetRaids(n int) {
	m.raids.Set(float64(n))
}

// SetStoreUp records the outcome of the last store ping
func (m *Metrics) SetStoreUp(up bool) {
	if up {
		m.storeUp.Set(1)
		return
	}
	m.storeUp.Set(0)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
