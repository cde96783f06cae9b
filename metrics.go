package rewind

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts Controller transitions and persistence outcomes. A nil
// *Metrics is valid and records nothing
type Metrics struct {
	transitions     *prometheus.CounterVec
	noops           *prometheus.CounterVec
	persistFailures *prometheus.CounterVec
	hydrations      *prometheus.CounterVec
}

const metricsNamespace = "rewind"

const (
	stageEncode = "encode"
	stageWrite  = "write"
	stageRead   = "read"
	stageDecode = "decode"
	stageQueue  = "queue"

	hydrateRestored  = "restored"
	hydrateEmpty     = "empty"
	hydrateDiscarded = "discarded"
)

// NewMetrics creates the rewind counters and registers them with reg. A nil
// reg leaves the counters unregistered
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "transitions_total",
			Help:      "State transitions applied, by operation",
		}, []string{"op"}),
		noops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "noops_total",
			Help:      "Operations that left the state unchanged, by operation",
		}, []string{"op"}),
		persistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "persist_failures_total",
			Help:      "Persistence failures swallowed, by stage",
		}, []string{"stage"}),
		hydrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "hydrations_total",
			Help:      "Hydration attempts, by result",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.transitions, m.noops, m.persistFailures, m.hydrations,
		)
	}
	return m
}

// Transitions returns the transition counter for an operation
func (m *Metrics) Transitions(op string) prometheus.Counter {
	return m.transitions.WithLabelValues(op)
}

// Noops returns the no-op counter for an operation
func (m *Metrics) Noops(op string) prometheus.Counter {
	return m.noops.WithLabelValues(op)
}

// PersistFailures returns the failure counter for a persistence stage
func (m *Metrics) PersistFailures(stage string) prometheus.Counter {
	return m.persistFailures.WithLabelValues(stage)
}

// Hydrations returns the hydration counter for a result
func (m *Metrics) Hydrations(result string) prometheus.Counter {
	return m.hydrations.WithLabelValues(result)
}

func (m *Metrics) transition(op string, changed bool) {
	if m == nil {
		return
	}
	if changed {
		m.transitions.WithLabelValues(op).Inc()
		return
	}
	m.noops.WithLabelValues(op).Inc()
}

func (m *Metrics) persistFailure(stage string) {
	if m == nil {
		return
	}
	m.persistFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) hydration(result string) {
	if m == nil {
		return
	}
	m.hydrations.WithLabelValues(result).Inc()
}
