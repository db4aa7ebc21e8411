package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tasting_bot/internal/core"
)

// Metrics holds the bot collectors. It implements core.Observer.
type Metrics struct {
	events      *prometheus.CounterVec
	transitions *prometheus.CounterVec
	completed   *prometheus.CounterVec
	failed      *prometheus.CounterVec
	replies     *prometheus.CounterVec
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Labels: kind (text, callback, attachment, command)
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tastingbot",
			Subsystem: "dispatcher",
			Name:      "events_total",
			Help:      "Inbound events by kind",
		}, []string{"kind"}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tastingbot",
			Subsystem: "flow",
			Name:      "steps_entered_total",
			Help:      "Steps entered by a transition or a flow start",
		}, []string{"step"}),
		completed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tastingbot",
			Subsystem: "flow",
			Name:      "completed_total",
			Help:      "Flows that reached their terminal step",
		}, []string{"flow"}),
		failed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tastingbot",
			Subsystem: "flow",
			Name:      "failures_total",
			Help:      "Flow completions that failed to persist",
		}, []string{"flow"}),
		// Labels: mode (send, edit, edit_fallback)
		replies: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tastingbot",
			Subsystem: "dispatcher",
			Name:      "replies_total",
			Help:      "Outbound replies by delivery mode",
		}, []string{"mode"}),
	}
}

// TrackSessions exposes a gauge reading the live session count from fn
func (m *Metrics) TrackSessions(reg prometheus.Registerer, fn func() int) {
	promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "tastingbot",
		Subsystem: "sessions",
		Name:      "active",
		Help:      "Sessions held by the in-memory store",
	}, func() float64 { return float64(fn()) })
}

func (m *Metrics) EventReceived(kind string) {
	m.events.WithLabelValues(kind).Inc()
}

func (m *Metrics) ReplySent(mode string) {
	m.replies.WithLabelValues(mode).Inc()
}

func (m *Metrics) StepEntered(step core.Step) {
	m.transitions.WithLabelValues(string(step)).Inc()
}

func (m *Metrics) FlowCompleted(flow core.Flow) {
	m.completed.WithLabelValues(string(flow)).Inc()
}

func (m *Metrics) FlowFailed(flow core.Flow) {
	m.failed.WithLabelValues(string(flow)).Inc()
}
