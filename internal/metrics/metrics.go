// Package metrics provides Prometheus instrumentation for display sessions.
package metrics

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/muurk/webosctl/internal/session"
)

const namespace = "webosctl"

// Metrics holds the session instruments. It implements session.Observer.
type Metrics struct {
	registry *prometheus.Registry

	State             prometheus.Gauge
	Transitions       *prometheus.CounterVec
	Pending           prometheus.Gauge
	Requests          *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	FramesDropped     *prometheus.CounterVec
	UnsolicitedFrames *prometheus.CounterVec
}

var _ session.Observer = (*Metrics)(nil)

// New creates a Metrics instance on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		State: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_state",
			Help:      "Current session state (0 disconnected, 1 connecting, 2 handshaking, 3 ready)",
		}),
		Transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_transitions_total",
				Help:      "Session state transitions by target state",
			},
			[]string{"to"},
		),
		Pending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_requests",
			Help:      "Requests awaiting a response",
		}),
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Requests issued by URI and outcome",
			},
			[]string{"uri", "outcome"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Time from enqueue to response",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"uri"},
		),
		FramesDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_dropped_total",
				Help:      "Inbound frames dropped by reason",
			},
			[]string{"reason"},
		),
		UnsolicitedFrames: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unsolicited_frames_total",
				Help:      "Frames matching no pending request",
			},
			[]string{"delivered"},
		),
	}
}

// Registry returns the registry holding the instruments.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// StateChanged implements session.Observer.
func (m *Metrics) StateChanged(_, to session.State) {
	m.State.Set(float64(to))
	m.Transitions.WithLabelValues(to.String()).Inc()
}

// RequestIssued implements session.Observer.
func (m *Metrics) RequestIssued(uri string) {
	m.Requests.WithLabelValues(uri, "issued").Inc()
}

// RequestCompleted implements session.Observer.
func (m *Metrics) RequestCompleted(uri string, elapsed time.Duration) {
	m.Requests.WithLabelValues(uri, "completed").Inc()
	m.RequestDuration.WithLabelValues(uri).Observe(elapsed.Seconds())
}

// RequestAbandoned implements session.Observer.
func (m *Metrics) RequestAbandoned(uri string, reason string) {
	m.Requests.WithLabelValues(uri, "abandoned_"+reason).Inc()
}

// PendingChanged implements session.Observer.
func (m *Metrics) PendingChanged(n int) {
	m.Pending.Set(float64(n))
}

// FrameDropped implements session.Observer.
func (m *Metrics) FrameDropped(reason string) {
	m.FramesDropped.WithLabelValues(reason).Inc()
}

// UnsolicitedFrame implements session.Observer.
func (m *Metrics) UnsolicitedFrame(delivered bool) {
	m.UnsolicitedFrames.WithLabelValues(strconv.FormatBool(delivered)).Inc()
}

// WriteText writes every metric in the Prometheus text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
