// Package metrics exposes Prometheus metrics for synthesis sessions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for finished sessions.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics contains all Prometheus metrics for the TTS service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	SessionsStarted  prometheus.Counter
	SessionsFinished *prometheus.CounterVec
	SessionDuration  prometheus.Histogram
	ActiveSessions   prometheus.Gauge

	FramesSent     *prometheus.CounterVec
	FramesReceived *prometheus.CounterVec
	FramesDropped  prometheus.Counter
	AudioBytes     prometheus.Counter
}

// New creates and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "tts_sessions_started_total",
			Help: "Total number of synthesis sessions started",
		}),
		SessionsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tts_sessions_finished_total",
			Help: "Total number of synthesis sessions finished, by outcome",
		}, []string{"outcome"}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tts_session_duration_seconds",
			Help:    "Wall time of a synthesis request from connect to close",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tts_active_sessions",
			Help: "Current number of open synthesis connections",
		}),
		FramesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tts_frames_sent_total",
			Help: "Total number of protocol frames sent, by event",
		}, []string{"event"}),
		FramesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tts_frames_received_total",
			Help: "Total number of protocol frames received, by message type",
		}, []string{"type"}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "tts_frames_dropped_total",
			Help: "Total number of received frames discarded while waiting or collecting",
		}),
		AudioBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "tts_audio_bytes_total",
			Help: "Total number of audio bytes received",
		}),
	}
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SessionOpened records a new connection.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}

	m.SessionsStarted.Inc()
	m.ActiveSessions.Inc()
}

// SessionClosed records the end of a connection and its outcome.
func (m *Metrics) SessionClosed(outcome string, seconds float64) {
	if m == nil {
		return
	}

	m.ActiveSessions.Dec()
	m.SessionsFinished.WithLabelValues(outcome).Inc()
	m.SessionDuration.Observe(seconds)
}

// FrameSent records an outbound frame.
func (m *Metrics) FrameSent(event string) {
	if m == nil {
		return
	}

	m.FramesSent.WithLabelValues(event).Inc()
}

// FrameReceived records an inbound frame.
func (m *Metrics) FrameReceived(msgType string) {
	if m == nil {
		return
	}

	m.FramesReceived.WithLabelValues(msgType).Inc()
}

// FrameDropped records a discarded inbound frame.
func (m *Metrics) FrameDropped() {
	if m == nil {
		return
	}

	m.FramesDropped.Inc()
}

// AudioReceived records collected audio bytes.
func (m *Metrics) AudioReceived(n int) {
	if m == nil {
		return
	}

	m.AudioBytes.Add(float64(n))
}
