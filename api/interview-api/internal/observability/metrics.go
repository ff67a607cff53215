// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Metrics groups all Prometheus instruments used by the interview service.
type Metrics struct {
	ActiveSessions   prometheus.Gauge
	SessionEvents    *prometheus.CounterVec
	Messages         *prometheus.CounterVec
	SendFailures     *prometheus.CounterVec
	SetupFailures    *prometheus.CounterVec
	StageTransitions *prometheus.CounterVec
	SetupLatency     prometheus.Histogram
}

// NewMetrics registers the instruments on reg. Tests pass a fresh
// prometheus.NewRegistry so repeated construction does not collide.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of interview sessions with an open channel.",
		}),
		SessionEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session lifecycle events by type.",
		}, []string{"event"}),
		Messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Channel messages by direction and type.",
		}, []string{"direction", "type"}),
		SendFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Outbound messages dropped by reason.",
		}, []string{"reason"}),
		SetupFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "setup_failures_total",
			Help:      "Session start failures by stage.",
		}, []string{"stage"}),
		StageTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_transitions_total",
			Help:      "Interview stage transitions.",
		}, []string{"from", "to"}),
		SetupLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "setup_latency_ms",
			Help:      "Time from session start to an established transport in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 1500, 2000, 3000, 5000, 8000},
		}),
	}
}

func (m *Metrics) SessionEvent(event string) {
	m.SessionEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) Message(direction, messageType string) {
	m.Messages.WithLabelValues(direction, messageType).Inc()
}

func (m *Metrics) SendFailure(reason string) {
	m.SendFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetupFailure(stage string) {
	m.SetupFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) StageTransition(from, to string) {
	m.StageTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObserveSetupLatency(d time.Duration) {
	m.SetupLatency.Observe(float64(d.Milliseconds()))
}

// Handler serves the given gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
