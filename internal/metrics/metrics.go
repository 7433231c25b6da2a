// Package metrics holds the prometheus collectors of the call agent.
// All methods are safe to call on a nil *Metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "yacall"

type Metrics struct {
	registry *prometheus.Registry

	callsStarted     *prometheus.CounterVec
	callsEnded       *prometheus.CounterVec
	callActive       prometheus.Gauge
	reconnects       prometheus.Counter
	connected        prometheus.Gauge
	dropped          *prometheus.CounterVec
	signalingEvents  *prometheus.CounterVec
	telephonyActions *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		callsStarted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_started_total",
			Help:      "Calls created, by direction.",
		}, []string{"direction"}),
		callsEnded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_ended_total",
			Help:      "Calls ended, by reason.",
		}, []string{"reason"}),
		callActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "call_active",
			Help:      "1 while a call session exists.",
		}),
		reconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signaling",
			Name:      "reconnects_total",
			Help:      "Reconnection attempts of the signaling transport.",
		}),
		connected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "signaling",
			Name:      "connected",
			Help:      "1 while the signaling transport is connected.",
		}),
		dropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signaling",
			Name:      "dropped_total",
			Help:      "Signaling events dropped, by event name.",
		}, []string{"event"}),
		signalingEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signaling",
			Name:      "events_total",
			Help:      "Signaling events sent and received.",
		}, []string{"direction", "event"}),
		telephonyActions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telephony",
			Name:      "actions_total",
			Help:      "Actions received from the native call UI.",
		}, []string{"action"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) CallStarted(dir domain.Direction) {
	if m == nil {
		return
	}
	m.callsStarted.WithLabelValues(string(dir)).Inc()
	m.callActive.Set(1)
}

func (m *Metrics) CallEnded(reason domain.EndReason) {
	if m == nil {
		return
	}
	m.callsEnded.WithLabelValues(string(reason)).Inc()
	m.callActive.Set(0)
}

func (m *Metrics) Reconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

// TrackSignaling mirrors transport status updates into the connected gauge
// until ctx is done or status is closed.
func (m *Metrics) TrackSignaling(ctx context.Context, status <-chan bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case up, ok := <-status:
			if !ok {
				return
			}
			if m == nil {
				continue
			}
			if up {
				m.connected.Set(1)
			} else {
				m.connected.Set(0)
			}
		}
	}
}

func (m *Metrics) Dropped(event string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(event).Inc()
}

func (m *Metrics) Sent(event string) {
	if m == nil {
		return
	}
	m.signalingEvents.WithLabelValues("out", event).Inc()
}

func (m *Metrics) Received(event string) {
	if m == nil {
		return
	}
	m.signalingEvents.WithLabelValues("in", event).Inc()
}

func (m *Metrics) TelephonyAction(action string) {
	if m == nil {
		return
	}
	m.telephonyActions.WithLabelValues(action).Inc()
}
