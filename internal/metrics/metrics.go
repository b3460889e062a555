package metrics

import (
	"context"
	"net/http"

	"call-router/internal/routing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "call_router"

// Recorder exports routing decisions as Prometheus metrics.
// It implements routing.Observer.
type Recorder struct {
	decisions        *prometheus.CounterVec
	malformedNumbers *prometheus.CounterVec
	webhookErrors    *prometheus.CounterVec
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "routing",
				Name:      "decisions_total",
				Help:      "Routing decisions by kind and inbound phase.",
			},
			[]string{"decision", "phase"},
		),
		malformedNumbers: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "routing",
				Name:      "malformed_numbers_total",
				Help:      "Callbacks routed despite a missing or non-E.164 number.",
			},
			[]string{"field"},
		),
		webhookErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "webhook",
				Name:      "errors_total",
				Help:      "Webhook requests that could not be answered with TwiML.",
			},
			[]string{"reason"},
		),
	}
}

func (r *Recorder) ObserveDecision(_ context.Context, n routing.Notification, d routing.Decision) {
	r.decisions.WithLabelValues(string(d.Kind), n.Phase.String()).Inc()
	if !routing.IsE164(n.To) {
		r.malformedNumbers.WithLabelValues("to").Inc()
	}
	if !routing.IsE164(n.From) {
		r.malformedNumbers.WithLabelValues("from").Inc()
	}
}

// WebhookError counts a request that failed before markup was produced.
func (r *Recorder) WebhookError(reason string) {
	if r == nil {
		return
	}
	r.webhookErrors.WithLabelValues(reason).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
