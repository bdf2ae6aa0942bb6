// Package metrics exposes Prometheus instruments for the queue probe.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iliyamo/queue-health-probe/internal/probe"
)

// Probe implements probe.Metrics.
type Probe struct {
	published     prometheus.Counter
	publishErrors prometheus.Counter
	inbound       *prometheus.CounterVec
	roundTrips    *prometheus.CounterVec
	attempts      prometheus.Histogram
}

// New registers the probe instruments on reg. A nil reg uses the default registry.
func New(reg prometheus.Registerer) *Probe {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Probe{
		published: f.NewCounter(prometheus.CounterOpts{
			Name: "queue_probe_messages_published_total",
			Help: "The total number of test messages published to the queue",
		}),
		publishErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "queue_probe_publish_errors_total",
			Help: "The total number of failed publish attempts",
		}),
		inbound: f.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_probe_inbound_messages_total",
			Help: "Inbound queue deliveries, by whether they matched a pending message",
		}, []string{"matched"}),
		roundTrips: f.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_probe_health_checks_total",
			Help: "Queue health checks by outcome",
		}, []string{"status"}),
		attempts: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "queue_probe_wait_attempts",
			Help:    "Poll attempts spent waiting for a round trip",
			Buckets: prometheus.LinearBuckets(1, 4, 10),
		}),
	}
}

func (p *Probe) Published()     { p.published.Inc() }
func (p *Probe) PublishFailed() { p.publishErrors.Inc() }

func (p *Probe) Inbound(matched bool) {
	if matched {
		p.inbound.WithLabelValues("true").Inc()
		return
	}
	p.inbound.WithLabelValues("false").Inc()
}

func (p *Probe) RoundTrip(status probe.Status, attempts int) {
	p.roundTrips.WithLabelValues(string(status)).Inc()
	p.attempts.Observe(float64(attempts))
}
