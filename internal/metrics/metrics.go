// Package metrics exposes conversion, artifact and auth counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "html2pdf"

// Conversion outcome labels.
const (
	StatusOK       = "ok"
	StatusBadInput = "bad_input"
	StatusTimeout  = "timeout"
	StatusBusy     = "busy"
	StatusError    = "error"
	StatusCanceled = "canceled"
)

// Metrics records server activity.
// ObserveConversion is for requests that reached the renderer; its duration
// feeds the latency histogram. RejectConversion only counts the outcome.
type Metrics interface {
	ObserveConversion(status string, durationSeconds float64)
	RejectConversion(status string)
	ArtifactStored()
	ArtifactDeleted(trigger string)
	AuthFailure(reason string)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) ObserveConversion(string, float64) {}
func (Noop) RejectConversion(string)           {}
func (Noop) ArtifactStored()                   {}
func (Noop) ArtifactDeleted(string)            {}
func (Noop) AuthFailure(string)                {}

// Prom implements Metrics backed by Prometheus collectors.
type Prom struct {
	conversions      *prometheus.CounterVec
	duration         prometheus.Histogram
	artifactsStored  prometheus.Counter
	artifactsDeleted *prometheus.CounterVec
	authFailures     *prometheus.CounterVec
}

// NewProm creates the collectors and registers them with reg.
// It panics if a collector is already registered, like prometheus.MustRegister.
func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "conversions_total",
			Help:      "Conversion requests by outcome",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "conversion_duration_seconds",
			Help:      "Time spent rendering HTML to PDF",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		artifactsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "artifacts_stored_total",
			Help:      "PDF artifacts written to the store",
		}),
		artifactsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "artifacts_deleted_total",
			Help:      "PDF artifacts deleted by trigger",
		}, []string{"trigger"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "auth_failures_total",
			Help:      "Rejected requests by reason",
		}, []string{"reason"}),
	}
	reg.MustRegister(p.conversions, p.duration, p.artifactsStored, p.artifactsDeleted, p.authFailures)
	return p
}

func (p *Prom) ObserveConversion(status string, durationSeconds float64) {
	p.conversions.WithLabelValues(status).Inc()
	p.duration.Observe(durationSeconds)
}

func (p *Prom) RejectConversion(status string) {
	p.conversions.WithLabelValues(status).Inc()
}

func (p *Prom) ArtifactStored() {
	p.artifactsStored.Inc()
}

func (p *Prom) ArtifactDeleted(trigger string) {
	p.artifactsDeleted.WithLabelValues(trigger).Inc()
}

func (p *Prom) AuthFailure(reason string) {
	p.authFailures.WithLabelValues(reason).Inc()
}

// Handler returns an HTTP handler for /metrics serving g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
