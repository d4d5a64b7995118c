package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Prometheus struct {
	registry    *prometheus.Registry
	Requests    *prometheus.CounterVec
	Predictions *prometheus.CounterVec
	Inference   prometheus.Histogram
}

func NewPrometheusMetrics() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "appraiser",
				Name:      "http_requests_total",
				Help:      "HTTP requests by route, method and status code.",
			}, []string{"route", "method", "code"}),
		Predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "appraiser",
				Name:      "predictions_total",
				Help:      "Classified uploads by predicted label and outcome.",
			}, []string{"label", "outcome"}),
		Inference: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "appraiser",
				Name:      "inference_seconds",
				Help:      "Model inference latency.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
			}),
	}
	p.registry.MustRegister(p.Requests, p.Predictions, p.Inference)
	return p
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) ObserveRequest(route, method string, code int) {
	p.Requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
}

func (p *Prometheus) ObserveInference(d time.Duration) {
	p.Inference.Observe(d.Seconds())
}

func (p *Prometheus) ObservePrediction(label string, matched bool) {
	outcome := "no_match"
	if matched {
		outcome = "match"
	}
	p.Predictions.WithLabelValues(label, outcome).Inc()
}
