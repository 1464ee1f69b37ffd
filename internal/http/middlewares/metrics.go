package middlewares

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HttpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHttpMetrics(registerer prometheus.Registerer) (*HttpMetrics, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "filedrop",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of handled http requests",
	}, []string{"handler", "code", "method"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "filedrop",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of handled http requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"handler", "code", "method"})
	if err := registerer.Register(requests); err != nil {
		return nil, err
	}
	if err := registerer.Register(duration); err != nil {
		registerer.Unregister(requests)
		return nil, err
	}
	return &HttpMetrics{
		requests: requests,
		duration: duration,
	}, nil
}

// Instrument records request count and duration under the given handler label.
func (m *HttpMetrics) Instrument(handlerName string, h http.Handler) http.Handler {
	labels := prometheus.Labels{"handler": handlerName}
	return promhttp.InstrumentHandlerCounter(m.requests.MustCurryWith(labels),
		promhttp.InstrumentHandlerDuration(m.duration.MustCurryWith(labels), h))
}
