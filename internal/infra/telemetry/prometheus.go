// Package telemetry provides Prometheus-backed metrics for the gateway.
package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"dbxmcp/internal/domain"
)

type PrometheusMetrics struct {
	requestDuration  *prometheus.HistogramVec
	toolCallDuration *prometheus.HistogramVec
	toolCalls        *prometheus.CounterVec
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dbxmcp_request_duration_seconds",
				Help:    "Duration of JSON-RPC requests in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "code"},
		),
		toolCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dbxmcp_tool_call_duration_seconds",
				Help:    "Duration of tool invocations in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"tool"},
		),
		toolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dbxmcp_tool_calls_total",
				Help: "Total number of tool invocations",
			},
			[]string{"tool", "status"},
		),
	}
}

func (p *PrometheusMetrics) ObserveRequest(method string, duration time.Duration, errCode int64) {
	code := "0"
	if errCode != 0 {
		code = strconv.FormatInt(errCode, 10)
	}
	p.requestDuration.WithLabelValues(method, code).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveToolCall(tool string, duration time.Duration, ok bool) {
	status := "success"
	if !ok {
		status = "error"
	}
	p.toolCallDuration.WithLabelValues(tool).Observe(duration.Seconds())
	p.toolCalls.WithLabelValues(tool, status).Inc()
}

var _ domain.Metrics = (*PrometheusMetrics)(nil)
