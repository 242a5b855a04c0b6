// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records client activity. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	connectionsTotal  *prometheus.CounterVec
	activeConnections prometheus.Gauge
	eventsTotal       *prometheus.CounterVec
	frameErrorsTotal  prometheus.Counter
	rateLimitedTotal  prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// returns nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eludris_http_requests_total",
				Help: "Total number of REST requests",
			},
			[]string{"endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eludris_http_request_duration_seconds",
				Help:    "REST request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		connectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eludris_gateway_connections_total",
				Help: "Total number of gateway connection attempts",
			},
			[]string{"status"},
		),
		activeConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "eludris_gateway_active_connections",
				Help: "Number of open gateway sessions",
			},
		),
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eludris_gateway_events_total",
				Help: "Total number of gateway payloads received",
			},
			[]string{"op"},
		),
		frameErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "eludris_gateway_frame_errors_total",
				Help: "Total number of gateway frames that could not be decoded",
			},
		),
		rateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "eludris_rate_limited_total",
				Help: "Total number of rate limit responses",
			},
		),
	}

	reg.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.connectionsTotal,
		m.activeConnections,
		m.eventsTotal,
		m.frameErrorsTotal,
		m.rateLimitedTotal,
	)
	return m
}

// RecordRequest records one REST round trip. status 0 means the request
// never got a response.
func (m *Metrics) RecordRequest(endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requestsTotal.WithLabelValues(endpoint, label).Inc()
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *Metrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.rateLimitedTotal.Inc()
}

// RecordConnection records a dial outcome ("ok" or "error").
func (m *Metrics) RecordConnection(status string) {
	if m == nil {
		return
	}
	m.connectionsTotal.WithLabelValues(status).Inc()
	if status == "ok" {
		m.activeConnections.Inc()
	}
}

func (m *Metrics) RecordDisconnect() {
	if m == nil {
		return
	}
	m.activeConnections.Dec()
}

func (m *Metrics) RecordEvent(op string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(op).Inc()
}

func (m *Metrics) RecordFrameError() {
	if m == nil {
		return
	}
	m.frameErrorsTotal.Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
