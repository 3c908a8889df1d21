package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic and billing runs.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	accrualRuns     *prometheus.CounterVec
	accrualCharged  prometheus.Counter
	accrualDuration prometheus.Histogram
	accrualLastRun  prometheus.Gauge
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	accrualRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fee_accrual_runs_total",
		Help: "Monthly accrual runs by trigger and result",
	}, []string{"trigger", "result"})

	accrualCharged := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fee_accrual_students_charged_total",
		Help: "Student records advanced by one monthly cycle",
	})

	accrualDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fee_accrual_duration_seconds",
		Help:    "Duration of monthly accrual runs",
		Buckets: prometheus.DefBuckets,
	})

	accrualLastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fee_accrual_last_success_timestamp_seconds",
		Help: "Unix time of the last successful accrual run",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, accrualRuns, accrualCharged, accrualDuration, accrualLastRun, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		accrualRuns:     accrualRuns,
		accrualCharged:  accrualCharged,
		accrualDuration: accrualDuration,
		accrualLastRun:  accrualLastRun,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveAccrualRun records one accrual run; err marks it as failed.
func (m *MetricsService) ObserveAccrualRun(trigger string, affected int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.accrualRuns.WithLabelValues(trigger, result).Inc()
	m.accrualCharged.Add(float64(affected))
	m.accrualDuration.Observe(duration.Seconds())
	if err == nil {
		m.accrualLastRun.SetToCurrentTime()
	}
}
