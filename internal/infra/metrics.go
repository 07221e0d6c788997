package infra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: сколько времени заняла обработка запроса
	RequestDuration *prometheus.HistogramVec

	// Traffic: общее кол-во HTTP запросов
	TotalRequests *prometheus.CounterVec

	// Решения по заявкам (approved/denied)
	ApprovalsDecided *prometheus.CounterVec

	// Принятые нарушения (по типу)
	ViolationsIngested *prometheus.CounterVec

	// Saturation: заполненность буфера нарушений (backpressure)
	ViolationBufferFill prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "devguard_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"route", "method", "status"}),

		TotalRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "devguard_requests_total",
			Help: "Total number of processed HTTP requests.",
		}, []string{"route", "method"}),

		ApprovalsDecided: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "devguard_approvals_decided_total",
			Help: "Approval requests resolved by admins, by outcome.",
		}, []string{"status"}), // approved / denied

		ViolationsIngested: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "devguard_violations_ingested_total",
			Help: "Violation reports accepted into the ingest buffer.",
		}, []string{"type"}),

		ViolationBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "devguard_violation_buffer_utilization",
			Help: "Current number of events in the violation ingest buffer.",
		}),
	}
}
