package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campuswatt_http_requests_total",
			Help: "Total HTTP requests served",
		},
		[]string{"route", "method", "status"},
	)

	HTTPLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campuswatt_http_latency_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	CSVLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campuswatt_csv_loads_total",
			Help: "Energy CSV load attempts by result (cached, loaded, fallback)",
		},
		[]string{"result"},
	)

	CSVRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campuswatt_csv_rows",
			Help: "Energy readings held by the CSV cache",
		},
	)

	CSVRowsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campuswatt_csv_rows_skipped_total",
			Help: "Energy CSV rows dropped as malformed",
		},
	)

	SchedulesDerived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campuswatt_schedules_derived_total",
			Help: "AHU schedules derived, by cache outcome",
		},
		[]string{"cache"},
	)

	OptimizerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campuswatt_optimizer_runs_total",
			Help: "External optimizer invocations by status",
		},
		[]string{"status"},
	)

	NarrativesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campuswatt_narratives_total",
			Help: "Savings narratives by source (openai, template)",
		},
		[]string{"source"},
	)
)
