package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansTotal counts finished scan jobs by final task status.
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reposcan_scans_total",
			Help: "Total number of processed scan jobs",
		},
		[]string{"status"},
	)

	// ScanDuration tracks the wall time of clone + scan + screenshot per job.
	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reposcan_job_duration_seconds",
			Help:    "Duration of scan jobs in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68m
		},
	)

	// WorkersActive tracks the number of workers currently processing a job.
	WorkersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reposcan_workers_active",
			Help: "Number of worker goroutines currently processing a job",
		},
	)

	// QueueDepth tracks jobs waiting for a worker.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reposcan_queue_depth",
			Help: "Number of scan jobs waiting in the queue",
		},
	)

	// TasksEvicted counts task records dropped by the bounded history.
	TasksEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reposcan_tasks_evicted_total",
			Help: "Total number of task records evicted from memory",
		},
	)

	// ScreenshotsTotal counts screenshot attempts by result (ok, unavailable, error).
	ScreenshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reposcan_screenshots_total",
			Help: "Total number of dashboard screenshot attempts",
		},
		[]string{"result"},
	)
)
