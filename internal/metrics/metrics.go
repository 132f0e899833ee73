package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline metrics
var (
	PackageDownloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "package_downloads_total",
			Help: "Total number of course package downloads.",
		},
		[]string{"status"},
	)

	TranscriptFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcript_fetches_total",
			Help: "Total number of transcript fetches by source.",
		},
		[]string{"kind", "status"},
	)

	CoursesProcessedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "courses_processed_total",
			Help: "Total number of courses fully processed.",
		},
	)

	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "download_runs_total",
			Help: "Total number of batch download runs.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		PackageDownloadsTotal,
		TranscriptFetchesTotal,
		CoursesProcessedTotal,
		RunsTotal,
	)
}
