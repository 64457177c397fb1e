package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// UploadsTotal counts stored resources.
	UploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediavault_resource_uploads_total",
		Help: "Number of resources uploaded.",
	})

	// DownloadsTotal counts served resource downloads.
	DownloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediavault_resource_downloads_total",
		Help: "Number of resources downloaded.",
	})

	// DeletesTotal counts removed resources.
	DeletesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediavault_resource_deletes_total",
		Help: "Number of resources deleted.",
	})

	// ExportsTotal counts archive exports by outcome.
	ExportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediavault_archive_exports_total",
		Help: "Number of archive exports by outcome.",
	}, []string{"outcome"})

	// ExportDuration observes end-to-end archive export time.
	ExportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mediavault_archive_export_duration_seconds",
		Help:    "Archive export duration in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}
