package reassembly

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yourname/chunk_upload/internal/debug"
)

var (
	FinalizeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chunk_upload",
		Subsystem: "reassembly",
		Name:      "finalize_total",
		Help:      "Finalize attempts by outcome",
	}, []string{"result"}) // result: "ok", "incomplete", "error"

	FinalizeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "chunk_upload",
		Subsystem: "reassembly",
		Name:      "finalize_duration_seconds",
		Help:      "Time spent concatenating parts into an artifact",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	})

	AssembledBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chunk_upload",
		Subsystem: "reassembly",
		Name:      "assembled_bytes_total",
		Help:      "Bytes written to finished artifacts",
	})

	// CleanupFailures считает части, которые не удалось удалить после сборки.
	CleanupFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chunk_upload",
		Subsystem: "reassembly",
		Name:      "cleanup_failures_total",
		Help:      "Consumed parts that could not be deleted",
	})
)

func init() {
	debug.Registry().MustRegister(
		FinalizeTotal,
		FinalizeDuration,
		AssembledBytes,
		CleanupFailures,
	)
}
