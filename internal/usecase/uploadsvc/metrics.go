package uploadsvc

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yourname/chunk_upload/internal/debug"
)

var (
	ChunksReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chunk_upload",
		Subsystem: "upload",
		Name:      "chunks_total",
		Help:      "Chunk requests by outcome",
	}, []string{"result"}) // result: "ok", "bad_request", "incomplete", "error"

	ChunkBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chunk_upload",
		Subsystem: "upload",
		Name:      "chunk_bytes_total",
		Help:      "Bytes committed as parts",
	})

	LockWait = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "chunk_upload",
		Subsystem: "upload",
		Name:      "lock_wait_seconds",
		Help:      "Time spent waiting for the per-key lock",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	})

	UploadsFinalized = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chunk_upload",
		Subsystem: "upload",
		Name:      "finalized_total",
		Help:      "Uploads assembled into an artifact",
	})

	// GCRemoved tracks files removed by the stale part collector
	GCRemoved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chunk_upload",
		Subsystem: "gc",
		Name:      "removed_files_total",
		Help:      "Stale files removed by the collector",
	}, []string{"kind"}) // kind: "part", "staging"

	GCRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chunk_upload",
		Subsystem: "gc",
		Name:      "runs_total",
		Help:      "Stale part sweeps",
	})
)

func init() {
	debug.Registry().MustRegister(
		ChunksReceived,
		ChunkBytes,
		LockWait,
		UploadsFinalized,
		GCRemoved,
		GCRuns,
	)
}
