package persist

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datastore_persist_operations_total",
		Help: "Persistence operations by store, operation and status",
	}, []string{"store", "operation", "status"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "datastore_persist_duration_seconds",
		Help:    "Time to write or load a store file, retries included",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	}, []string{"operation", "status"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datastore_persist_retries_total",
		Help: "Attempts retried because the store file was in use",
	}, []string{"store", "operation"})

	fileSizeBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "datastore_persist_file_size_bytes",
		Help: "Compressed size of the most recently written store file",
	}, []string{"store"})
)
