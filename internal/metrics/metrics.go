// Package metrics exposes Prometheus collectors for trace loading,
// heatmap queries, and the Flight export surface. Collectors register
// on the default registry; the serve command publishes them on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TracesLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spyglass_traces_loaded_total",
		Help: "The total number of trace recordings loaded",
	})

	TraceEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spyglass_trace_entries_total",
		Help: "The total number of trace entries parsed",
	})

	TraceDiskEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spyglass_trace_disk_entries_total",
		Help: "The total number of trace entries with at least one disk-backed source",
	})

	TraceExpertEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spyglass_trace_expert_entries_total",
		Help: "The total number of expert-routed trace entries",
	})

	TraceLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "spyglass_trace_load_duration_seconds",
		Help:    "Time to parse a trace recording from disk",
		Buckets: prometheus.DefBuckets,
	})

	LayoutTensors = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spyglass_layout_tensors",
		Help: "Number of tensor regions in the most recently loaded layout",
	})

	LayoutLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "spyglass_layout_load_duration_seconds",
		Help:    "Time to parse and validate a memory layout",
		Buckets: prometheus.DefBuckets,
	})

	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spyglass_query_duration_seconds",
		Help:    "Heatmap query latency by kind (full, window, accumulate)",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	SnapshotRows = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "spyglass_snapshot_rows",
		Help:    "Number of rows in built heatmap snapshots",
		Buckets: []float64{10, 50, 100, 500, 1000, 5000, 10000},
	})

	ExpertAccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "spyglass_expert_access_count",
		Help: "Access count per expert slice in the most recent snapshot",
	}, []string{"layer", "expert_id"})

	FlightRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spyglass_flight_requests_total",
		Help: "Total Flight RPCs served, by method",
	}, []string{"method"})

	FlightStreamedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spyglass_flight_streamed_records_total",
		Help: "Total Arrow records streamed to Flight clients",
	})

	SessionsIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spyglass_sessions_indexed_total",
		Help: "Total sessions written to the session index",
	})
)

func RecordTraceLoaded(entries, diskEntries, expertEntries int, duration time.Duration) {
	TracesLoaded.Inc()
	TraceEntries.Add(float64(entries))
	TraceDiskEntries.Add(float64(diskEntries))
	TraceExpertEntries.Add(float64(expertEntries))
	TraceLoadDuration.Observe(duration.Seconds())
}

func RecordLayoutLoaded(tensors int, duration time.Duration) {
	LayoutTensors.Set(float64(tensors))
	LayoutLoadDuration.Observe(duration.Seconds())
}

func RecordQuery(kind string, duration time.Duration) {
	QueryDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func RecordSnapshot(rows int) {
	SnapshotRows.Observe(float64(rows))
}

// RecordExpertAccess publishes the per-expert count for one snapshot row.
func RecordExpertAccess(layer, expertID int, count uint64) {
	layerStr := strconv.Itoa(layer)
	expertStr := strconv.Itoa(expertID)
	ExpertAccess.WithLabelValues(layerStr, expertStr).Set(float64(count))
}

func RecordFlightRequest(method string) {
	FlightRequests.WithLabelValues(method).Inc()
}

func RecordFlightRecords(n int) {
	FlightStreamedRecords.Add(float64(n))
}

func RecordSessionIndexed() {
	SessionsIndexed.Inc()
}
