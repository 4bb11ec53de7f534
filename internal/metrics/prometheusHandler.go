package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var countJobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "count_jobs_in_queue",
	Help: "Number of ingestion jobs in queue",
})

var dispatcherSignalCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "dispatcher_signal_count",
	Help: "How often the dispatcher has signaled to start a worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active ingestion workers",
})

var chatDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "chat_request_duration_seconds",
	Help:    "Total time spent answering a chat request.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60},
}, []string{"outcome"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
}, []string{"service"})

// HttpStatusRecorder remembers the status code written so middleware can
// label the request counter after the handler runs.
type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func IncrementJobsInQueue() {
	countJobsInQueue.Inc()
}

func DecrementJobsInQueue() {
	countJobsInQueue.Dec()
}

func StartDispatcherSignalCount() {
	dispatcherSignalCount.Inc()
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}

func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

// CaptureExecutionMetrics records one external dependency call: embedding,
// vector_search, rerank, cache_lookup or llm_generation.
func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

// CaptureChatMetrics records a finished chat request by outcome: answered,
// abstained or error.
func CaptureChatMetrics(outcome string, timeElapsed time.Duration) {
	chatDuration.WithLabelValues(outcome).Observe(timeElapsed.Seconds())
}
