package worker

import (
	"context"
	"sync/atomic"
	"time"

	"deskrag/internal/config"
	"deskrag/internal/domain/jobmodel"
	"deskrag/internal/metrics"
)

func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureExecutionMetrics("ingest_job", time.Since(start))
	}()

	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, config.IngestJobTimeout)
	defer cancel()
	logger.Debug("Processing job", "jobId", job.Id, config.TRACE_ID_KEY, job.TraceId)

	saveJobState(ctx, job, jobmodel.JobStatusRunning)

	job = _ragService.IngestDocument(ctx, job)

	job.EndTime = time.Now()
	// IngestDocument already set the terminal status; persist it as-is.
	saveJobState(ctx, job, job.Status)
}

func removeWorker(reason string) {
	workerWaitGroup.Done()
	atomic.AddInt64(&currentWorkerCount, -1)
	logger.Info("Removed worker", "reason", reason, "workerCount", atomic.LoadInt64(&currentWorkerCount))
	metrics.DecrementActiveWorkerCount()
}

// retireIfAboveFloor removes one idle worker, never shrinking the pool
// below minWorkerCount. The CAS arbitrates workers timing out together.
func retireIfAboveFloor() bool {
	for {
		count := atomic.LoadInt64(&currentWorkerCount)
		if count <= atomic.LoadInt64(&minWorkerCount) {
			return false
		}
		if atomic.CompareAndSwapInt64(&currentWorkerCount, count, count-1) {
			workerWaitGroup.Done()
			logger.Info("Removed worker", "reason", "idle worker timeout", "workerCount", count-1)
			metrics.DecrementActiveWorkerCount()
			return true
		}
	}
}

func saveJobState(ctx context.Context, job jobmodel.Job, jobStatus jobmodel.JobStatus) {
	job.Status = jobStatus
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		logger.Error("Failed to persist job state", "jobId", job.Id, "err", err)
	}
}
