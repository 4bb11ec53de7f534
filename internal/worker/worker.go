package worker

import (
	"sync"
	"sync/atomic"
	"time"

	"deskrag/internal/config"
	"deskrag/internal/job"
	"deskrag/internal/metrics"
	"deskrag/internal/rag"
	"deskrag/pkg/logger_i"
)

var (
	_jobService        *job.Service
	_ragService        rag.Service
	stopWorkerChannel  chan bool
	workerWaitGroup    *sync.WaitGroup
	dispatcherChannel  chan bool
	currentWorkerCount int64
	logger             *logger_i.Logger
	minWorkerCount     = config.MinWorkerCount
)

func InitServices(jobService *job.Service, ragService rag.Service) {
	_jobService = jobService
	_ragService = ragService
	dispatcherChannel = jobService.DispatcherChannel
}

// InitWorkerPool starts the dispatcher with one worker. The pool grows on
// dispatcher signals up to MaxWorkerCount and shrinks as workers idle out.
func InitWorkerPool(stopWorkerChan chan bool, waitGroup *sync.WaitGroup) {
	stopWorkerChannel = stopWorkerChan
	workerWaitGroup = waitGroup
	logger = logger_i.NewLogger("WorkerPool")
	logger.Info("Initializing worker pool")
	go dispatcher()
}

func dispatcher() {
	createWorker()
	logger.Info("Dispatcher started")
	for range dispatcherChannel {
		if atomic.LoadInt64(&currentWorkerCount) < config.MaxWorkerCount {
			logger.Info("Creating new worker", "workerCount", atomic.LoadInt64(&currentWorkerCount))
			createWorker()
		}
	}
}

func createWorker() {
	workerWaitGroup.Add(1)
	go worker()
	atomic.AddInt64(&currentWorkerCount, 1)
	metrics.IncrementActiveWorkerCount()
	logger.Info("Created new worker")
}

func worker() {
	for {
		select {
		case currentJob := <-_jobService.JobChannel:
			executeJob(currentJob)
			metrics.DecrementJobsInQueue()

		case <-stopWorkerChannel:
			removeWorker("stop worker signal received")
			return

		case <-time.After(config.IdleWorkerTimeout):
			// Idle too long; shrink toward the floor.
			if retireIfAboveFloor() {
				return
			}
		}
	}
}
