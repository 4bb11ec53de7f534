package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"deskrag/internal/config"
	"deskrag/internal/data/store"
	"deskrag/internal/domain/docmodel"
	"deskrag/internal/domain/jobmodel"
	"deskrag/internal/domain/sessionmodel"
	"deskrag/internal/job"
	"deskrag/internal/metrics"
	"deskrag/internal/rag"
	"deskrag/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           *logger_i.Logger
	logRH           *logger_i.Logger
)

// DocumentStore is the read side of the relational store the HTTP surface
// needs for listings and session views.
type DocumentStore interface {
	ListDocuments(ctx context.Context) ([]store.DocumentInfo, error)
	ListChunks(ctx context.Context, docID string, page *int, limit int) ([]docmodel.Chunk, error)
	GetDocument(ctx context.Context, id string) (docmodel.Document, bool, error)
	CreateSession(ctx context.Context, title string) (sessionmodel.Session, error)
	GetSession(ctx context.Context, id string) (sessionmodel.Session, error)
	ListMessages(ctx context.Context, sessionID string, limit int) ([]sessionmodel.Message, error)
	GetSummary(ctx context.Context, sessionID string) (sessionmodel.Summary, bool, error)
}

// HealthProbe pings one external dependency.
type HealthProbe func(ctx context.Context) error

type JobHandler struct {
	service    *job.Service
	ragService rag.Service
	docStore   DocumentStore
	probes     map[string]HealthProbe
}

type newJobData struct {
	id           string
	traceId      string
	documentName string
	uploadPath   string
}

func InitJobHandler(jobService *job.Service, ragService rag.Service, docStore DocumentStore, probes map[string]HealthProbe) {
	once.Do(func() {
		handlerInstance = &JobHandler{
			service:    jobService,
			ragService: ragService,
			docStore:   docStore,
			probes:     probes,
		}

		logJH = logger_i.NewLogger("JobHandler")
		logRH = logger_i.NewLogger("RequestHandler")
		logJH.Info("Starting job handler")
	})

}

func CreateNewJob(newJob newJobData) {
	logJH.With(config.TRACE_ID_KEY, newJob.traceId, "job id", newJob.id)
	logJH.Info("To create new ingestion job")
	handlerInstance.pushToJobChannel(newJob)
}

func GetJobStatus(id string, traceId string) (result jobmodel.Job, isFound bool) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctxC, id)
	}
	return result, false
}

// private methods
func (h *JobHandler) pushToJobChannel(newJob newJobData) {

	_job := jobmodel.Job{
		Id:          newJob.id,
		TraceId:     newJob.traceId,
		CreatedTime: time.Now(),
		Status:      jobmodel.JobStatusQueued,
		CurrentStep: jobmodel.IngestInit,
		Payload: jobmodel.Payload{
			DocumentName: newJob.documentName,
			UploadPath:   newJob.uploadPath,
		},
	}

	// Persist before queueing so status polls work while the job waits.
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, newJob.traceId)
	if err := h.service.JobStore.SaveJob(ctxC, _job); err != nil {
		logJH.Error("Failed to persist queued job", "jobId", _job.Id, "err", err)
	}

	//metrics
	metrics.IncrementJobsInQueue()

	h.service.JobChannel <- _job //this is a blocking send to prevent the system from being overwhelmed
	logJH.Info("Created new ingestion job")

	//ingestion involves batch embedding which might take time - external system call
	//so every job asks the dispatcher for a worker; idle workers retire on
	//their own, keeping the pool at one worker most of the time
	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1)
	metrics.StartDispatcherSignalCount() //metrics
	logJH.Debug("Request count ", accurateCount)
	h.service.DispatcherChannel <- true
}

func validateId(id string, traceId string) (result jobmodel.Job, isFound bool) {
	if id == "" {
		logRH.Warn("Empty Job ID")
		return jobmodel.Job{}, false
	}
	return GetJobStatus(id, traceId)
}
