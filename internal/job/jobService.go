package job

import (
	"deskrag/internal/domain/jobmodel"
)

// Service carries the ingestion queue: a buffered job channel the handlers
// feed, a dispatcher channel that signals worker creation, and the store
// workers persist job state to.
type Service struct {
	JobChannel        chan jobmodel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobmodel.JobStore
}

type ServiceConfig struct {
	JobChannel        chan jobmodel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobmodel.JobStore
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		RequestCount:      cfg.RequestCount,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
	}
}
