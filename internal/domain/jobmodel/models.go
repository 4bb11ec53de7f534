package jobmodel

import (
	"context"
	"time"
)

type JobStatus string
type InternalStatus string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	IngestInit       InternalStatus = "IngestInit"
	IngestParsing    InternalStatus = "IngestParsing"
	IngestChunking   InternalStatus = "IngestChunking"
	IngestEmbedding  InternalStatus = "IngestEmbedding"
	IngestIndexing   InternalStatus = "IngestIndexing"
	IngestDeduped    InternalStatus = "IngestDeduped"
	IngestErrorState InternalStatus = "Error"
	Complete         InternalStatus = "Complete"
)

// Job tracks one asynchronous document ingestion from upload to index.
type Job struct {
	Id          string         `json:"id"`
	TraceId     string         `json:"trace_id"`
	Payload     Payload        `json:"payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

type Payload struct {
	DocumentName string `json:"document_name,omitempty"`
	UploadPath   string `json:"upload_path,omitempty"`

	Result *IngestResult `json:"result,omitempty"`
}

// IngestResult is what the ingestion coordinator reports back once the
// document is chunked, embedded and indexed (or found deduplicated).
type IngestResult struct {
	DocId      string `json:"doc_id"`
	Name       string `json:"name"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
	Sha256     string `json:"sha256"`
	PageCount  int    `json:"page_count"`
	ChunkCount int    `json:"chunk_count"`
	Deduped    bool   `json:"deduped"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}
