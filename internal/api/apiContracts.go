package api

import (
	"deskrag/internal/domain/docmodel"
	"deskrag/internal/domain/jobmodel"
	"deskrag/internal/rag/retrieval"
)

// Request and response contracts for the HTTP surface. Field names follow
// the wire format the UI and eval harness consume.

type ChatRequest struct {
	Question  string   `json:"question"`
	Mode      string   `json:"mode,omitempty"`
	TopK      int      `json:"top_k,omitempty"`
	MinScore  *float64 `json:"min_score,omitempty"`
	DocId     string   `json:"doc_id,omitempty"`
	SessionId string   `json:"session_id,omitempty"`
}

type LatencyBreakdown struct {
	EmbedMs  int64 `json:"embed_ms"`
	QdrantMs int64 `json:"qdrant_ms"`
	LlmMs    int64 `json:"llm_ms"`
	TotalMs  int64 `json:"total_ms"`
}

type ChatResponse struct {
	Answer    string              `json:"answer"`
	Abstained bool                `json:"abstained"`
	ModeUsed  string              `json:"mode_used"`
	ModelUsed string              `json:"model_used"`
	Citations []docmodel.Citation `json:"citations"`
	Latency   LatencyBreakdown    `json:"latency"`
}

type RetrieveRequest struct {
	Question string   `json:"question"`
	TopK     int      `json:"top_k,omitempty"`
	MinScore *float64 `json:"min_score,omitempty"`
	DocId    string   `json:"doc_id,omitempty"`
}

type RetrieveResponse struct {
	Question string                     `json:"question"`
	TopK     int                        `json:"top_k"`
	MinScore float64                    `json:"min_score"`
	Results  []retrieval.RetrievedChunk `json:"results"`
	Latency  LatencyBreakdown           `json:"latency"`
}

type CreateSessionRequest struct {
	Title string `json:"title,omitempty"`
}

type CreateSessionResponse struct {
	SessionId string `json:"session_id"`
	Title     string `json:"title"`
}

type SessionMessage struct {
	Id        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type GetSessionResponse struct {
	SessionId string           `json:"session_id"`
	Title     string           `json:"title"`
	CreatedAt string           `json:"created_at"`
	Summary   string           `json:"summary,omitempty"`
	Messages  []SessionMessage `json:"messages"`
}

// InitJobResponse acknowledges an accepted ingestion with the id to poll.
type InitJobResponse struct {
	JobId   string `json:"job_id"`
	Status  string `json:"status"`
	TraceId string `json:"trace_id"`
}

// JobStatusResponse is the polling view over a job.
type JobStatusResponse struct {
	JobId       string                 `json:"job_id"`
	Status      jobmodel.JobStatus     `json:"status"`
	CurrentStep string                 `json:"current_step"`
	Result      *jobmodel.IngestResult `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

type DeleteDocumentResponse struct {
	Deleted bool   `json:"deleted"`
	DocId   string `json:"doc_id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
