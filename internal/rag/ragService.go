package rag

import (
	"context"
	"fmt"
	"os"
	"time"

	"deskrag/internal/api"
	"deskrag/internal/config"
	"deskrag/internal/domain/docmodel"
	"deskrag/internal/domain/errs"
	"deskrag/internal/domain/jobmodel"
	"deskrag/internal/domain/sessionmodel"
	"deskrag/internal/metrics"
	"deskrag/internal/rag/guardrails"
	"deskrag/internal/rag/llm"
	"deskrag/internal/rag/prompt"
	"deskrag/internal/rag/retrieval"
	"deskrag/internal/rag/vectorDB"
	"deskrag/pkg/logger_i"
)

// Retriever runs the retrieval pipeline for one question.
type Retriever interface {
	Run(ctx context.Context, question string, topK int, docID string) (retrieval.Result, error)
}

// Generator produces a completion and reports the model that served it.
type Generator interface {
	Answer(ctx context.Context, tier llm.Tier, prompt string) (string, string, error)
}

// SessionStore is the slice of the relational store chat memory needs.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (sessionmodel.Session, error)
	AddMessage(ctx context.Context, sessionID string, role sessionmodel.Role, content string) (sessionmodel.Message, error)
	ListMessages(ctx context.Context, sessionID string, limit int) ([]sessionmodel.Message, error)
	GetSummary(ctx context.Context, sessionID string) (sessionmodel.Summary, bool, error)
	UpsertSummary(ctx context.Context, sessionID, summary string) error
}

// Ingestor owns document ingestion and removal.
type Ingestor interface {
	Ingest(ctx context.Context, filename string, data []byte) (jobmodel.IngestResult, error)
	Remove(ctx context.Context, docID string) error
}

// Service is the one surface handlers and workers talk to; they never see
// the vector index, the LLM or the stores directly.
type Service interface {
	Chat(ctx context.Context, req api.ChatRequest) (api.ChatResponse, error)
	Retrieve(ctx context.Context, req api.RetrieveRequest) (api.RetrieveResponse, error)
	IngestDocument(ctx context.Context, job jobmodel.Job) jobmodel.Job
	RemoveDocument(ctx context.Context, docID string) error
}

type service struct {
	retriever Retriever
	generator Generator
	index     vectorDB.Index
	sessions  SessionStore
	ingestor  Ingestor
	logger    *logger_i.Logger
}

func NewService(retriever Retriever, generator Generator, index vectorDB.Index, sessions SessionStore, ingestor Ingestor) Service {
	return &service{
		retriever: retriever,
		generator: generator,
		index:     index,
		sessions:  sessions,
		ingestor:  ingestor,
		logger:    logger_i.NewLogger("RAG Service"),
	}
}

func (s *service) Chat(ctx context.Context, req api.ChatRequest) (api.ChatResponse, error) {
	loggr := s.logger.With(config.TRACE_ID_KEY, ctx.Value(config.TRACE_ID_KEY))
	start := time.Now()

	mode, topK, minScore, err := chatParams(req.Question, req.Mode, req.TopK, req.MinScore)
	if err != nil {
		return api.ChatResponse{}, err
	}

	var memory *prompt.Memory
	if req.SessionId != "" {
		memory, err = s.loadMemory(ctx, req.SessionId)
		if err != nil {
			return api.ChatResponse{}, err
		}
	}

	result, err := s.retriever.Run(ctx, req.Question, topK, req.DocId)
	if err != nil {
		metrics.CaptureChatMetrics("error", time.Since(start))
		return api.ChatResponse{}, err
	}
	metrics.CaptureExecutionMetrics("embedding", time.Duration(result.Timings.EmbedMs)*time.Millisecond)
	metrics.CaptureExecutionMetrics("vector_search", time.Duration(result.Timings.QdrantMs)*time.Millisecond)

	// Weak or empty retrieval: abstain without ever calling the model.
	if guardrails.ShouldAbstainFromRetrieval(len(result.Hits), result.BestScore, minScore) {
		loggr.Info("abstaining before generation", "hits", len(result.Hits), "bestScore", result.BestScore, "minScore", minScore)
		resp := api.ChatResponse{
			Answer:    prompt.AbstainText,
			Abstained: true,
			ModeUsed:  mode,
			ModelUsed: "none",
			Citations: []docmodel.Citation{},
			Latency:   latency(result.Timings, 0, start),
		}
		s.persistTurns(ctx, req.SessionId, req.Question, resp.Answer)
		metrics.CaptureChatMetrics("abstained", time.Since(start))
		return resp, nil
	}

	// Session chats skip the semantic cache; a cached answer ignores the
	// conversation so far.
	if req.SessionId == "" {
		if resp, hit := s.cacheLookup(ctx, mode, result, start); hit {
			metrics.CaptureChatMetrics("answered", time.Since(start))
			return resp, nil
		}
	}

	citations, contextChunks := retrieval.MapForChat(result.Hits, minScore)
	promptText := prompt.Build(req.Question, contextChunks, memory)

	llmStart := time.Now()
	answer, model, err := s.generator.Answer(ctx, llm.Tier(mode), promptText)
	llmMs := time.Since(llmStart).Milliseconds()
	metrics.CaptureExecutionMetrics("llm_generation", time.Since(llmStart))
	if err != nil {
		// Infrastructure failure is not abstention; the caller must see it.
		loggr.Error("generation failed", "error", err)
		metrics.CaptureChatMetrics("error", time.Since(start))
		return api.ChatResponse{}, err
	}

	abstained, final := guardrails.ValidateOrAbstain(answer)
	if abstained {
		citations = []docmodel.Citation{}
	}

	resp := api.ChatResponse{
		Answer:    final,
		Abstained: abstained,
		ModeUsed:  mode,
		ModelUsed: model,
		Citations: citations,
		Latency:   latency(result.Timings, llmMs, start),
	}

	s.persistTurns(ctx, req.SessionId, req.Question, final)

	if !abstained && req.SessionId == "" {
		go s.saveAnswerToCache(detach(ctx), result.QueryVector, resp)
	}
	if req.SessionId != "" {
		go s.refreshSummary(detach(ctx), req.SessionId)
	}

	outcome := "answered"
	if abstained {
		outcome = "abstained"
	}
	metrics.CaptureChatMetrics(outcome, time.Since(start))
	return resp, nil
}

func (s *service) Retrieve(ctx context.Context, req api.RetrieveRequest) (api.RetrieveResponse, error) {
	_, topK, minScore, err := chatParams(req.Question, "fast", req.TopK, req.MinScore)
	if err != nil {
		return api.RetrieveResponse{}, err
	}

	start := time.Now()
	result, err := s.retriever.Run(ctx, req.Question, topK, req.DocId)
	if err != nil {
		return api.RetrieveResponse{}, err
	}
	metrics.CaptureExecutionMetrics("embedding", time.Duration(result.Timings.EmbedMs)*time.Millisecond)
	metrics.CaptureExecutionMetrics("vector_search", time.Duration(result.Timings.QdrantMs)*time.Millisecond)

	return api.RetrieveResponse{
		Question: req.Question,
		TopK:     topK,
		MinScore: minScore,
		Results:  retrieval.MapForRetrieve(result.Hits, minScore),
		Latency:  latency(result.Timings, 0, start),
	}, nil
}

// IngestDocument runs inside a worker: read the spooled upload, ingest it,
// and report progress through the job record.
func (s *service) IngestDocument(ctx context.Context, job jobmodel.Job) jobmodel.Job {
	loggr := s.logger.With(config.TRACE_ID_KEY, job.TraceId, "jobId", job.Id)
	start := time.Now()

	job.CurrentStep = jobmodel.IngestParsing
	data, err := os.ReadFile(job.Payload.UploadPath)
	if err != nil {
		loggr.Error("reading spooled upload failed", "path", job.Payload.UploadPath, "error", err)
		return s.jobError(job, err, "UPLOAD_READ_FAILURE", false)
	}

	job.CurrentStep = jobmodel.IngestEmbedding
	result, err := s.ingestor.Ingest(ctx, job.Payload.DocumentName, data)
	if err != nil {
		return s.jobError(job, err, "INGESTION_FAILURE", true)
	}

	if err := os.Remove(job.Payload.UploadPath); err != nil {
		loggr.Error("removing spooled upload failed", "path", job.Payload.UploadPath, "error", err)
	}

	job.Payload.Result = &result
	if result.Deduped {
		job.CurrentStep = jobmodel.IngestDeduped
	} else {
		job.CurrentStep = jobmodel.Complete
	}
	job.Status = jobmodel.JobStatusComplete
	loggr.Info("ingestion job finished", "docId", result.DocId, "deduped", result.Deduped, "elapsed", time.Since(start))
	return job
}

func (s *service) RemoveDocument(ctx context.Context, docID string) error {
	return s.ingestor.Remove(ctx, docID)
}

// chatParams validates and defaults the shared request knobs.
func chatParams(question, mode string, topK int, minScore *float64) (string, int, float64, error) {
	if question == "" {
		return "", 0, 0, fmt.Errorf("%w: question is required", errs.ErrInvalidParameter)
	}
	if len(question) > 4000 {
		return "", 0, 0, fmt.Errorf("%w: question exceeds 4000 characters", errs.ErrInvalidParameter)
	}

	if mode == "" {
		mode = string(llm.TierFast)
	}
	if mode != string(llm.TierFast) && mode != string(llm.TierQuality) {
		return "", 0, 0, fmt.Errorf("%w: mode must be fast or quality", errs.ErrInvalidParameter)
	}

	if topK == 0 {
		topK = config.DefaultTopK
	}
	if topK < 1 || topK > config.MaxTopK {
		return "", 0, 0, fmt.Errorf("%w: top_k must be between 1 and %d", errs.ErrInvalidParameter, config.MaxTopK)
	}

	score := config.DefaultMinScore
	if minScore != nil {
		score = *minScore
	}
	if score < 0 || score > 1 {
		return "", 0, 0, fmt.Errorf("%w: min_score must be between 0 and 1", errs.ErrInvalidParameter)
	}

	return mode, topK, score, nil
}
