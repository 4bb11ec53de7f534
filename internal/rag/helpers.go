package rag

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"deskrag/internal/api"
	"deskrag/internal/config"
	"deskrag/internal/domain/docmodel"
	"deskrag/internal/domain/jobmodel"
	"deskrag/internal/domain/sessionmodel"
	"deskrag/internal/metrics"
	"deskrag/internal/rag/llm"
	"deskrag/internal/rag/prompt"
	"deskrag/internal/rag/retrieval"
)

// cachedAnswer is the JSON payload stored in the semantic cache collection.
type cachedAnswer struct {
	Answer    string              `json:"answer"`
	ModelUsed string              `json:"model_used"`
	Citations []docmodel.Citation `json:"citations"`
}

func latency(timings retrieval.Timings, llmMs int64, start time.Time) api.LatencyBreakdown {
	return api.LatencyBreakdown{
		EmbedMs:  timings.EmbedMs,
		QdrantMs: timings.QdrantMs,
		LlmMs:    llmMs,
		TotalMs:  time.Since(start).Milliseconds(),
	}
}

// detach keeps the trace id but drops the request's cancellation, for work
// that outlives the response.
func detach(ctx context.Context) context.Context {
	return context.WithValue(context.Background(), config.TRACE_ID_KEY, ctx.Value(config.TRACE_ID_KEY))
}

func (s *service) loadMemory(ctx context.Context, sessionID string) (*prompt.Memory, error) {
	if _, err := s.sessions.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	summary, _, err := s.sessions.GetSummary(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	messages, err := s.sessions.ListMessages(ctx, sessionID, config.MaxMessageLimit)
	if err != nil {
		return nil, err
	}
	if len(messages) > config.RecentTurnWindow {
		messages = messages[len(messages)-config.RecentTurnWindow:]
	}

	return &prompt.Memory{Summary: summary.Text, RecentTurns: messages}, nil
}

// persistTurns appends the question/answer pair to the session. Persistence
// failures are logged, not surfaced; the user already has the answer.
func (s *service) persistTurns(ctx context.Context, sessionID, question, answer string) {
	if sessionID == "" {
		return
	}
	if _, err := s.sessions.AddMessage(ctx, sessionID, sessionmodel.RoleUser, question); err != nil {
		s.logger.Error("failed to persist user turn", "sessionId", sessionID, "error", err)
		return
	}
	if _, err := s.sessions.AddMessage(ctx, sessionID, sessionmodel.RoleAssistant, answer); err != nil {
		s.logger.Error("failed to persist assistant turn", "sessionId", sessionID, "error", err)
	}
}

func (s *service) cacheLookup(ctx context.Context, mode string, result retrieval.Result, start time.Time) (api.ChatResponse, bool) {
	cacheStart := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("cache_lookup", time.Since(cacheStart)) }()

	raw, found, err := s.index.GetCachedAnswer(ctx, result.QueryVector)
	if err != nil || !found {
		return api.ChatResponse{}, false
	}

	var cached cachedAnswer
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		s.logger.Error("corrupt cache entry, ignoring", "error", err)
		return api.ChatResponse{}, false
	}

	return api.ChatResponse{
		Answer:    cached.Answer,
		Abstained: false,
		ModeUsed:  mode,
		ModelUsed: cached.ModelUsed,
		Citations: cached.Citations,
		Latency:   latency(result.Timings, 0, start),
	}, true
}

func (s *service) saveAnswerToCache(ctx context.Context, queryVector []float32, resp api.ChatResponse) {
	raw, err := json.Marshal(cachedAnswer{
		Answer:    resp.Answer,
		ModelUsed: resp.ModelUsed,
		Citations: resp.Citations,
	})
	if err != nil {
		s.logger.Error("failed to encode cache entry", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, config.MetadataTimeout)
	defer cancel()
	if err := s.index.SaveToCache(ctx, uuid.New().String(), queryVector, string(raw)); err != nil {
		s.logger.Error("failed to save answer to cache", "error", err)
	}
}

// refreshSummary recomputes the rolling session summary on the fast tier.
func (s *service) refreshSummary(ctx context.Context, sessionID string) {
	ctx, cancel := context.WithTimeout(ctx, config.GenerationTimeout)
	defer cancel()

	previous, _, err := s.sessions.GetSummary(ctx, sessionID)
	if err != nil {
		s.logger.Error("summary refresh: reading previous failed", "sessionId", sessionID, "error", err)
		return
	}
	messages, err := s.sessions.ListMessages(ctx, sessionID, config.MaxMessageLimit)
	if err != nil {
		s.logger.Error("summary refresh: listing messages failed", "sessionId", sessionID, "error", err)
		return
	}
	if len(messages) == 0 {
		return
	}

	summary, _, err := s.generator.Answer(ctx, llm.TierFast, prompt.BuildSummaryPrompt(previous.Text, messages))
	if err != nil {
		s.logger.Error("summary refresh: generation failed", "sessionId", sessionID, "error", err)
		return
	}
	if err := s.sessions.UpsertSummary(ctx, sessionID, summary); err != nil {
		s.logger.Error("summary refresh: upsert failed", "sessionId", sessionID, "error", err)
	}
}

func (s *service) jobError(job jobmodel.Job, err error, message string, canRetry bool) jobmodel.Job {
	s.logger.Error(message, "jobId", job.Id, "error", err)

	job.Error = jobmodel.JobError{
		Code:    http.StatusInternalServerError,
		Message: message,
		Retry:   canRetry,
	}
	job.Status = jobmodel.JobStatusError
	job.CurrentStep = jobmodel.IngestErrorState
	return job
}
