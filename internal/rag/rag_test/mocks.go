package rag_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"deskrag/internal/domain/docmodel"
	"deskrag/internal/domain/errs"
	"deskrag/internal/domain/jobmodel"
	"deskrag/internal/domain/sessionmodel"
	"deskrag/internal/rag/llm"
	"deskrag/internal/rag/retrieval"
)

// MockRetriever implements rag.Retriever.
type MockRetriever struct {
	OnRun func(ctx context.Context, question string, topK int, docID string) (retrieval.Result, error)
}

func (m *MockRetriever) Run(ctx context.Context, question string, topK int, docID string) (retrieval.Result, error) {
	if m.OnRun != nil {
		return m.OnRun(ctx, question, topK, docID)
	}
	return retrieval.Result{
		Hits: []docmodel.SearchHit{
			{
				Id:    "chunk-1",
				Score: 0.9,
				Payload: docmodel.ChunkPayload{
					DocId:      "doc-1",
					DocName:    "handbook.pdf",
					PageNumber: 2,
					ChunkIndex: 1,
					Text:       "Refunds are processed within 30 days.",
				},
			},
		},
		BestScore:   0.9,
		QueryVector: []float32{1, 0, 0},
	}, nil
}

// MockGenerator implements rag.Generator. Recorded calls are guarded
// because summary refreshes run in the background.
type MockGenerator struct {
	OnAnswer func(ctx context.Context, tier llm.Tier, prompt string) (string, string, error)

	mu      sync.Mutex
	prompts []string
	tiers   []llm.Tier
}

func (m *MockGenerator) Answer(ctx context.Context, tier llm.Tier, prompt string) (string, string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.tiers = append(m.tiers, tier)
	m.mu.Unlock()
	if m.OnAnswer != nil {
		return m.OnAnswer(ctx, tier, prompt)
	}
	return "Refunds take 30 days. [DOC=handbook.pdf|PAGE=2|CHUNK=1]", "mock-model", nil
}

func (m *MockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

func (m *MockGenerator) Tiers() []llm.Tier {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Tier(nil), m.tiers...)
}

// MockIndex implements vectorDB.Index.
type MockIndex struct {
	OnGetCachedAnswer func(ctx context.Context, queryVector []float32) (string, bool, error)
	OnSaveToCache     func(ctx context.Context, id string, vector []float32, answer string) error

	CacheSaves chan string
}

func (m *MockIndex) EnsureCollections(ctx context.Context) error { return nil }

func (m *MockIndex) UpsertChunks(ctx context.Context, records []docmodel.VectorRecord) error {
	return nil
}

func (m *MockIndex) Search(ctx context.Context, vector []float32, topK int, docID string) ([]docmodel.SearchHit, error) {
	return nil, nil
}

func (m *MockIndex) DeleteByDocument(ctx context.Context, docID string) error { return nil }

func (m *MockIndex) GetCachedAnswer(ctx context.Context, v []float32) (string, bool, error) {
	if m.OnGetCachedAnswer != nil {
		return m.OnGetCachedAnswer(ctx, v)
	}
	return "", false, nil
}

func (m *MockIndex) SaveToCache(ctx context.Context, id string, v []float32, answer string) error {
	if m.CacheSaves != nil {
		m.CacheSaves <- answer
	}
	if m.OnSaveToCache != nil {
		return m.OnSaveToCache(ctx, id, v, answer)
	}
	return nil
}

// MockSessions implements rag.SessionStore over in-memory maps. The mutex
// matters: summary refreshes write from a background goroutine.
type MockSessions struct {
	mu        sync.Mutex
	Sessions  map[string]sessionmodel.Session
	Messages  map[string][]sessionmodel.Message
	Summaries map[string]string
}

func NewMockSessions() *MockSessions {
	return &MockSessions{
		Sessions:  make(map[string]sessionmodel.Session),
		Messages:  make(map[string][]sessionmodel.Message),
		Summaries: make(map[string]string),
	}
}

func (m *MockSessions) GetSession(ctx context.Context, id string) (sessionmodel.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Sessions[id]
	if !ok {
		return sessionmodel.Session{}, fmt.Errorf("%w: %s", errs.ErrSessionNotFound, id)
	}
	return s, nil
}

func (m *MockSessions) AddMessage(ctx context.Context, sessionID string, role sessionmodel.Role, content string) (sessionmodel.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Sessions[sessionID]; !ok {
		return sessionmodel.Message{}, fmt.Errorf("%w: %s", errs.ErrSessionNotFound, sessionID)
	}
	msg := sessionmodel.Message{
		Id:        fmt.Sprintf("msg-%d", len(m.Messages[sessionID])),
		SessionId: sessionID,
		Role:      role,
		Content:   content,
	}
	m.Messages[sessionID] = append(m.Messages[sessionID], msg)
	return msg, nil
}

func (m *MockSessions) ListMessages(ctx context.Context, sessionID string, limit int) ([]sessionmodel.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Sessions[sessionID]; !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrSessionNotFound, sessionID)
	}
	msgs := m.Messages[sessionID]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (m *MockSessions) GetSummary(ctx context.Context, sessionID string) (sessionmodel.Summary, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Summaries[sessionID]
	if !ok {
		return sessionmodel.Summary{}, false, nil
	}
	return sessionmodel.Summary{SessionId: sessionID, Text: s, UpdatedAt: time.Now()}, true, nil
}

func (m *MockSessions) UpsertSummary(ctx context.Context, sessionID, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Summaries[sessionID] = summary
	return nil
}

// Turns returns a copy of a session's stored messages.
func (m *MockSessions) Turns(sessionID string) []sessionmodel.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sessionmodel.Message(nil), m.Messages[sessionID]...)
}

// MockIngestor implements rag.Ingestor.
type MockIngestor struct {
	OnIngest func(ctx context.Context, filename string, data []byte) (jobmodel.IngestResult, error)
	OnRemove func(ctx context.Context, docID string) error
}

func (m *MockIngestor) Ingest(ctx context.Context, filename string, data []byte) (jobmodel.IngestResult, error) {
	if m.OnIngest != nil {
		return m.OnIngest(ctx, filename, data)
	}
	return jobmodel.IngestResult{DocId: "doc-1", Name: filename, ChunkCount: 3}, nil
}

func (m *MockIngestor) Remove(ctx context.Context, docID string) error {
	if m.OnRemove != nil {
		return m.OnRemove(ctx, docID)
	}
	return nil
}
