package rag_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"deskrag/internal/api"
	"deskrag/internal/config"
	"deskrag/internal/domain/errs"
	"deskrag/internal/domain/jobmodel"
	"deskrag/internal/domain/sessionmodel"
	"deskrag/internal/rag"
	"deskrag/internal/rag/llm"
	"deskrag/internal/rag/prompt"
	"deskrag/internal/rag/retrieval"
)

func newService(ret *MockRetriever, gen *MockGenerator, idx *MockIndex, sess *MockSessions, ing *MockIngestor) rag.Service {
	if ret == nil {
		ret = &MockRetriever{}
	}
	if gen == nil {
		gen = &MockGenerator{}
	}
	if idx == nil {
		idx = &MockIndex{}
	}
	if sess == nil {
		sess = NewMockSessions()
	}
	if ing == nil {
		ing = &MockIngestor{}
	}
	return rag.NewService(ret, gen, idx, sess, ing)
}

func traceCtx() context.Context {
	return context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
}

func TestChat_Scenarios(t *testing.T) {
	tests := []struct {
		name          string
		req           api.ChatRequest
		setup         func(ret *MockRetriever, gen *MockGenerator, idx *MockIndex)
		wantErr       error
		wantAbstained bool
		wantAnswer    string
		wantModel     string
	}{
		{
			name:       "answered with citation",
			req:        api.ChatRequest{Question: "refund policy?"},
			wantAnswer: "Refunds take 30 days. [DOC=handbook.pdf|PAGE=2|CHUNK=1]",
			wantModel:  "mock-model",
		},
		{
			name:    "empty question rejected",
			req:     api.ChatRequest{Question: ""},
			wantErr: errs.ErrInvalidParameter,
		},
		{
			name:    "bad mode rejected",
			req:     api.ChatRequest{Question: "q", Mode: "turbo"},
			wantErr: errs.ErrInvalidParameter,
		},
		{
			name:    "top_k over limit rejected",
			req:     api.ChatRequest{Question: "q", TopK: 21},
			wantErr: errs.ErrInvalidParameter,
		},
		{
			name: "weak retrieval abstains before generation",
			req:  api.ChatRequest{Question: "unrelated question"},
			setup: func(ret *MockRetriever, gen *MockGenerator, idx *MockIndex) {
				ret.OnRun = func(_ context.Context, _ string, _ int, _ string) (retrieval.Result, error) {
					return retrieval.Result{BestScore: 0.1, QueryVector: []float32{1}}, nil
				}
			},
			wantAbstained: true,
			wantAnswer:    prompt.AbstainText,
			wantModel:     "none",
		},
		{
			name: "uncited answer becomes abstention",
			req:  api.ChatRequest{Question: "refund policy?"},
			setup: func(ret *MockRetriever, gen *MockGenerator, idx *MockIndex) {
				gen.OnAnswer = func(_ context.Context, _ llm.Tier, _ string) (string, string, error) {
					return "Refunds take 30 days, trust me.", "mock-model", nil
				}
			},
			wantAbstained: true,
			wantAnswer:    prompt.AbstainText,
			wantModel:     "mock-model",
		},
		{
			name: "llm failure surfaces, not abstention",
			req:  api.ChatRequest{Question: "refund policy?"},
			setup: func(ret *MockRetriever, gen *MockGenerator, idx *MockIndex) {
				gen.OnAnswer = func(_ context.Context, _ llm.Tier, _ string) (string, string, error) {
					return "", "", errs.ErrLLMUnavailable
				}
			},
			wantErr: errs.ErrLLMUnavailable,
		},
		{
			name: "retrieval failure surfaces",
			req:  api.ChatRequest{Question: "refund policy?"},
			setup: func(ret *MockRetriever, gen *MockGenerator, idx *MockIndex) {
				ret.OnRun = func(_ context.Context, _ string, _ int, _ string) (retrieval.Result, error) {
					return retrieval.Result{}, errs.ErrVectorIndexUnavailable
				}
			},
			wantErr: errs.ErrVectorIndexUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ret := &MockRetriever{}
			gen := &MockGenerator{}
			idx := &MockIndex{}
			if tt.setup != nil {
				tt.setup(ret, gen, idx)
			}
			s := newService(ret, gen, idx, nil, nil)

			resp, err := s.Chat(traceCtx(), tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Chat failed: %v", err)
			}
			if resp.Abstained != tt.wantAbstained {
				t.Errorf("abstained = %v, want %v", resp.Abstained, tt.wantAbstained)
			}
			if resp.Answer != tt.wantAnswer {
				t.Errorf("answer = %q, want %q", resp.Answer, tt.wantAnswer)
			}
			if resp.ModelUsed != tt.wantModel {
				t.Errorf("model = %q, want %q", resp.ModelUsed, tt.wantModel)
			}
			if tt.wantAbstained && len(resp.Citations) != 0 {
				t.Errorf("abstained answer carries citations: %+v", resp.Citations)
			}
		})
	}
}

func TestChat_NoEvidenceSkipsGeneration(t *testing.T) {
	zero := 0.0
	ret := &MockRetriever{
		OnRun: func(_ context.Context, _ string, _ int, _ string) (retrieval.Result, error) {
			return retrieval.Result{QueryVector: []float32{1}}, nil
		},
	}
	gen := &MockGenerator{
		OnAnswer: func(_ context.Context, _ llm.Tier, _ string) (string, string, error) {
			return "Made up anyway. [DOC=ghost.pdf|PAGE=1|CHUNK=0]", "mock-model", nil
		},
	}
	s := newService(ret, gen, nil, nil, nil)

	// A zero floor must not open the door: with no hits at all there is
	// nothing to cite, so the model is never consulted.
	resp, err := s.Chat(traceCtx(), api.ChatRequest{Question: "anything about returns?", MinScore: &zero})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if !resp.Abstained || resp.Answer != prompt.AbstainText || resp.ModelUsed != "none" {
		t.Errorf("resp = abstained %v answer %q model %q", resp.Abstained, resp.Answer, resp.ModelUsed)
	}
	if len(resp.Citations) != 0 {
		t.Errorf("citations = %+v, want none", resp.Citations)
	}
	if len(gen.Prompts()) != 0 {
		t.Errorf("model consulted %d times with no evidence", len(gen.Prompts()))
	}
}

func TestChat_QualityModeUsesQualityTier(t *testing.T) {
	gen := &MockGenerator{}
	s := newService(nil, gen, nil, nil, nil)

	if _, err := s.Chat(traceCtx(), api.ChatRequest{Question: "q", Mode: "quality"}); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if tiers := gen.Tiers(); len(tiers) != 1 || tiers[0] != llm.TierQuality {
		t.Errorf("tiers = %v, want [quality]", tiers)
	}
}

func TestChat_CacheHitSkipsGeneration(t *testing.T) {
	cached, _ := json.Marshal(map[string]any{
		"answer":     "Cached answer. [DOC=handbook.pdf|PAGE=2|CHUNK=1]",
		"model_used": "mock-model",
	})
	gen := &MockGenerator{}
	idx := &MockIndex{
		OnGetCachedAnswer: func(_ context.Context, _ []float32) (string, bool, error) {
			return string(cached), true, nil
		},
	}
	s := newService(nil, gen, idx, nil, nil)

	resp, err := s.Chat(traceCtx(), api.ChatRequest{Question: "refund policy?"})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if !strings.HasPrefix(resp.Answer, "Cached answer.") {
		t.Errorf("answer = %q, want cached", resp.Answer)
	}
	if len(gen.Prompts()) != 0 {
		t.Error("generation ran despite cache hit")
	}
}

func TestChat_AnswerSavedToCache(t *testing.T) {
	idx := &MockIndex{CacheSaves: make(chan string, 1)}
	s := newService(nil, nil, idx, nil, nil)

	if _, err := s.Chat(traceCtx(), api.ChatRequest{Question: "refund policy?"}); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	select {
	case raw := <-idx.CacheSaves:
		var entry struct {
			Answer string `json:"answer"`
		}
		if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.Answer == "" {
			t.Errorf("cache entry = %q err=%v", raw, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("answer never saved to cache")
	}
}

func TestChat_SessionFlow(t *testing.T) {
	sess := NewMockSessions()
	sess.Sessions["s-1"] = sessionmodel.Session{Id: "s-1", Title: "t"}
	sess.Summaries["s-1"] = "earlier we discussed refunds"
	gen := &MockGenerator{}
	idx := &MockIndex{
		OnGetCachedAnswer: func(_ context.Context, _ []float32) (string, bool, error) {
			t.Error("session chat consulted the semantic cache")
			return "", false, nil
		},
	}
	s := newService(nil, gen, idx, sess, nil)

	resp, err := s.Chat(traceCtx(), api.ChatRequest{Question: "and digital goods?", SessionId: "s-1"})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Abstained {
		t.Fatalf("unexpected abstention: %+v", resp)
	}

	// Both turns persisted.
	msgs := sess.Turns("s-1")
	if len(msgs) < 2 {
		t.Fatalf("persisted %d messages, want question and answer", len(msgs))
	}
	if msgs[0].Role != sessionmodel.RoleUser || msgs[1].Role != sessionmodel.RoleAssistant {
		t.Errorf("turn roles = %s, %s", msgs[0].Role, msgs[1].Role)
	}

	// Prior summary made it into the prompt.
	prompts := gen.Prompts()
	if len(prompts) == 0 || !strings.Contains(prompts[0], "earlier we discussed refunds") {
		t.Error("session summary missing from prompt")
	}
}

func TestChat_UnknownSession(t *testing.T) {
	s := newService(nil, nil, nil, NewMockSessions(), nil)
	_, err := s.Chat(traceCtx(), api.ChatRequest{Question: "q", SessionId: "ghost"})
	if !errors.Is(err, errs.ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestRetrieve(t *testing.T) {
	s := newService(nil, nil, nil, nil, nil)

	resp, err := s.Retrieve(traceCtx(), api.RetrieveRequest{Question: "refund policy?"})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if resp.TopK != config.DefaultTopK || resp.MinScore != config.DefaultMinScore {
		t.Errorf("defaults not applied: %+v", resp)
	}
	if len(resp.Results) != 1 || resp.Results[0].ChunkId != "chunk-1" {
		t.Errorf("results = %+v", resp.Results)
	}

	if _, err := s.Retrieve(traceCtx(), api.RetrieveRequest{Question: ""}); !errors.Is(err, errs.ErrInvalidParameter) {
		t.Errorf("empty question err = %v", err)
	}
}

func TestIngestDocument_JobLifecycle(t *testing.T) {
	upload := filepath.Join(t.TempDir(), "upload.txt")
	if err := os.WriteFile(upload, []byte("file content"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := newService(nil, nil, nil, nil, nil)
	job := jobmodel.Job{
		Id:      "job-1",
		TraceId: "trace-1",
		Payload: jobmodel.Payload{DocumentName: "upload.txt", UploadPath: upload},
	}

	done := s.IngestDocument(context.Background(), job)
	if done.Status != jobmodel.JobStatusComplete {
		t.Fatalf("status = %s, want COMPLETE (%+v)", done.Status, done.Error)
	}
	if done.Payload.Result == nil || done.Payload.Result.DocId != "doc-1" {
		t.Errorf("result = %+v", done.Payload.Result)
	}
	// Spooled upload is cleaned up after a successful ingest.
	if _, err := os.Stat(upload); !os.IsNotExist(err) {
		t.Error("spooled upload still on disk")
	}
}

func TestIngestDocument_Failure(t *testing.T) {
	upload := filepath.Join(t.TempDir(), "upload.txt")
	if err := os.WriteFile(upload, []byte("file content"), 0o644); err != nil {
		t.Fatal(err)
	}

	ing := &MockIngestor{
		OnIngest: func(_ context.Context, _ string, _ []byte) (jobmodel.IngestResult, error) {
			return jobmodel.IngestResult{}, errs.ErrVectorIndexUnavailable
		},
	}
	s := newService(nil, nil, nil, nil, ing)
	job := jobmodel.Job{Id: "job-2", Payload: jobmodel.Payload{DocumentName: "upload.txt", UploadPath: upload}}

	done := s.IngestDocument(context.Background(), job)
	if done.Status != jobmodel.JobStatusError || !done.Error.Retry {
		t.Errorf("job = status %s retry %v, want retryable error", done.Status, done.Error.Retry)
	}
}

func TestIngestDocument_MissingUpload(t *testing.T) {
	s := newService(nil, nil, nil, nil, nil)
	job := jobmodel.Job{Id: "job-3", Payload: jobmodel.Payload{UploadPath: "/nonexistent/file"}}

	done := s.IngestDocument(context.Background(), job)
	if done.Status != jobmodel.JobStatusError || done.Error.Retry {
		t.Errorf("job = status %s retry %v, want non-retryable error", done.Status, done.Error.Retry)
	}
}
