package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"deskrag/internal/api"
	"deskrag/internal/data/store"
	"deskrag/internal/domain/docmodel"
	"deskrag/internal/domain/errs"
	"deskrag/internal/domain/jobmodel"
	"deskrag/internal/domain/sessionmodel"
	"deskrag/internal/job"
	"deskrag/pkg/logger_i"
)

type mockRagService struct {
	OnChat     func(ctx context.Context, req api.ChatRequest) (api.ChatResponse, error)
	OnRetrieve func(ctx context.Context, req api.RetrieveRequest) (api.RetrieveResponse, error)
	OnRemove   func(ctx context.Context, docID string) error
}

func (m *mockRagService) Chat(ctx context.Context, req api.ChatRequest) (api.ChatResponse, error) {
	if m.OnChat != nil {
		return m.OnChat(ctx, req)
	}
	return api.ChatResponse{Answer: "grounded answer", ModeUsed: "fast", ModelUsed: "phi3:mini"}, nil
}

func (m *mockRagService) Retrieve(ctx context.Context, req api.RetrieveRequest) (api.RetrieveResponse, error) {
	if m.OnRetrieve != nil {
		return m.OnRetrieve(ctx, req)
	}
	return api.RetrieveResponse{Question: req.Question, TopK: 6, MinScore: 0.25}, nil
}

func (m *mockRagService) IngestDocument(ctx context.Context, j jobmodel.Job) jobmodel.Job {
	return j
}

func (m *mockRagService) RemoveDocument(ctx context.Context, docID string) error {
	if m.OnRemove != nil {
		return m.OnRemove(ctx, docID)
	}
	return nil
}

type mockDocStore struct {
	OnGetSession func(ctx context.Context, id string) (sessionmodel.Session, error)
}

func (m *mockDocStore) ListDocuments(ctx context.Context) ([]store.DocumentInfo, error) {
	return nil, nil
}

func (m *mockDocStore) ListChunks(ctx context.Context, docID string, page *int, limit int) ([]docmodel.Chunk, error) {
	return []docmodel.Chunk{{Id: "c1", DocId: docID, PageNumber: 1, ChunkIndex: 0, Text: "chunk text"}}, nil
}

func (m *mockDocStore) GetDocument(ctx context.Context, id string) (docmodel.Document, bool, error) {
	if id == "missing" {
		return docmodel.Document{}, false, nil
	}
	return docmodel.Document{Id: id, Name: "handbook.pdf"}, true, nil
}

func (m *mockDocStore) CreateSession(ctx context.Context, title string) (sessionmodel.Session, error) {
	return sessionmodel.Session{Id: "sess-1", Title: title, CreatedAt: time.Now()}, nil
}

func (m *mockDocStore) GetSession(ctx context.Context, id string) (sessionmodel.Session, error) {
	if m.OnGetSession != nil {
		return m.OnGetSession(ctx, id)
	}
	return sessionmodel.Session{Id: id, Title: "support"}, nil
}

func (m *mockDocStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]sessionmodel.Message, error) {
	return []sessionmodel.Message{
		{Id: "m1", SessionId: sessionID, Role: sessionmodel.RoleUser, Content: "hi"},
	}, nil
}

func (m *mockDocStore) GetSummary(ctx context.Context, sessionID string) (sessionmodel.Summary, bool, error) {
	return sessionmodel.Summary{SessionId: sessionID, Text: "talked about refunds", UpdatedAt: time.Now()}, true, nil
}

type mockJobStore struct {
	mu   sync.Mutex
	jobs map[string]jobmodel.Job
}

func (m *mockJobStore) GetJob(ctx context.Context, jobId string) (jobmodel.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobId]
	return j, ok
}

func (m *mockJobStore) SaveJob(ctx context.Context, j jobmodel.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.jobs == nil {
		m.jobs = make(map[string]jobmodel.Job)
	}
	m.jobs[j.Id] = j
	return nil
}

func (m *mockJobStore) DeleteJob(ctx context.Context, jobID string) {}

// setupHandlers rewires the package singleton for one test.
func setupHandlers(t *testing.T, ragSvc *mockRagService) (*mockJobStore, *job.Service) {
	t.Helper()
	jobStore := &mockJobStore{}
	jobService := &job.Service{
		JobChannel:        make(chan jobmodel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          jobStore,
	}
	handlerInstance = &JobHandler{
		service:    jobService,
		ragService: ragSvc,
		docStore:   &mockDocStore{},
		probes: map[string]HealthProbe{
			"qdrant": func(ctx context.Context) error { return nil },
			"llm":    func(ctx context.Context) error { return nil },
		},
	}
	logJH = logger_i.NewLogger("JobHandlerTest")
	logRH = logger_i.NewLogger("RequestHandlerTest")
	return jobStore, jobService
}

func newTestRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Get("/health", HealthHandler)
	r.Post("/chat", ChatHandler)
	r.Post("/retrieve", RetrieveHandler)
	r.Post("/ingest", PostIngestHandler)
	r.Get("/status/{id}", GetStatusHandler)
	r.Get("/documents", ListDocumentsHandler)
	r.Get("/documents/{id}/chunks", ListChunksHandler)
	r.Delete("/documents/{id}", DeleteDocumentHandler)
	r.Post("/sessions", CreateSessionHandler)
	r.Get("/sessions/{id}", GetSessionHandler)
	return r
}

func doJSON(t *testing.T, router *chi.Mux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestChatHandler_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		chatErr  error
		wantCode int
	}{
		{"answered", nil, http.StatusOK},
		{"invalid parameter", fmt.Errorf("%w: question is required", errs.ErrInvalidParameter), http.StatusBadRequest},
		{"unknown session", fmt.Errorf("%w: s-404", errs.ErrSessionNotFound), http.StatusNotFound},
		{"llm down", fmt.Errorf("%w: all candidates failed", errs.ErrLLMUnavailable), http.StatusServiceUnavailable},
		{"qdrant down", fmt.Errorf("%w: dial", errs.ErrVectorIndexUnavailable), http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setupHandlers(t, &mockRagService{
				OnChat: func(ctx context.Context, req api.ChatRequest) (api.ChatResponse, error) {
					if tc.chatErr != nil {
						return api.ChatResponse{}, tc.chatErr
					}
					return api.ChatResponse{Answer: "ok", ModeUsed: "fast"}, nil
				},
			})
			rec := doJSON(t, newTestRouter(), http.MethodPost, "/chat", api.ChatRequest{Question: "what is the refund policy?"})
			if rec.Code != tc.wantCode {
				t.Errorf("status = %d, want %d, body %s", rec.Code, tc.wantCode, rec.Body.String())
			}
		})
	}
}

func TestChatHandler_BadJSON(t *testing.T) {
	setupHandlers(t, &mockRagService{})
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRetrieveHandler(t *testing.T) {
	setupHandlers(t, &mockRagService{})
	rec := doJSON(t, newTestRouter(), http.MethodPost, "/retrieve", api.RetrieveRequest{Question: "refunds?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp api.RetrieveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.TopK != 6 || resp.MinScore != 0.25 {
		t.Errorf("defaults not echoed: %+v", resp)
	}
}

func TestPostIngestHandler_QueuesJob(t *testing.T) {
	jobStore, jobService := setupHandlers(t, &mockRagService{})
	t.Cleanup(func() { os.RemoveAll("temporary_data") })

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("document_name", "Employee Handbook"); err != nil {
		t.Fatal(err)
	}
	part, err := writer.CreateFormFile("document", "handbook.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte("Refunds take 30 days.")); err != nil {
		t.Fatal(err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/ingest", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp api.InitJobResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.JobId == "" || resp.Status != string(jobmodel.JobStatusQueued) {
		t.Errorf("unexpected init response: %+v", resp)
	}

	select {
	case queued := <-jobService.JobChannel:
		if queued.Payload.DocumentName != "Employee Handbook.txt" {
			t.Errorf("document name = %q, want display name with inherited extension", queued.Payload.DocumentName)
		}
		if _, err := os.Stat(queued.Payload.UploadPath); err != nil {
			t.Errorf("spooled upload missing: %v", err)
		}
	default:
		t.Fatal("no job queued")
	}

	if _, ok := jobStore.GetJob(context.Background(), resp.JobId); !ok {
		t.Error("queued job not persisted for polling")
	}
	select {
	case <-jobService.DispatcherChannel:
	default:
		t.Error("dispatcher not signaled")
	}
}

func TestGetStatusHandler(t *testing.T) {
	jobStore, _ := setupHandlers(t, &mockRagService{})
	jobStore.SaveJob(context.Background(), jobmodel.Job{
		Id:          "job-1",
		Status:      jobmodel.JobStatusComplete,
		CurrentStep: jobmodel.Complete,
		Payload:     jobmodel.Payload{Result: &jobmodel.IngestResult{DocId: "doc-1", ChunkCount: 3}},
	})
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/status/job-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp api.JobStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != jobmodel.JobStatusComplete || resp.Result == nil || resp.Result.DocId != "doc-1" {
		t.Errorf("unexpected status response: %+v", resp)
	}

	rec = doJSON(t, router, http.MethodGet, "/status/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing job status = %d, want 404", rec.Code)
	}
}

func TestDocumentHandlers(t *testing.T) {
	setupHandlers(t, &mockRagService{})
	router := newTestRouter()

	t.Run("list is an array even when empty", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/documents", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
			t.Errorf("body = %q, want []", body)
		}
	})

	t.Run("chunks for unknown document", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/documents/missing/chunks", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("chunks with page filter", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/documents/doc-1/chunks?page=1&limit=50", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("bad page query", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/documents/doc-1/chunks?page=two", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestDeleteDocumentHandler(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		setupHandlers(t, &mockRagService{})
		rec := doJSON(t, newTestRouter(), http.MethodDelete, "/documents/doc-1", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var resp api.DeleteDocumentResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if !resp.Deleted || resp.DocId != "doc-1" {
			t.Errorf("unexpected delete response: %+v", resp)
		}
	})

	t.Run("vector index down aborts with 503", func(t *testing.T) {
		setupHandlers(t, &mockRagService{
			OnRemove: func(ctx context.Context, docID string) error {
				return fmt.Errorf("%w: dial", errs.ErrVectorIndexUnavailable)
			},
		})
		rec := doJSON(t, newTestRouter(), http.MethodDelete, "/documents/doc-1", nil)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})

	t.Run("unknown document", func(t *testing.T) {
		setupHandlers(t, &mockRagService{
			OnRemove: func(ctx context.Context, docID string) error {
				return fmt.Errorf("%w: %s", errs.ErrDocumentNotFound, docID)
			},
		})
		rec := doJSON(t, newTestRouter(), http.MethodDelete, "/documents/ghost", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestSessionHandlers(t *testing.T) {
	setupHandlers(t, &mockRagService{})
	router := newTestRouter()

	t.Run("create", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/sessions", api.CreateSessionRequest{Title: "support"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d", rec.Code)
		}
		var resp api.CreateSessionResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.SessionId == "" || resp.Title != "support" {
			t.Errorf("unexpected create response: %+v", resp)
		}
	})

	t.Run("create with empty body", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/sessions", nil)
		if rec.Code != http.StatusCreated {
			t.Errorf("status = %d, want 201", rec.Code)
		}
	})

	t.Run("get with summary and history", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/sessions/sess-1", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var resp api.GetSessionResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Summary != "talked about refunds" || len(resp.Messages) != 1 {
			t.Errorf("unexpected session response: %+v", resp)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		setupHandlers(t, &mockRagService{})
		handlerInstance.docStore = &mockDocStore{
			OnGetSession: func(ctx context.Context, id string) (sessionmodel.Session, error) {
				return sessionmodel.Session{}, fmt.Errorf("%w: %s", errs.ErrSessionNotFound, id)
			},
		}
		rec := doJSON(t, newTestRouter(), http.MethodGet, "/sessions/ghost", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestHealthHandler(t *testing.T) {
	t.Run("all dependencies up", func(t *testing.T) {
		setupHandlers(t, &mockRagService{})
		rec := doJSON(t, newTestRouter(), http.MethodGet, "/health", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("one dependency down", func(t *testing.T) {
		setupHandlers(t, &mockRagService{})
		handlerInstance.probes["llm"] = func(ctx context.Context) error {
			return errors.New("connection refused")
		}
		rec := doJSON(t, newTestRouter(), http.MethodGet, "/health", nil)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}
		var report healthReport
		if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
			t.Fatal(err)
		}
		if report.Status != "degraded" || report.Services["llm"] != "down" || report.Services["qdrant"] != "ok" {
			t.Errorf("unexpected report: %+v", report)
		}
	})
}
