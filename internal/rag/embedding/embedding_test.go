package embedding_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"deskrag/internal/domain/errs"
	"deskrag/internal/rag/embedding"
)

func fakeBackend(t *testing.T, vectors [][]float32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"embeddings": vectors})
	}))
}

func TestEmbedTexts_Normalizes(t *testing.T) {
	backend := fakeBackend(t, [][]float32{{3, 4, 0}})
	defer backend.Close()

	e := embedding.NewTestEmbedder(backend.URL, "test-model", 3)
	got, err := e.EmbedTexts(context.Background(), []string{"hello"})
	if err != nil {
		t.Fatalf("EmbedTexts failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d vectors, want 1", len(got))
	}

	var norm float64
	for _, x := range got[0] {
		norm += float64(x) * float64(x)
	}
	if math.Abs(math.Sqrt(norm)-1.0) > 1e-5 {
		t.Errorf("vector norm = %f, want 1", math.Sqrt(norm))
	}
	// 3-4-0 normalizes to 0.6-0.8-0.
	if math.Abs(float64(got[0][0])-0.6) > 1e-5 || math.Abs(float64(got[0][1])-0.8) > 1e-5 {
		t.Errorf("normalized vector = %v", got[0])
	}
}

func TestEmbedTexts_EmptyInput(t *testing.T) {
	// No backend needed: empty input must short-circuit before any call.
	e := embedding.NewTestEmbedder("http://127.0.0.1:1", "test-model", 3)
	got, err := e.EmbedTexts(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Errorf("EmbedTexts(nil) = %v, %v", got, err)
	}
}

func TestEmbedTexts_CountMismatch(t *testing.T) {
	backend := fakeBackend(t, [][]float32{{1, 0, 0}})
	defer backend.Close()

	e := embedding.NewTestEmbedder(backend.URL, "test-model", 3)
	_, err := e.EmbedTexts(context.Background(), []string{"a", "b"})
	if !errors.Is(err, errs.ErrEmbeddingCountMismatch) {
		t.Errorf("err = %v, want ErrEmbeddingCountMismatch", err)
	}
}

func TestEmbedTexts_BackendDown(t *testing.T) {
	e := embedding.NewTestEmbedder("http://127.0.0.1:1", "test-model", 3)
	_, err := e.EmbedTexts(context.Background(), []string{"a"})
	if !errors.Is(err, errs.ErrLLMUnavailable) {
		t.Errorf("err = %v, want ErrLLMUnavailable", err)
	}
}

func TestEmbedTexts_BackendError(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer backend.Close()

	e := embedding.NewTestEmbedder(backend.URL, "test-model", 3)
	_, err := e.EmbedTexts(context.Background(), []string{"a"})
	if !errors.Is(err, errs.ErrLLMUnavailable) {
		t.Errorf("err = %v, want ErrLLMUnavailable", err)
	}
}
