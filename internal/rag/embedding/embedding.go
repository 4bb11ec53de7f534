package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"

	"deskrag/internal/config"
	"deskrag/internal/domain/errs"
	"deskrag/pkg/logger_i"
)

// Embedder turns text into unit-length vectors. The same embedder serves
// both document chunks at ingest time and the query at chat time, so the
// two live in one vector space.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	Dim() int
}

var (
	instance *ollamaEmbedder
	once     sync.Once
)

type ollamaEmbedder struct {
	baseURL string
	model   string
	dim     int
	client  *http.Client
	logger  *logger_i.Logger
}

// GetOllamaEmbedder returns the shared embedder configured from the
// environment.
func GetOllamaEmbedder() Embedder {
	once.Do(func() {
		instance = &ollamaEmbedder{
			baseURL: config.OllamaBaseURL,
			model:   config.EmbeddingModel,
			dim:     config.EmbeddingDim,
			client:  &http.Client{Timeout: config.EmbedTimeout},
			logger:  logger_i.NewLogger("Embedder"),
		}
	})
	return instance
}

// NewTestEmbedder builds an embedder against an arbitrary base URL; tests
// point it at httptest servers.
func NewTestEmbedder(baseURL, model string, dim int) Embedder {
	return &ollamaEmbedder{
		baseURL: baseURL,
		model:   model,
		dim:     dim,
		client:  &http.Client{Timeout: config.EmbedTimeout},
		logger:  logger_i.NewLogger("test embedder"),
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (e *ollamaEmbedder) Dim() int {
	return e.dim
}

// EmbedTexts embeds a batch in one call and L2-normalizes each vector so
// cosine similarity equals the dot product.
func (e *ollamaEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	body, err := json.Marshal(embedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding request: %v", errs.ErrLLMUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: embedding backend returned %d: %s", errs.ErrLLMUnavailable, resp.StatusCode, raw)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding embedding response: %v", errs.ErrLLMUnavailable, err)
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: sent %d texts, got %d embeddings",
			errs.ErrEmbeddingCountMismatch, len(texts), len(parsed.Embeddings))
	}

	for i := range parsed.Embeddings {
		normalize(parsed.Embeddings[i])
	}
	return parsed.Embeddings, nil
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}
