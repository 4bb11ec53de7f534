package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"

	"deskrag/internal/config"
	"deskrag/pkg/logger_i"
)

// Reranker reorders candidate passages by cross-encoder relevance to the
// query. Implementations must return one score per candidate, same order
// as the input.
type Reranker interface {
	Rerank(ctx context.Context, query string, passages []string) ([]float64, error)
}

var (
	instance Reranker
	once     sync.Once
)

// GetReranker returns the shared reranker, or nil when RERANK_BASE_URL is
// unset; retrieval then keeps the vector-similarity order.
func GetReranker() Reranker {
	once.Do(func() {
		if config.RerankBaseURL == "" {
			return
		}
		instance = &httpReranker{
			baseURL: config.RerankBaseURL,
			client:  &http.Client{Timeout: config.RerankTimeout},
			logger:  logger_i.NewLogger("Reranker"),
		}
	})
	return instance
}

// NewTestReranker builds a reranker against an arbitrary base URL.
func NewTestReranker(baseURL string) Reranker {
	return &httpReranker{
		baseURL: baseURL,
		client:  &http.Client{Timeout: config.RerankTimeout},
		logger:  logger_i.NewLogger("test reranker"),
	}
}

// httpReranker speaks the text-embeddings-inference /rerank protocol.
type httpReranker struct {
	baseURL string
	client  *http.Client
	logger  *logger_i.Logger
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

func (r *httpReranker) Rerank(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return []float64{}, nil
	}

	body, err := json.Marshal(rerankRequest{Query: query, Texts: passages})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("rerank backend returned %d: %s", resp.StatusCode, raw)
	}

	var results []rerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decoding rerank response: %w", err)
	}
	if len(results) != len(passages) {
		return nil, fmt.Errorf("rerank returned %d scores for %d passages", len(results), len(passages))
	}

	// Backend reports results ranked; map back to input order.
	scores := make([]float64, len(passages))
	for _, res := range results {
		if res.Index < 0 || res.Index >= len(scores) {
			return nil, fmt.Errorf("rerank index %d out of range", res.Index)
		}
		scores[res.Index] = res.Score
	}
	return scores, nil
}

// Order returns candidate indexes sorted by descending score, ties broken
// by original position so ordering stays deterministic.
func Order(scores []float64) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})
	return idx
}
