package ollamaLLM

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"deskrag/internal/config"
	"deskrag/internal/domain/errs"
	"deskrag/internal/rag/llm"
	"deskrag/pkg/logger_i"
)

var (
	logger   *logger_i.Logger
	instance *ollamaClient
	once     sync.Once
)

type ollamaClient struct {
	baseURL string
	client  *http.Client
}

// GetOllamaClient returns the shared local-model provider.
func GetOllamaClient() llm.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_ollama")
		instance = &ollamaClient{
			baseURL: config.OllamaBaseURL,
			client:  &http.Client{Timeout: config.GenerationTimeout},
		}
		logger.Info("Ollama client created", "baseURL", config.OllamaBaseURL)
	})
	return instance
}

// NewTestClient builds a provider against an arbitrary base URL.
func NewTestClient(baseURL string) llm.Provider {
	if logger == nil {
		logger = logger_i.NewLogger("test llm_ollama")
	}
	return &ollamaClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: config.GenerationTimeout},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (c *ollamaClient) Generate(ctx context.Context, model string, prompt string) (string, error) {
	loggr := logger.With(config.TRACE_ID_KEY, ctx.Value(config.TRACE_ID_KEY))

	body, err := json.Marshal(generateRequest{Model: model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		loggr.Error("generation request failed", "model", model, "error", err)
		return "", fmt.Errorf("%w: %v", errs.ErrLLMUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		loggr.Error("generation backend error", "model", model, "status", resp.StatusCode)
		return "", fmt.Errorf("%w: model %s returned %d: %s", errs.ErrLLMUnavailable, model, resp.StatusCode, raw)
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decoding generation response: %v", errs.ErrLLMUnavailable, err)
	}
	return parsed.Response, nil
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels reports locally pulled models via /api/tags.
func (c *ollamaClient) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrLLMUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: tags endpoint returned %d", errs.ErrLLMUnavailable, resp.StatusCode)
	}

	var parsed tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding tags response: %v", errs.ErrLLMUnavailable, err)
	}

	names := make([]string, 0, len(parsed.Models))
	for _, m := range parsed.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
