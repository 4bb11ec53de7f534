package nvidiaLLM

import (
	"context"
	"fmt"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"deskrag/internal/config"
	"deskrag/internal/domain/errs"
	"deskrag/internal/rag/llm"
	"deskrag/pkg/logger_i"
)

var (
	logger   *logger_i.Logger
	instance *nvidiaClient
	once     sync.Once
)

// nvidiaClient talks to NVIDIA's OpenAI-compatible chat completion API.
type nvidiaClient struct {
	client openai.Client
	apiKey string
}

// GetNvidiaClient returns the shared cloud provider.
func GetNvidiaClient() llm.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_nvidia")
		instance = newClient(config.NvidiaBaseURL, config.NvidiaAPIKey)
		logger.Info("NVIDIA client created", "baseURL", config.NvidiaBaseURL)
	})
	return instance
}

// NewTestClient builds a provider against an arbitrary base URL.
func NewTestClient(baseURL, apiKey string) llm.Provider {
	if logger == nil {
		logger = logger_i.NewLogger("test llm_nvidia")
	}
	return newClient(baseURL, apiKey)
}

func newClient(baseURL, apiKey string) *nvidiaClient {
	return &nvidiaClient{
		client: openai.NewClient(
			option.WithBaseURL(baseURL),
			option.WithAPIKey(apiKey),
		),
		apiKey: apiKey,
	}
}

func (c *nvidiaClient) Generate(ctx context.Context, model string, prompt string) (string, error) {
	loggr := logger.With(config.TRACE_ID_KEY, ctx.Value(config.TRACE_ID_KEY))

	// Refuse before going to the network; a missing key can never succeed.
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: NVIDIA_API_KEY is not set", errs.ErrInvalidParameter)
	}

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(config.NvidiaTemperature),
		MaxTokens:   openai.Int(config.NvidiaMaxTokens),
	})
	if err != nil {
		loggr.Error("cloud generation failed", "model", model, "error", err)
		return "", fmt.Errorf("%w: %v", errs.ErrLLMUnavailable, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: model %s returned no choices", errs.ErrLLMUnavailable, model)
	}
	return completion.Choices[0].Message.Content, nil
}

func (c *nvidiaClient) ListModels(ctx context.Context) ([]string, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: NVIDIA_API_KEY is not set", errs.ErrInvalidParameter)
	}

	page, err := c.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrLLMUnavailable, err)
	}

	names := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		names = append(names, m.ID)
	}
	return names, nil
}
