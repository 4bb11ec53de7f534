package llm

import "context"

// Tier selects the latency/quality tradeoff for a generation.
type Tier string

const (
	TierFast    Tier = "fast"
	TierQuality Tier = "quality"
)

// Provider is one LLM backend. Generate runs a single completion against a
// named model; ListModels reports what the backend can serve, for routing
// and health probes.
type Provider interface {
	Generate(ctx context.Context, model string, prompt string) (string, error)
	ListModels(ctx context.Context) ([]string, error)
}
