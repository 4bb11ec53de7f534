package llm

import (
	"context"
	"fmt"
	"strings"

	"deskrag/internal/config"
	"deskrag/internal/domain/errs"
	"deskrag/pkg/logger_i"
)

// Router maps a tier to a concrete model on the active provider and runs
// the generation. Local quality models get availability-aware selection
// with sequential fallback; the cloud provider fails fast, since a cloud
// error is almost never fixed by switching models.
type Router struct {
	provider     Provider
	providerName string
	logger       *logger_i.Logger
}

func NewRouter(provider Provider, providerName string) *Router {
	return &Router{
		provider:     provider,
		providerName: providerName,
		logger:       logger_i.NewLogger("LLM Router"),
	}
}

// Answer generates a completion for the prompt on the given tier and
// reports the model that produced it. Models pad their output with
// whitespace; the answer comes back trimmed.
func (r *Router) Answer(ctx context.Context, tier Tier, prompt string) (string, string, error) {
	loggr := r.logger.With(config.TRACE_ID_KEY, ctx.Value(config.TRACE_ID_KEY))

	if r.providerName == config.ProviderNvidia {
		model := config.NvidiaFastModel
		if tier == TierQuality {
			model = config.NvidiaQualityModel
		}
		answer, err := r.provider.Generate(ctx, model, prompt)
		if err != nil {
			return "", model, err
		}
		return strings.TrimSpace(answer), model, nil
	}

	if tier == TierFast {
		answer, err := r.provider.Generate(ctx, config.FastModel, prompt)
		if err != nil {
			return "", config.FastModel, err
		}
		return strings.TrimSpace(answer), config.FastModel, nil
	}

	return r.answerQualityLocal(ctx, loggr, prompt)
}

// answerQualityLocal prefers the first configured candidate the backend has
// pulled, then walks the remaining candidates when a generation fails.
func (r *Router) answerQualityLocal(ctx context.Context, loggr *logger_i.Logger, prompt string) (string, string, error) {
	candidates := config.QualityCandidates()

	order := candidates
	if available, err := r.provider.ListModels(ctx); err == nil {
		order = preferAvailable(candidates, available)
	} else {
		loggr.Warn("model listing failed, trying candidates in configured order", "error", err)
	}

	var lastErr error
	for _, model := range order {
		answer, err := r.provider.Generate(ctx, model, prompt)
		if err == nil {
			return strings.TrimSpace(answer), model, nil
		}
		loggr.Warn("quality model failed, falling back", "model", model, "error", err)
		lastErr = err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%w: no quality models configured", errs.ErrLLMUnavailable)
	}
	return "", "", fmt.Errorf("all quality candidates exhausted: %w", lastErr)
}

// preferAvailable reorders candidates so pulled models come first, keeping
// configured order within each group. Unpulled candidates stay as a tail:
// the backend may still be able to load them.
func preferAvailable(candidates, available []string) []string {
	availSet := make(map[string]bool, len(available))
	for _, m := range available {
		availSet[m] = true
	}

	var pulled, missing []string
	for _, m := range candidates {
		if availSet[m] {
			pulled = append(pulled, m)
		} else {
			missing = append(missing, m)
		}
	}
	return append(pulled, missing...)
}
