package llm_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"deskrag/internal/config"
	"deskrag/internal/rag/llm"
)

type fakeProvider struct {
	generateFunc   func(ctx context.Context, model, prompt string) (string, error)
	listModelsFunc func(ctx context.Context) ([]string, error)

	generateCalls []string
}

func (f *fakeProvider) Generate(ctx context.Context, model, prompt string) (string, error) {
	f.generateCalls = append(f.generateCalls, model)
	return f.generateFunc(ctx, model, prompt)
}

func (f *fakeProvider) ListModels(ctx context.Context) ([]string, error) {
	if f.listModelsFunc == nil {
		return nil, errors.New("no tags")
	}
	return f.listModelsFunc(ctx)
}

func withModels(t *testing.T, quality, fallbacks string) {
	t.Helper()
	prevQ, prevF := config.QualityModel, config.QualityFallbackModels
	config.QualityModel, config.QualityFallbackModels = quality, fallbacks
	t.Cleanup(func() {
		config.QualityModel, config.QualityFallbackModels = prevQ, prevF
	})
}

func TestAnswer_FastTierUsesFastModel(t *testing.T) {
	p := &fakeProvider{
		generateFunc: func(_ context.Context, model, _ string) (string, error) {
			return "ok", nil
		},
	}
	r := llm.NewRouter(p, config.ProviderOllama)

	answer, model, err := r.Answer(context.Background(), llm.TierFast, "hi")
	if err != nil || answer != "ok" {
		t.Fatalf("Answer = %q, %v", answer, err)
	}
	if model != config.FastModel {
		t.Errorf("model = %s, want %s", model, config.FastModel)
	}
}

func TestAnswer_TrimsModelOutput(t *testing.T) {
	p := &fakeProvider{
		generateFunc: func(_ context.Context, _, _ string) (string, error) {
			return "\n  padded answer \n\n", nil
		},
	}
	r := llm.NewRouter(p, config.ProviderOllama)

	answer, _, err := r.Answer(context.Background(), llm.TierFast, "hi")
	if err != nil || answer != "padded answer" {
		t.Fatalf("Answer = %q, %v", answer, err)
	}

	withModels(t, "big-model", "")
	answer, _, err = r.Answer(context.Background(), llm.TierQuality, "hi")
	if err != nil || answer != "padded answer" {
		t.Fatalf("quality Answer = %q, %v", answer, err)
	}
}

func TestAnswer_QualityPrefersPulledModel(t *testing.T) {
	withModels(t, "big-model", "mid-model,small-model")
	p := &fakeProvider{
		generateFunc: func(_ context.Context, model, _ string) (string, error) {
			return "answer from " + model, nil
		},
		listModelsFunc: func(_ context.Context) ([]string, error) {
			// Only the second candidate is pulled locally.
			return []string{"mid-model"}, nil
		},
	}
	r := llm.NewRouter(p, config.ProviderOllama)

	_, model, err := r.Answer(context.Background(), llm.TierQuality, "q")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if model != "mid-model" {
		t.Errorf("model = %s, want mid-model", model)
	}
}

func TestAnswer_QualityFallsThroughOnFailure(t *testing.T) {
	withModels(t, "big-model", "mid-model,small-model")
	p := &fakeProvider{
		generateFunc: func(_ context.Context, model, _ string) (string, error) {
			if model != "small-model" {
				return "", fmt.Errorf("model %s is broken", model)
			}
			return "finally", nil
		},
		listModelsFunc: func(_ context.Context) ([]string, error) {
			return []string{"big-model", "mid-model", "small-model"}, nil
		},
	}
	r := llm.NewRouter(p, config.ProviderOllama)

	answer, model, err := r.Answer(context.Background(), llm.TierQuality, "q")
	if err != nil || answer != "finally" || model != "small-model" {
		t.Fatalf("Answer = %q model=%s err=%v", answer, model, err)
	}
	want := []string{"big-model", "mid-model", "small-model"}
	if len(p.generateCalls) != len(want) {
		t.Errorf("generate calls = %v, want %v", p.generateCalls, want)
	}
}

func TestAnswer_QualityExhaustion(t *testing.T) {
	withModels(t, "big-model", "")
	p := &fakeProvider{
		generateFunc: func(_ context.Context, model, _ string) (string, error) {
			return "", errors.New("down")
		},
	}
	r := llm.NewRouter(p, config.ProviderOllama)

	if _, _, err := r.Answer(context.Background(), llm.TierQuality, "q"); err == nil {
		t.Fatal("expected error after exhausting candidates")
	}
}

func TestAnswer_NvidiaFailsFast(t *testing.T) {
	p := &fakeProvider{
		generateFunc: func(_ context.Context, model, _ string) (string, error) {
			return "", errors.New("quota exceeded")
		},
	}
	r := llm.NewRouter(p, config.ProviderNvidia)

	_, _, err := r.Answer(context.Background(), llm.TierQuality, "q")
	if err == nil {
		t.Fatal("expected error")
	}
	// No fallback walking for the cloud provider.
	if len(p.generateCalls) != 1 {
		t.Errorf("generate calls = %v, want exactly one", p.generateCalls)
	}
}
