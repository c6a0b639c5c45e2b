package gateway

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/compliance-radar/internal/cache"
	"github.com/ppiankov/compliance-radar/internal/model"
)

type countingClassifier struct {
	calls int32
	fail  bool
}

func (c *countingClassifier) Name() string { return "fake:classifier" }

func (c *countingClassifier) Classify(ctx context.Context, text string, labels []model.Category) ([]model.Prediction, error) {
	atomic.AddInt32(&c.calls, 1)
	if c.fail {
		return nil, &StatusError{Code: 500}
	}
	return []model.Prediction{{Category: labels[0], Confidence: 0.5, Status: model.PredictionClassified}}, nil
}

type countingRecognizer struct {
	calls int32
}

func (r *countingRecognizer) Name() string { return "fake:ner" }

func (r *countingRecognizer) Recognize(ctx context.Context, text string) ([]model.Entity, error) {
	atomic.AddInt32(&r.calls, 1)
	return []model.Entity{{Text: "Quito", Type: model.EntityLocation, Confidence: 0.9}}, nil
}

func TestCachedClassifier(t *testing.T) {
	next := &countingClassifier{}
	c := NewCachedClassifier(next, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		preds, err := c.Classify(ctx, "same text", model.Categories())
		if err != nil {
			t.Fatalf("Classify failed: %v", err)
		}
		if Top(preds).Category != model.CategoryBribery {
			t.Errorf("Unexpected prediction: %+v", preds)
		}
	}
	if next.calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", next.calls)
	}

	// Different label set is a different question
	if _, err := c.Classify(ctx, "same text", model.DiagnosticCategories()); err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if next.calls != 2 {
		t.Errorf("expected 2 upstream calls, got %d", next.calls)
	}
	if c.Name() != "fake:classifier" {
		t.Errorf("expected wrapped name, got %s", c.Name())
	}
}

func TestCachedClassifier_ErrorsNotCached(t *testing.T) {
	next := &countingClassifier{fail: true}
	c := NewCachedClassifier(next, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute, nil)

	for i := 0; i < 2; i++ {
		if _, err := c.Classify(context.Background(), "text", model.Categories()); err == nil {
			t.Fatal("expected error")
		}
	}
	if next.calls != 2 {
		t.Errorf("expected every failing call to reach upstream, got %d", next.calls)
	}
}

func TestCachedRecognizer(t *testing.T) {
	next := &countingRecognizer{}
	r := NewCachedRecognizer(next, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute, nil)

	for i := 0; i < 2; i++ {
		entities, err := r.Recognize(context.Background(), "Quito")
		if err != nil {
			t.Fatalf("Recognize failed: %v", err)
		}
		if len(entities) != 1 || entities[0].Type != model.EntityLocation {
			t.Errorf("Unexpected entities: %+v", entities)
		}
	}
	if next.calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", next.calls)
	}
}

func TestNewClassifier(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		token    string
		apiKey   string
		wantErr  error
		wantName string
	}{
		{"huggingface", "huggingface", "hf_x", "", nil, "huggingface:joeddav/xlm-roberta-large-xnli"},
		{"huggingface case-insensitive", "HuggingFace", "hf_x", "", nil, "huggingface:joeddav/xlm-roberta-large-xnli"},
		{"huggingface without token", "huggingface", "", "", ErrDisabled, ""},
		{"openai", "openai", "", "sk-x", nil, "openai:gpt-4o-mini"},
		{"openai without key", "openai", "", "", ErrDisabled, ""},
		{"none", "none", "hf_x", "", ErrDisabled, ""},
		{"empty", "", "hf_x", "", ErrDisabled, ""},
		{"unknown", "watson", "hf_x", "", ErrUnsupported, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := model.DefaultConfig()
			cfg.Gateway.Provider = tt.provider
			cfg.Gateway.Token = tt.token
			cfg.OpenAI.APIKey = tt.apiKey

			c, err := NewClassifier(cfg, NewDeps(cfg, nil))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if c != nil {
					t.Error("expected nil classifier on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.Name() != tt.wantName {
				t.Errorf("expected %s, got %s", tt.wantName, c.Name())
			}
			if _, cached := c.(*CachedClassifier); !cached {
				t.Error("expected cache wrapper with default config")
			}
		})
	}
}

func TestNewClassifier_NoCache(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Gateway.Token = "hf_x"
	cfg.Cache.Enabled = false

	c, err := NewClassifier(cfg, NewDeps(cfg, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.(*HuggingFace); !ok {
		t.Errorf("expected bare client, got %T", c)
	}
}

func TestNewEntityRecognizer(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Gateway.Token = "hf_x"

	r, err := NewEntityRecognizer(cfg, NewDeps(cfg, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Name() != "huggingface:Davlan/bert-base-multilingual-cased-ner-hrl" {
		t.Errorf("unexpected name %s", r.Name())
	}

	cfg.Gateway.EntitiesEnabled = false
	if _, err := NewEntityRecognizer(cfg, NewDeps(cfg, nil)); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled when entities are off, got %v", err)
	}

	cfg.Gateway.EntitiesEnabled = true
	cfg.Gateway.Token = ""
	if _, err := NewEntityRecognizer(cfg, NewDeps(cfg, nil)); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled without token, got %v", err)
	}
}

func TestNewDeps_HostRateLimits(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.RateLimiting.RequestsPerSecond = 0
	cfg.RateLimiting.Hosts = []model.HostRateLimit{
		{Host: "slow.example", RequestsPerSecond: 0.01, BurstSize: 1},
	}
	deps := NewDeps(cfg, nil)

	wait := func(rawURL string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		return deps.Limiter.Wait(ctx, rawURL)
	}

	if err := wait("https://slow.example/models/a"); err != nil {
		t.Fatalf("first request should pass, got %v", err)
	}
	if err := wait("https://slow.example/models/b"); err == nil {
		t.Error("expected configured host limit to throttle the second request")
	}
	for i := 0; i < 5; i++ {
		if err := wait("https://other.example/models/a"); err != nil {
			t.Fatalf("expected unlimited default for other hosts, got %v", err)
		}
	}
}
