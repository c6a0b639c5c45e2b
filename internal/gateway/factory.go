package gateway

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/compliance-radar/internal/cache"
	"github.com/ppiankov/compliance-radar/internal/model"
	"github.com/ppiankov/compliance-radar/internal/worker"
)

// Supported providers
const (
	ProviderHuggingFace = "huggingface"
	ProviderOpenAI      = "openai"
	ProviderNone        = "none"
)

// Deps are the shared pieces every gateway client uses
type Deps struct {
	Limiter  *worker.Limiter
	Cache    cache.Cache // nil disables caching
	CacheTTL time.Duration
	Logger   *zap.Logger
}

// NewDeps builds the limiter and cache described by cfg
func NewDeps(cfg *model.Config, logger *zap.Logger) Deps {
	if logger == nil {
		logger = zap.NewNop()
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	for _, h := range cfg.RateLimiting.Hosts {
		limiter.SetHostRate(h.Host, h.RequestsPerSecond, h.BurstSize)
	}

	deps := Deps{
		Limiter: limiter,
		Logger:  logger,
	}

	if cfg.Cache.Enabled {
		ttl := time.Duration(cfg.Cache.TTLMinutes) * time.Minute
		if ttl <= 0 {
			ttl = time.Hour
		}
		deps.Cache = cache.NewMemoryCache(ttl, 2*ttl)
		deps.CacheTTL = ttl
	}

	return deps
}

// NewClassifier creates the classifier for cfg.Gateway.Provider. It returns
// an error wrapping ErrDisabled when the provider is "none" or lacks
// credentials, and ErrUnsupported for unknown providers.
func NewClassifier(cfg *model.Config, deps Deps) (Classifier, error) {
	var (
		classifier Classifier
		err        error
	)

	switch provider := strings.ToLower(strings.TrimSpace(cfg.Gateway.Provider)); provider {
	case ProviderHuggingFace:
		classifier, err = NewHuggingFace(cfg.Gateway, cfg.HTTP, deps.Limiter, deps.Logger)

	case ProviderOpenAI:
		classifier, err = NewOpenAIClassifier(cfg.OpenAI, cfg.Gateway, cfg.HTTP, deps.Limiter, deps.Logger)

	case ProviderNone, "":
		return nil, fmt.Errorf("classification: %w", ErrDisabled)

	default:
		return nil, fmt.Errorf("%w: %s (supported: huggingface, openai, none)", ErrUnsupported, cfg.Gateway.Provider)
	}
	if err != nil {
		return nil, err
	}

	if deps.Cache != nil {
		classifier = NewCachedClassifier(classifier, deps.Cache, deps.CacheTTL, deps.Logger)
	}
	return classifier, nil
}

// NewEntityRecognizer creates the NER client. Entities always come from the
// Hugging Face API, whichever provider classifies.
func NewEntityRecognizer(cfg *model.Config, deps Deps) (EntityRecognizer, error) {
	if !cfg.Gateway.EntitiesEnabled || strings.EqualFold(cfg.Gateway.Provider, ProviderNone) {
		return nil, fmt.Errorf("entities: %w", ErrDisabled)
	}

	hf, err := NewHuggingFace(cfg.Gateway, cfg.HTTP, deps.Limiter, deps.Logger)
	if err != nil {
		return nil, err
	}

	var recognizer = hf.Recognizer()
	if deps.Cache != nil {
		recognizer = NewCachedRecognizer(recognizer, deps.Cache, deps.CacheTTL, deps.Logger)
	}
	return recognizer, nil
}
