package gateway

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/compliance-radar/internal/cache"
	"github.com/ppiankov/compliance-radar/internal/model"
)

// CachedClassifier memoizes successful classifications. Errors are never
// cached so a later row can retry.
type CachedClassifier struct {
	next   Classifier
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedClassifier wraps next with c
func NewCachedClassifier(next Classifier, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedClassifier{next: next, cache: c, ttl: ttl, logger: logger}
}

// Name returns the wrapped classifier's name
func (c *CachedClassifier) Name() string {
	return c.next.Name()
}

// Classify returns a cached answer for the same model, labels and text
func (c *CachedClassifier) Classify(ctx context.Context, text string, labels []model.Category) ([]model.Prediction, error) {
	key := cache.Key("classify", c.next.Name(), strings.Join(model.Labels(labels), "\x1f"), text)

	var cached []model.Prediction
	if cache.GetJSON(c.cache, key, &cached) {
		c.logger.Debug("classification cache hit", zap.String("model", c.next.Name()))
		return cached, nil
	}

	predictions, err := c.next.Classify(ctx, text, labels)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(c.cache, key, predictions, c.ttl); err != nil {
		c.logger.Debug("classification cache write failed", zap.Error(err))
	}
	return predictions, nil
}

// CachedRecognizer memoizes successful entity recognitions
type CachedRecognizer struct {
	next   EntityRecognizer
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedRecognizer wraps next with c
func NewCachedRecognizer(next EntityRecognizer, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedRecognizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedRecognizer{next: next, cache: c, ttl: ttl, logger: logger}
}

func (r *CachedRecognizer) Name() string {
	return r.next.Name()
}

// Recognize returns a cached answer for the same model and text
func (r *CachedRecognizer) Recognize(ctx context.Context, text string) ([]model.Entity, error) {
	key := cache.Key("entities", r.next.Name(), text)

	var cached []model.Entity
	if cache.GetJSON(r.cache, key, &cached) {
		r.logger.Debug("entity cache hit", zap.String("model", r.next.Name()))
		return cached, nil
	}

	entities, err := r.next.Recognize(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(r.cache, key, entities, r.ttl); err != nil {
		r.logger.Debug("entity cache write failed", zap.Error(err))
	}
	return entities, nil
}
