package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/compliance-radar/internal/model"
)

var (
	// ErrDisabled means the gateway is not configured (no provider or no
	// credentials). Callers fall back to model.UnavailablePrediction.
	ErrDisabled = errors.New("gateway disabled")

	// ErrUnsupported is returned for unknown providers
	ErrUnsupported = errors.New("unsupported gateway provider")
)

// Classifier ranks candidate categories for a narrative
type Classifier interface {
	// Name identifies the provider and model, e.g. "huggingface:joeddav/xlm-roberta-large-xnli"
	Name() string

	// Classify returns predictions ranked by confidence, highest first. An
	// empty slice means no prediction.
	Classify(ctx context.Context, text string, labels []model.Category) ([]model.Prediction, error)
}

// EntityRecognizer extracts named entities from a narrative
type EntityRecognizer interface {
	Name() string
	Recognize(ctx context.Context, text string) ([]model.Entity, error)
}

// Top returns the highest ranked prediction, or the unavailable fallback
// when there is none
func Top(predictions []model.Prediction) model.Prediction {
	if len(predictions) == 0 {
		return model.UnavailablePrediction()
	}
	return predictions[0]
}

// StatusError is a non-2xx answer from a gateway
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Message)
}

// sleepFunc waits between retries (injectable for tests)
var sleepFunc = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// withRetry runs fn once plus up to maxRetries more times while the error is
// transient, backing off 1s, 2s, 4s...
func withRetry(ctx context.Context, maxRetries int, logger *zap.Logger, op string, fn func(ctx context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = fn(ctx)
		if err == nil || !isRetryable(ctx, err) || attempt == maxRetries {
			break
		}

		backoff := time.Duration(1<<uint(attempt)) * time.Second
		logger.Warn("gateway request failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		if serr := sleepFunc(ctx, backoff); serr != nil {
			return serr
		}
	}
	return err
}

// isRetryable reports whether err is transient: rate limiting, a model
// still loading (503), gateway hiccups, or network failures
func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return retryableStatus(statusErr.Code)
	}
	if code, ok := openAIStatus(err); ok {
		return retryableStatus(code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// FixedClassifier always answers with one category at full confidence. It
// stands in for the remote service when a reviewer has already labeled the
// incident.
type FixedClassifier struct {
	Category model.Category
}

func (f FixedClassifier) Name() string {
	return "fixed:" + string(f.Category)
}

func (f FixedClassifier) Classify(ctx context.Context, text string, labels []model.Category) ([]model.Prediction, error) {
	return []model.Prediction{{Category: f.Category, Confidence: 1, Status: model.PredictionClassified}}, nil
}
