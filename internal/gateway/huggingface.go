package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/compliance-radar/internal/model"
	"github.com/ppiankov/compliance-radar/internal/util"
	"github.com/ppiankov/compliance-radar/internal/worker"
)

const (
	defaultHFBaseURL = "https://api-inference.huggingface.co"
	maxResponseBytes = 4 << 20
)

// HuggingFace talks to the Hugging Face inference API. One client serves
// both the zero-shot classifier and the NER model.
type HuggingFace struct {
	baseURL         string
	classifierModel string
	nerModel        string
	token           string
	userAgent       string
	waitForModel    bool
	maxRetries      int
	maxInputChars   int
	httpClient      *http.Client
	limiter         *worker.Limiter
	logger          *zap.Logger
}

// HF inference API structures
type zeroShotRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters zeroShotParameters `json:"parameters"`
	Options    hfOptions          `json:"options"`
}

type zeroShotParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
	MultiLabel      bool     `json:"multi_label"`
}

type nerRequest struct {
	Inputs     string        `json:"inputs"`
	Parameters nerParameters `json:"parameters"`
	Options    hfOptions     `json:"options"`
}

type nerParameters struct {
	AggregationStrategy string `json:"aggregation_strategy"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

// zeroShotResponse is the pipeline-style answer
type zeroShotResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// labelScore is the task-style answer
type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type nerSpan struct {
	Word        string  `json:"word"`
	EntityGroup string  `json:"entity_group"`
	Entity      string  `json:"entity"`
	Score       float64 `json:"score"`
}

type hfError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time"`
}

// NewHuggingFace creates the client. It returns ErrDisabled without a token.
func NewHuggingFace(cfg model.GatewayConfig, httpCfg model.HTTPConfig, limiter *worker.Limiter, logger *zap.Logger) (*HuggingFace, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("huggingface: no API token (set HUGGINGFACEHUB_API_TOKEN): %w", ErrDisabled)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultHFBaseURL
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &HuggingFace{
		baseURL:         strings.TrimSuffix(baseURL, "/"),
		classifierModel: cfg.ClassifierModel,
		nerModel:        cfg.NERModel,
		token:           cfg.Token,
		userAgent:       httpCfg.UserAgent,
		waitForModel:    cfg.WaitForModel,
		maxRetries:      cfg.MaxRetries,
		maxInputChars:   cfg.MaxInputChars,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy),
			},
		},
		limiter: limiter,
		logger:  logger,
	}, nil
}

// Name returns the provider and classifier model
func (h *HuggingFace) Name() string {
	return "huggingface:" + h.classifierModel
}

// Recognizer returns a view of the client that reports the NER model as
// its name, for cache keys and logs
func (h *HuggingFace) Recognizer() EntityRecognizer {
	return hfRecognizer{h}
}

type hfRecognizer struct{ *HuggingFace }

func (r hfRecognizer) Name() string {
	return "huggingface:" + r.nerModel
}

// Classify runs zero-shot classification over labels
func (h *HuggingFace) Classify(ctx context.Context, text string, labels []model.Category) ([]model.Prediction, error) {
	text = util.Truncate(strings.TrimSpace(text), h.maxInputChars)
	if text == "" || len(labels) == 0 {
		return []model.Prediction{}, nil
	}

	req := zeroShotRequest{
		Inputs: text,
		Parameters: zeroShotParameters{
			CandidateLabels: model.Labels(labels),
			MultiLabel:      false,
		},
		Options: hfOptions{WaitForModel: h.waitForModel},
	}

	body, err := h.post(ctx, h.classifierModel, req)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	scores, err := parseZeroShot(body)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	predictions := make([]model.Prediction, 0, len(scores))
	for _, s := range scores {
		category, _ := model.ParseCategory(s.Label)
		predictions = append(predictions, model.Prediction{
			Category:   category,
			Confidence: s.Score,
			Status:     model.PredictionClassified,
		})
	}
	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].Confidence > predictions[j].Confidence
	})
	return predictions, nil
}

// Recognize runs token classification with simple aggregation
func (h *HuggingFace) Recognize(ctx context.Context, text string) ([]model.Entity, error) {
	text = util.Truncate(strings.TrimSpace(text), h.maxInputChars)
	if text == "" {
		return []model.Entity{}, nil
	}

	req := nerRequest{
		Inputs:     text,
		Parameters: nerParameters{AggregationStrategy: "simple"},
		Options:    hfOptions{WaitForModel: h.waitForModel},
	}

	body, err := h.post(ctx, h.nerModel, req)
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}

	var spans []nerSpan
	if err := json.Unmarshal(body, &spans); err != nil {
		return nil, fmt.Errorf("recognize: unmarshal response: %w", err)
	}

	entities := make([]model.Entity, 0, len(spans))
	for _, span := range spans {
		word := strings.TrimSpace(span.Word)
		if word == "" {
			continue
		}
		tag := span.EntityGroup
		if tag == "" {
			tag = span.Entity
		}
		entities = append(entities, model.Entity{
			Text:       word,
			Type:       model.EntityTypeFromTag(tag),
			Confidence: span.Score,
		})
	}
	return entities, nil
}

// parseZeroShot accepts {"labels","scores"}, [{"label","score"}] and a
// one-element list of the former
func parseZeroShot(body []byte) ([]labelScore, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty response")
	}

	if trimmed[0] == '{' {
		var resp zeroShotResponse
		if err := json.Unmarshal(trimmed, &resp); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
		return pairScores(resp)
	}

	var items []struct {
		labelScore
		zeroShotResponse
	}
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(items) > 0 && items[0].Labels != nil {
		return pairScores(items[0].zeroShotResponse)
	}

	out := make([]labelScore, len(items))
	for i, item := range items {
		out[i] = item.labelScore
	}
	return out, nil
}

func pairScores(resp zeroShotResponse) ([]labelScore, error) {
	if len(resp.Labels) != len(resp.Scores) {
		return nil, fmt.Errorf("malformed response: %d labels, %d scores", len(resp.Labels), len(resp.Scores))
	}
	out := make([]labelScore, len(resp.Labels))
	for i := range resp.Labels {
		out[i] = labelScore{Label: resp.Labels[i], Score: resp.Scores[i]}
	}
	return out, nil
}

// post sends payload to a model endpoint, retrying transient failures
func (h *HuggingFace) post(ctx context.Context, modelID string, payload interface{}) ([]byte, error) {
	var body []byte
	err := withRetry(ctx, h.maxRetries, h.logger, modelID, func(ctx context.Context) error {
		var reqErr error
		body, reqErr = h.makeRequest(ctx, modelID, payload)
		return reqErr
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", modelID, err)
	}
	return body, nil
}

// makeRequest makes one HTTP request to the inference API
func (h *HuggingFace) makeRequest(ctx context.Context, modelID string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s", h.baseURL, modelID)
	if err := h.limiter.Wait(ctx, url); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+h.token)
	if h.userAgent != "" {
		httpReq.Header.Set("User-Agent", h.userAgent)
	}

	h.logger.Debug("gateway request", zap.String("model", modelID), zap.Int("bytes", len(body)))

	httpResp, err := h.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr hfError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return nil, &StatusError{Code: httpResp.StatusCode, Message: apiErr.Error}
		}
		return nil, &StatusError{Code: httpResp.StatusCode, Message: util.Truncate(string(respBody), 200)}
	}

	return respBody, nil
}
