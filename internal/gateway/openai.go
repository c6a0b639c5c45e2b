package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ppiankov/compliance-radar/internal/model"
	"github.com/ppiankov/compliance-radar/internal/util"
	"github.com/ppiankov/compliance-radar/internal/worker"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClassifier classifies with a chat model constrained to answer with
// one of the candidate labels
type OpenAIClassifier struct {
	client        *openai.Client
	model         string
	baseURL       string
	maxRetries    int
	maxInputChars int
	limiter       *worker.Limiter
	logger        *zap.Logger
}

type openAIAnswer struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// NewOpenAIClassifier creates the classifier. It returns ErrDisabled
// without an API key.
func NewOpenAIClassifier(cfg model.OpenAIConfig, gw model.GatewayConfig, httpCfg model.HTTPConfig, limiter *worker.Limiter, logger *zap.Logger) (*OpenAIClassifier, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai: no API key (set OPENAI_API_KEY): %w", ErrDisabled)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	baseURL := defaultOpenAIBaseURL
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
		baseURL = cfg.BaseURL
	}

	timeout := time.Duration(gw.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	clientConfig.HTTPClient = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy),
		},
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = openai.GPT4oMini
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &OpenAIClassifier{
		client:        openai.NewClientWithConfig(clientConfig),
		model:         modelName,
		baseURL:       baseURL,
		maxRetries:    gw.MaxRetries,
		maxInputChars: gw.MaxInputChars,
		limiter:       limiter,
		logger:        logger,
	}, nil
}

// Name returns the provider and model
func (c *OpenAIClassifier) Name() string {
	return "openai:" + c.model
}

// Classify asks the model for the single best label. The answer is rejected
// if the label is not one of the candidates.
func (c *OpenAIClassifier) Classify(ctx context.Context, text string, labels []model.Category) ([]model.Prediction, error) {
	text = util.Truncate(strings.TrimSpace(text), c.maxInputChars)
	if text == "" || len(labels) == 0 {
		return []model.Prediction{}, nil
	}

	candidates := model.Labels(labels)
	chatReq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: buildClassifyPrompt(candidates),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
		MaxTokens:   100,
	}

	var resp openai.ChatCompletionResponse
	err := withRetry(ctx, c.maxRetries, c.logger, c.model, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx, c.baseURL); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
		var apiErr error
		resp, apiErr = c.client.CreateChatCompletion(ctx, chatReq)
		return apiErr
	})
	if err != nil {
		return nil, fmt.Errorf("classify: OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("classify: no response from OpenAI")
	}

	answer, err := parseOpenAIAnswer(resp.Choices[0].Message.Content, labels)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	return []model.Prediction{answer}, nil
}

func buildClassifyPrompt(candidates []string) string {
	return fmt.Sprintf(`You triage incident reports for a compliance unit.
Choose exactly one category for the report from this list:
- %s

Answer with a JSON object {"label": "<category>", "confidence": <number between 0 and 1>}.
Use the category text exactly as written above. Do not add any other keys.`,
		strings.Join(candidates, "\n- "))
}

func parseOpenAIAnswer(content string, labels []model.Category) (model.Prediction, error) {
	var answer openAIAnswer
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &answer); err != nil {
		return model.Prediction{}, fmt.Errorf("unmarshal answer: %w", err)
	}

	category, ok := model.ParseCategory(answer.Label)
	if !ok || !containsCategory(labels, category) {
		return model.Prediction{}, fmt.Errorf("answer %q is not a candidate label", answer.Label)
	}

	confidence := answer.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return model.Prediction{
		Category:   category,
		Confidence: confidence,
		Status:     model.PredictionClassified,
	}, nil
}

func containsCategory(labels []model.Category, c model.Category) bool {
	for _, l := range labels {
		if l == c {
			return true
		}
	}
	return false
}

// openAIStatus extracts the HTTP status from go-openai errors
func openAIStatus(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}
