package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/classify"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/logger"

	apperrors "github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/errors"
)

const scoringPrompt = `You are a zero-shot text classifier for running shoe research.
For the user's text, rate each candidate label independently with the probability (0 to 1)
that the text is about it. Labels are not exclusive and the scores need not sum to 1.
Answer with a single JSON object mapping every label to its score and nothing else.

Candidate labels: %s`

// LLMScorer scores text with an OpenAI-compatible chat model (LiteLLM, OpenAI, ...)
type LLMScorer struct {
	client     *openai.Client
	model      string
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

// NewLLMScorer creates a scorer against baseURL, which must include the /v1 suffix
func NewLLMScorer(baseURL, apiKey, modelID string) *LLMScorer {
	// LiteLLM accepts any key when none is configured
	if apiKey == "" {
		apiKey = "dummy-key"
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = strings.TrimRight(baseURL, "/")

	return &LLMScorer{
		client:     openai.NewClientWithConfig(config),
		model:      modelID,
		maxRetries: 3,
		backoff:    time.Second,
		logger:     logger.Get(),
	}
}

// Score asks the model for a probability per label
func (s *LLMScorer) Score(ctx context.Context, text string, labels []string) ([]classify.LabelScore, error) {
	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(scoringPrompt, strings.Join(quoteAll(labels), ", ")),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0,
	}

	// Retry logic with backoff
	var resp openai.ChatCompletionResponse
	var err error
	attempts := 0
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		attempts = attempt + 1
		if attempt > 0 {
			backoff := time.Duration(attempt) * s.backoff
			s.logger.Warn("Retrying LLM scoring request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return nil, apperrors.NewContextCancelled("llm score", ctx.Err())
			case <-time.After(backoff):
			}
		}

		resp, err = s.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}

		s.logger.Error("LLM scoring request failed",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.String("model", s.model),
		)
		if ctx.Err() != nil || !retryableOpenAI(err) {
			break
		}
	}

	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, apperrors.NewClassifyFailed(s.model, attempts, retryableOpenAI(err), err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.NewClassifyFailed(s.model, attempts, false, fmt.Errorf("no choices in LLM response"))
	}

	scores, err := parseLabelProbabilities(resp.Choices[0].Message.Content, labels)
	if err != nil {
		return nil, apperrors.NewClassifyFailed(s.model, attempts, false, err)
	}

	s.logger.Debug("LLM scores generated",
		zap.String("model", s.model),
		zap.Int("labels", len(scores)),
	)
	return scores, nil
}

// parseLabelProbabilities reads {"label": score, ...} out of the model's answer,
// tolerating prose or code fences around the object. Labels the model left out
// are omitted; values are clamped to [0, 1].
func parseLabelProbabilities(content string, labels []string) ([]classify.LabelScore, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return nil, apperrors.ErrClassifyNoScores
	}
	object := content[start : end+1]
	if !gjson.Valid(object) {
		return nil, fmt.Errorf("failed to parse scores: invalid JSON object")
	}

	values := make(map[string]float64, len(labels))
	gjson.Parse(object).ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.Number {
			values[key.String()] = clamp(value.Float())
		}
		return true
	})

	scores := make([]classify.LabelScore, 0, len(labels))
	for _, label := range labels {
		if v, ok := values[label]; ok {
			scores = append(scores, classify.LabelScore{Label: label, Score: v})
		}
	}
	if len(scores) == 0 {
		return nil, apperrors.ErrClassifyNoScores
	}
	return scores, nil
}

func retryableOpenAI(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	// Transport failures carry no status
	return true
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func quoteAll(labels []string) []string {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = `"` + l + `"`
	}
	return quoted
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
