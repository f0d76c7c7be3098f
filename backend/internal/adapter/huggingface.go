package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/classify"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/logger"

	apperrors "github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/errors"
)

// HFZeroShotScorer calls the Hugging Face Inference API zero-shot pipeline
// (an NLI model such as facebook/bart-large-mnli) in multi-label mode
type HFZeroShotScorer struct {
	client     *http.Client
	endpoint   string
	token      string
	model      string
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

// NewHFZeroShotScorer creates a scorer for model under apiURL
func NewHFZeroShotScorer(apiURL, token, model string) *HFZeroShotScorer {
	return &HFZeroShotScorer{
		client:     &http.Client{Timeout: 2 * time.Minute},
		endpoint:   strings.TrimRight(apiURL, "/") + "/" + model,
		token:      token,
		model:      model,
		maxRetries: 5,
		backoff:    2 * time.Second,
		logger:     logger.Get(),
	}
}

type zeroShotRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters zeroShotParameters `json:"parameters"`
}

type zeroShotParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
	MultiLabel      bool     `json:"multi_label"`
}

// Score returns one independent entailment probability per label
func (s *HFZeroShotScorer) Score(ctx context.Context, text string, labels []string) ([]classify.LabelScore, error) {
	body, err := json.Marshal(zeroShotRequest{
		Inputs:     text,
		Parameters: zeroShotParameters{CandidateLabels: labels, MultiLabel: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var (
		payload   []byte
		retryable bool
		attempts  int
	)
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		attempts = attempt + 1
		if attempt > 0 {
			backoff := s.backoff << (attempt - 1)
			s.logger.Warn("Retrying zero-shot request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return nil, apperrors.NewContextCancelled("zero-shot score", ctx.Err())
			case <-time.After(backoff):
			}
		}

		payload, retryable, err = s.post(ctx, body)
		if err == nil {
			break
		}
		s.logger.Warn("Zero-shot request failed",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.String("model", s.model),
		)
		if ctx.Err() != nil || !retryable {
			break
		}
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, apperrors.NewClassifyFailed(s.model, attempts, retryable, err)
	}

	scores, err := parseZeroShot(payload)
	if err != nil {
		return nil, apperrors.NewClassifyFailed(s.model, attempts, false, err)
	}
	return scores, nil
}

// post sends one request and reports whether a failure is worth retrying.
// 503 is returned while the model is loading.
func (s *HFZeroShotScorer) post(ctx context.Context, body []byte) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("failed to call inference API: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(payload, "error").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, retryableStatus(resp.StatusCode), fmt.Errorf("inference API returned %d: %s", resp.StatusCode, msg)
	}
	return payload, false, nil
}

// parseZeroShot reads {"labels": [...], "scores": [...]}. Some deployments wrap
// the object in a one-element array.
func parseZeroShot(payload []byte) ([]classify.LabelScore, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("failed to parse response: invalid JSON")
	}
	result := gjson.ParseBytes(payload)
	if result.IsArray() {
		result = result.Get("0")
	}

	labels := result.Get("labels").Array()
	values := result.Get("scores").Array()
	if len(labels) == 0 || len(labels) != len(values) {
		return nil, apperrors.ErrClassifyNoScores
	}

	scores := make([]classify.LabelScore, len(labels))
	for i := range labels {
		scores[i] = classify.LabelScore{Label: labels[i].String(), Score: values[i].Float()}
	}
	return scores, nil
}
