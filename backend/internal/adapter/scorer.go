// Package adapter connects the classifier to hosted scoring models.
package adapter

import (
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/classify"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/config"

	apperrors "github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/errors"
)

// NewScorer builds the scorer selected by CLASSIFIER_BACKEND
func NewScorer(cfg *config.Config) (classify.Scorer, error) {
	switch cfg.ClassifierBackend {
	case config.ClassifierHuggingFace:
		return NewHFZeroShotScorer(cfg.HFAPIURL, cfg.HFAPIToken, cfg.HFModel), nil
	case config.ClassifierLLM:
		return NewLLMScorer(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel), nil
	default:
		return nil, apperrors.NewConfigValidationFailed("CLASSIFIER_BACKEND", "unknown backend "+cfg.ClassifierBackend)
	}
}
