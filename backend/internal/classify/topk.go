// Package classify assigns each keypoint its top-k taxonomy topics using a
// zero-shot scoring model.
package classify

import (
	"context"
	"sort"
)

// LabelScore is the model's independent probability that a label applies
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Scorer scores text against every candidate label independently (multi-label).
// The scores need not sum to one.
type Scorer interface {
	Score(ctx context.Context, text string, labels []string) ([]LabelScore, error)
}

// TopK ranks labels by descending score and keeps the first k. Only names in
// labels can be returned; labels the scorer left out score 0 and ties keep the
// order of labels.
func TopK(scores []LabelScore, labels []string, k int) []LabelScore {
	if k <= 0 {
		return []LabelScore{}
	}

	byLabel := make(map[string]float64, len(scores))
	for _, s := range scores {
		byLabel[s.Label] = s.Score
	}

	ranked := make([]LabelScore, len(labels))
	for i, label := range labels {
		ranked[i] = LabelScore{Label: label, Score: byLabel[label]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}

// Names returns the labels of scores in order
func Names(scores []LabelScore) []string {
	names := make([]string, len(scores))
	for i, s := range scores {
		names[i] = s.Label
	}
	return names
}
