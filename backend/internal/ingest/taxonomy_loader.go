package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/batch"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/constants"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/graph"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/taxonomy"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/logger"

	apperrors "github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/errors"
)

// TaxonomyLoader merges the topic nodes and their curated RELATED_TO edges
type TaxonomyLoader struct {
	w        writer
	taxonomy *taxonomy.Taxonomy
}

// NewTaxonomyLoader creates a loader for tax
func NewTaxonomyLoader(store graph.Store, tax *taxonomy.Taxonomy, policy graph.RetryPolicy) *TaxonomyLoader {
	return &TaxonomyLoader{
		w:        writer{store: store, policy: policy, logger: logger.Get()},
		taxonomy: tax,
	}
}

// Load merges every topic, then every relation. Any item that could not be
// written makes the taxonomy incomplete, which is reported as a config error.
func (l *TaxonomyLoader) Load(ctx context.Context) (*batch.Report, error) {
	report := batch.NewReport(constants.StepTaxonomy)
	log := l.w.logger

	for i, name := range l.taxonomy.Topics {
		err := l.w.do(ctx, "merge topic", func(ctx context.Context) error {
			return l.w.store.MergeTopic(ctx, name)
		})
		if err != nil {
			report.Fail(i+1, name, err)
			continue
		}
		report.Succeed()
	}
	log.Info("Topics merged", zap.Int("count", len(l.taxonomy.Topics)))

	for i, rel := range l.taxonomy.Relations {
		err := l.w.link(ctx, "merge topic relation", constants.RelRelatedTo, rel.Source, rel.Target,
			func(ctx context.Context) (bool, error) {
				return l.w.store.MergeTopicRelation(ctx, rel.Source, rel.Target, rel.Description)
			})
		if err != nil {
			report.Fail(len(l.taxonomy.Topics)+i+1, rel.Source+"->"+rel.Target, err)
			continue
		}
		report.Succeed()
	}
	log.Info("Topic relations merged", zap.Int("count", len(l.taxonomy.Relations)))

	report.Log(log)
	if n := report.Failed(); n > 0 {
		return report, apperrors.NewConfigValidationFailed("taxonomy", fmt.Sprintf("%d topic or relation writes failed", n))
	}
	return report, nil
}
