// Package pipeline runs the ingestion steps in order against one store.
package pipeline

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/batch"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/classify"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/constants"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/graph"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/ingest"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/stats"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/taxonomy"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/logger"

	apperrors "github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/errors"
)

// Options selects the inputs and optional steps of a run
type Options struct {
	ExtractedFile string
	Classify      bool
	ClassifyOpts  classify.Options
}

// Result collects the batch report of every step that ran and the final statistics
type Result struct {
	Reports []*batch.Report
	Stats   *stats.Report
}

// Pipeline wires the ingestors, the classifier and the reporter to one store
type Pipeline struct {
	store    graph.Store
	taxonomy *taxonomy.Taxonomy
	scorer   classify.Scorer
	policy   graph.RetryPolicy
	logger   *zap.Logger
}

// New creates a pipeline. scorer may be nil when classification is never requested.
func New(store graph.Store, tax *taxonomy.Taxonomy, scorer classify.Scorer, policy graph.RetryPolicy) *Pipeline {
	return &Pipeline{
		store:    store,
		taxonomy: tax,
		scorer:   scorer,
		policy:   policy,
		logger:   logger.Get(),
	}
}

// Run executes schema, taxonomy, documents, observations, the optional classifier
// and statistics. Inputs are read and validated before the first write.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Classify && p.scorer == nil {
		return nil, apperrors.NewConfigMissingRequired("CLASSIFIER_BACKEND")
	}
	if err := p.taxonomy.Validate(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(opts.ExtractedFile)
	if err != nil {
		return nil, apperrors.NewConfigValidationFailed("EXTRACTED_FILE", err.Error())
	}
	records, err := ingest.ParseRecords(data)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	p.logger.Info("Pipeline started",
		zap.String("extracted_file", opts.ExtractedFile),
		zap.Int("records", len(records)),
		zap.Bool("classify", opts.Classify),
	)

	schema := batch.NewReport(constants.StepSchema)
	if err := ingest.EnsureSchema(ctx, p.store, p.policy, p.logger); err != nil {
		schema.Fail(1, "constraints", err)
		result.Reports = append(result.Reports, schema)
		return result, err
	}
	schema.Succeed()
	result.Reports = append(result.Reports, schema)

	steps := []func(context.Context) (*batch.Report, error){
		ingest.NewTaxonomyLoader(p.store, p.taxonomy, p.policy).Load,
		func(ctx context.Context) (*batch.Report, error) {
			return ingest.NewDocumentIngestor(p.store, p.policy).Ingest(ctx, records)
		},
		ingest.NewObservationIngestor(p.store, p.taxonomy, p.policy).Ingest,
	}
	if opts.Classify {
		classifyOpts := opts.ClassifyOpts
		classifyOpts.Retry = p.policy
		steps = append(steps, classify.NewClassifier(p.store, p.scorer, p.taxonomy, classifyOpts).ClassifyAll)
	}

	for _, step := range steps {
		report, err := step(ctx)
		if report != nil {
			result.Reports = append(result.Reports, report)
		}
		if err != nil {
			return result, err
		}
	}

	result.Stats, err = stats.NewReporter(p.store).Collect(ctx)
	if err != nil {
		return result, err
	}

	for _, r := range result.Reports {
		p.logger.Info("Step summary", zap.String("summary", r.Summary()))
	}
	return result, nil
}
