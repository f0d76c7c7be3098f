package ingest

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/batch"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/constants"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/graph"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/taxonomy"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/logger"

	apperrors "github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/errors"
)

// ObservationIngestor writes the curated observations and their topic links
type ObservationIngestor struct {
	w        writer
	taxonomy *taxonomy.Taxonomy
}

// NewObservationIngestor creates an ingestor for the observations of tax
func NewObservationIngestor(store graph.Store, tax *taxonomy.Taxonomy, policy graph.RetryPolicy) *ObservationIngestor {
	return &ObservationIngestor{
		w:        writer{store: store, policy: policy, logger: logger.Get()},
		taxonomy: tax,
	}
}

// Ingest upserts obs_1..obs_n and merges a RELATES_TO edge per listed topic
func (o *ObservationIngestor) Ingest(ctx context.Context) (*batch.Report, error) {
	report := batch.NewReport(constants.StepObservations)
	log := o.w.logger
	total := len(o.taxonomy.Observations)

	for i, seed := range o.taxonomy.Observations {
		if err := ctx.Err(); err != nil {
			report.Log(log)
			return report, apperrors.NewContextCancelled("ingest observations", err)
		}

		ordinal := i + 1
		obs := graph.Observation{ID: ObservationID(ordinal), Text: seed.Text}
		if err := o.ingestOne(ctx, obs, seed.Topics); err != nil {
			report.Fail(ordinal, obs.ID, err)
			continue
		}
		report.Succeed()

		log.Info("Imported observation",
			zap.Int("ordinal", ordinal),
			zap.Int("total", total),
			zap.Strings("topics", seed.Topics),
		)
	}

	report.Log(log)
	return report, nil
}

func (o *ObservationIngestor) ingestOne(ctx context.Context, obs graph.Observation, topics []string) error {
	err := o.w.do(ctx, "upsert observation", func(ctx context.Context) error {
		return o.w.store.UpsertObservation(ctx, obs)
	})
	if err != nil {
		return err
	}

	var errs []error
	for _, topic := range topics {
		err := o.w.link(ctx, "link observation topic", constants.RelRelatesTo, obs.ID, topic,
			func(ctx context.Context) (bool, error) {
				return o.w.store.LinkObservationTopic(ctx, obs.ID, topic)
			})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
