// Package ingest writes the taxonomy, extracted documents and curated
// observations into the graph store.
package ingest

import (
	"context"

	"go.uber.org/zap"

	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/graph"

	apperrors "github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/errors"
)

// writer wraps every store write in the retry policy
type writer struct {
	store  graph.Store
	policy graph.RetryPolicy
	logger *zap.Logger
}

func (w writer) do(ctx context.Context, op string, fn func(context.Context) error) error {
	return graph.Retry(ctx, w.policy, w.logger, op, fn)
}

// link runs an edge merge and turns an unmatched endpoint into an error
func (w writer) link(ctx context.Context, op, rel, source, target string, fn func(context.Context) (bool, error)) error {
	var linked bool
	err := w.do(ctx, op, func(ctx context.Context) error {
		var err error
		linked, err = fn(ctx)
		return err
	})
	if err != nil {
		return err
	}
	if !linked {
		return apperrors.NewGraphEndpointNotFound(rel, source, target)
	}
	return nil
}

// EnsureSchema declares the uniqueness constraints. It must run before any ingestor.
func EnsureSchema(ctx context.Context, store graph.Store, policy graph.RetryPolicy, log *zap.Logger) error {
	w := writer{store: store, policy: policy, logger: log}
	return w.do(ctx, "ensure constraints", store.EnsureConstraints)
}
