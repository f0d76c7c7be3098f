package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/graph"

	apperrors "github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/errors"
)

var (
	testPolicy = graph.RetryPolicy{Retries: 2, BaseDelay: time.Millisecond}
	nopLogger  = zap.NewNop()
)

func newTestStore(t *testing.T) *graph.SQLiteStore {
	t.Helper()
	store, err := graph.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(context.Background()) })
	require.NoError(t, store.EnsureConstraints(context.Background()))
	return store
}

// flakyStore fails UpsertPaper for chosen ids, either permanently or a set
// number of times with a retryable error.
type flakyStore struct {
	graph.Store
	failPaper map[string]int // remaining failures; negative means always, non-retryable
	calls     map[string]int
}

func newFlakyStore(inner graph.Store) *flakyStore {
	return &flakyStore{Store: inner, failPaper: map[string]int{}, calls: map[string]int{}}
}

func (f *flakyStore) UpsertPaper(ctx context.Context, paper graph.ResearchPaper) error {
	f.calls[paper.ID]++
	switch n := f.failPaper[paper.ID]; {
	case n < 0:
		return apperrors.NewGraphQueryFailed("upsert paper", false, errors.New("constraint violated"))
	case n > 0:
		f.failPaper[paper.ID] = n - 1
		return apperrors.NewGraphQueryFailed("upsert paper", true, errors.New("connection reset"))
	}
	return f.Store.UpsertPaper(ctx, paper)
}
