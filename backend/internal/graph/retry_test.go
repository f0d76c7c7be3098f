package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	apperrors "github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/errors"
)

func TestRetry_RetriesTransientErrors(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryPolicy{Retries: 3, BaseDelay: time.Millisecond}, zap.NewNop(), "merge",
		func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return apperrors.NewGraphQueryFailed("merge", true, errors.New("transient"))
			}
			return nil
		})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryPolicy{Retries: 3, BaseDelay: time.Millisecond}, zap.NewNop(), "merge",
		func(ctx context.Context) error {
			calls++
			return apperrors.NewGraphQueryFailed("merge", false, errors.New("constraint"))
		})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_GivesUpAfterPolicy(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryPolicy{Retries: 2, BaseDelay: time.Millisecond}, zap.NewNop(), "merge",
		func(ctx context.Context) error {
			calls++
			return apperrors.NewGraphQueryFailed("merge", true, errors.New("down"))
		})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := Retry(ctx, RetryPolicy{Retries: 5, BaseDelay: time.Hour}, zap.NewNop(), "merge",
		func(ctx context.Context) error {
			cancel()
			return apperrors.NewGraphQueryFailed("merge", true, errors.New("down"))
		})

	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeContext))
}
