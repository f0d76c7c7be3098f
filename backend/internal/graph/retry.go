package graph

import (
	"context"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/errors"
)

// RetryPolicy bounds the retries of an idempotent store write
type RetryPolicy struct {
	Retries   int           // extra attempts after the first
	BaseDelay time.Duration // doubles after every failed attempt
}

// Retry runs fn until it succeeds, returns a non-retryable error, or the policy is
// exhausted. Only merges may be passed here: fn must be safe to repeat.
func Retry(ctx context.Context, policy RetryPolicy, log *zap.Logger, op string, fn func(context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil || !apperrors.IsRetryable(err) || attempt >= policy.Retries {
			return err
		}

		backoff := policy.BaseDelay << attempt
		log.Warn("Retrying store write",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return apperrors.NewContextCancelled(op, ctx.Err())
		case <-time.After(backoff):
		}
	}
}
