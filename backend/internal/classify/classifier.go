package classify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/batch"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/constants"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/graph"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/taxonomy"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/logger"

	apperrors "github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/errors"
)

// Options tunes a classification run
type Options struct {
	TopK    int
	Workers int           // keypoints scored concurrently, at least 1
	Timeout time.Duration // per keypoint, zero means none
	Retry   graph.RetryPolicy
}

// Classifier links keypoints to their top-k topics
type Classifier struct {
	store    graph.Store
	scorer   Scorer
	taxonomy *taxonomy.Taxonomy
	opts     Options
	logger   *zap.Logger
}

// NewClassifier creates a classifier. A zero TopK falls back to the default of 2;
// a negative one is rejected by ClassifyAll.
func NewClassifier(store graph.Store, scorer Scorer, tax *taxonomy.Taxonomy, opts Options) *Classifier {
	if opts.TopK == 0 {
		opts.TopK = constants.DefaultTopK
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Classifier{
		store:    store,
		scorer:   scorer,
		taxonomy: tax,
		opts:     opts,
		logger:   logger.Get(),
	}
}

// Score returns the top-k label scores for text without touching the store
func (c *Classifier) Score(ctx context.Context, text string) ([]LabelScore, error) {
	return c.Rank(ctx, text, c.opts.TopK)
}

// Rank is Score with an explicit k. The scorer call is bounded by the
// configured timeout; running out of it is an ErrContextTimeout.
func (c *Classifier) Rank(ctx context.Context, text string, k int) ([]LabelScore, error) {
	scoreCtx := ctx
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		scoreCtx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	scores, err := c.scorer.Score(scoreCtx, text, c.taxonomy.Topics)
	if err != nil {
		if ctx.Err() == nil && errors.Is(scoreCtx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.NewContextTimeout("score text", c.opts.Timeout)
		}
		return nil, err
	}
	if len(scores) == 0 {
		return nil, apperrors.ErrClassifyNoScores
	}

	// every selected topic carries a model score; unscored topics never fill a slot
	known := c.knownLabels(scores)
	if need := min(k, len(c.taxonomy.Topics)); known < need || known == 0 {
		return nil, fmt.Errorf("%w: %d of %d returned labels are topics, need %d",
			apperrors.ErrClassifyNoScores, known, len(scores), need)
	}
	return TopK(scores, c.taxonomy.Topics, k), nil
}

// knownLabels counts the distinct taxonomy topics among scores
func (c *Classifier) knownLabels(scores []LabelScore) int {
	seen := make(map[string]bool, len(scores))
	for _, s := range scores {
		if c.taxonomy.Contains(s.Label) {
			seen[s.Label] = true
		}
	}
	return len(seen)
}

// Classify returns the names of the top-k topics for text
func (c *Classifier) Classify(ctx context.Context, text string) ([]string, error) {
	scores, err := c.Score(ctx, text)
	if err != nil {
		return nil, err
	}
	return Names(scores), nil
}

// ClassifyAll scores every keypoint in the store and merges one RELATES_TO edge per
// selected topic. Existing edges are never removed, so rerunning with a larger k
// only adds edges. A keypoint that fails is reported and skipped; the error is
// non-nil only for a TopK below 1 or when ctx ends before the batch does.
func (c *Classifier) ClassifyAll(ctx context.Context) (*batch.Report, error) {
	report := batch.NewReport(constants.StepClassify)
	if c.opts.TopK < 1 {
		return report, apperrors.NewConfigValidationFailed("top-k", "must be at least 1")
	}
	if err := ctx.Err(); err != nil {
		return report, apperrors.NewContextCancelled("classify keypoints", err)
	}

	keypoints, err := c.store.ListKeypoints(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list keypoints: %w", err)
	}
	total := len(keypoints)
	c.logger.Info("Classifying keypoints",
		zap.Int("total", total),
		zap.Int("top_k", c.opts.TopK),
		zap.Int("workers", c.opts.Workers),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)

	var (
		mu   sync.Mutex
		done int
	)
	for i, kp := range keypoints {
		ordinal := i + 1
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			topics, err := c.classifyOne(gctx, kp)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				report.Fail(ordinal, kp.ID, err)
				c.logger.Warn("Keypoint not classified",
					zap.String("keypoint_id", kp.ID),
					zap.Error(err),
				)
				return nil
			}
			report.Succeed()

			mu.Lock()
			done++
			n := done
			mu.Unlock()
			c.logger.Info("Classified keypoint",
				zap.Int("done", n),
				zap.Int("total", total),
				zap.String("keypoint_id", kp.ID),
				zap.Strings("topics", topics),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		report.Log(c.logger)
		return report, apperrors.NewContextCancelled("classify keypoints", err)
	}

	report.Log(c.logger)
	return report, nil
}

// classifyOne scores a keypoint under the per-item timeout and links its topics
func (c *Classifier) classifyOne(ctx context.Context, kp graph.Keypoint) ([]string, error) {
	topics, err := c.Classify(ctx, kp.Text)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, topic := range topics {
		if err := c.link(ctx, kp.ID, topic); err != nil {
			errs = append(errs, err)
		}
	}
	return topics, errors.Join(errs...)
}

func (c *Classifier) link(ctx context.Context, keypointID, topic string) error {
	var linked bool
	err := graph.Retry(ctx, c.opts.Retry, c.logger, "link keypoint topic", func(ctx context.Context) error {
		var err error
		linked, err = c.store.LinkKeypointTopic(ctx, keypointID, topic)
		return err
	})
	if err != nil {
		return err
	}
	if !linked {
		return apperrors.NewGraphEndpointNotFound(constants.RelRelatesTo, keypointID, topic)
	}
	return nil
}
