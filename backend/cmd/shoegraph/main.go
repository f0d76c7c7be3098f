// Package main is the shoegraph CLI: it builds the running-shoe knowledge graph
// step by step or in one run.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/batch"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/graph"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/taxonomy"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/config"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/logger"
)

// cfg is loaded once in the root PersistentPreRunE
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "shoegraph",
	Short: "Build a knowledge graph of running shoe research",
	Long: `shoegraph loads a fixed taxonomy of running shoe attributes, ingests papers
and keypoints from the PDF extraction artifact, adds curated observations and
links every keypoint to its top-k topics with a zero-shot classifier.

Every step is an idempotent merge, so any command can be rerun safely.
Configuration comes from the environment and an optional .env file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		return logger.Init(cfg.Env, cfg.LogLevel)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// withStore opens the configured store and taxonomy, runs fn, then closes the store
func withStore(ctx context.Context, fn func(graph.Store, *taxonomy.Taxonomy) error) error {
	tax, err := taxonomy.Load(cfg.TaxonomyFile)
	if err != nil {
		return err
	}
	store, err := graph.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Get().Warn("Failed to close store", zap.Error(err))
		}
	}()
	return fn(store, tax)
}

func retryPolicy() graph.RetryPolicy {
	return graph.RetryPolicy{Retries: cfg.WriteRetries, BaseDelay: cfg.WriteRetryBaseDelay}
}

func printSummary(reports ...*batch.Report) {
	for _, r := range reports {
		if r == nil {
			continue
		}
		fmt.Println(r.Summary())
		for _, f := range r.Failures {
			fmt.Printf("  failed #%d %s: %s\n", f.Ordinal, f.ID, f.Reason)
		}
	}
}
