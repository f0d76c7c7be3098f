package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/adapter"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/classify"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/graph"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/ingest"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/pipeline"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/stats"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/taxonomy"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/logger"

	apperrors "github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/errors"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create the uniqueness constraints",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withStore(ctx, func(store graph.Store, _ *taxonomy.Taxonomy) error {
			return ingest.EnsureSchema(ctx, store, retryPolicy(), logger.Get())
		})
	},
}

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Merge the topics and their relations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withStore(ctx, func(store graph.Store, tax *taxonomy.Taxonomy) error {
			report, err := ingest.NewTaxonomyLoader(store, tax, retryPolicy()).Load(ctx)
			printSummary(report)
			return err
		})
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest papers and keypoints from the extraction artifact",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		file, _ := cmd.Flags().GetString("file")
		if file == "" {
			file = cfg.ExtractedFile
		}
		return withStore(ctx, func(store graph.Store, _ *taxonomy.Taxonomy) error {
			report, err := ingest.NewDocumentIngestor(store, retryPolicy()).IngestFile(ctx, file)
			printSummary(report)
			return err
		})
	},
}

var observationsCmd = &cobra.Command{
	Use:   "observations",
	Short: "Merge the curated observations and their topic links",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withStore(ctx, func(store graph.Store, tax *taxonomy.Taxonomy) error {
			report, err := ingest.NewObservationIngestor(store, tax, retryPolicy()).Ingest(ctx)
			printSummary(report)
			return err
		})
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Link every keypoint to its top-k topics",
	Long: `Classify scores each keypoint against all topics with the configured
zero-shot backend and merges a RELATES_TO edge for each of the k best.
Edges from earlier runs are kept, so a larger k only adds links.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		scorer, err := adapter.NewScorer(cfg)
		if err != nil {
			return err
		}
		opts, err := classifyOptions(cmd)
		if err != nil {
			return err
		}
		return withStore(ctx, func(store graph.Store, tax *taxonomy.Taxonomy) error {
			report, err := classify.NewClassifier(store, scorer, tax, opts).ClassifyAll(ctx)
			printSummary(report)
			return err
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print node and edge counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withStore(ctx, func(store graph.Store, _ *taxonomy.Taxonomy) error {
			report, err := stats.NewReporter(store).Collect(ctx)
			if err != nil {
				return err
			}
			return report.Write(os.Stdout)
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run schema, taxonomy, ingest, observations, classify and stats in order",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		withClassify, _ := cmd.Flags().GetBool("classify")
		file, _ := cmd.Flags().GetString("file")
		if file == "" {
			file = cfg.ExtractedFile
		}

		opts, err := classifyOptions(cmd)
		if err != nil {
			return err
		}
		var scorer classify.Scorer
		if withClassify {
			if scorer, err = adapter.NewScorer(cfg); err != nil {
				return err
			}
		}

		return withStore(ctx, func(store graph.Store, tax *taxonomy.Taxonomy) error {
			result, err := pipeline.New(store, tax, scorer, retryPolicy()).Run(ctx, pipeline.Options{
				ExtractedFile: file,
				Classify:      withClassify,
				ClassifyOpts:  opts,
			})
			if result != nil {
				printSummary(result.Reports...)
				if result.Stats != nil {
					result.Stats.Write(os.Stdout)
				}
			}
			return err
		})
	},
}

// classifyOptions layers the classify flags over the configuration. Flags are
// held to the same bounds Config.Validate applies to the environment.
func classifyOptions(cmd *cobra.Command) (classify.Options, error) {
	opts := classify.Options{
		TopK:    cfg.ClassifyTopK,
		Workers: cfg.ClassifyWorkers,
		Timeout: cfg.ClassifyTimeout,
		Retry:   retryPolicy(),
	}
	if cmd.Flags().Changed("top-k") {
		opts.TopK, _ = cmd.Flags().GetInt("top-k")
	}
	if cmd.Flags().Changed("workers") {
		opts.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("timeout") {
		opts.Timeout, _ = cmd.Flags().GetDuration("timeout")
	}

	if opts.TopK < 1 {
		return opts, apperrors.NewConfigValidationFailed("top-k", "must be at least 1")
	}
	if opts.Workers < 1 {
		return opts, apperrors.NewConfigValidationFailed("workers", "must be at least 1")
	}
	if opts.Timeout <= 0 {
		return opts, apperrors.NewConfigValidationFailed("timeout", "must be positive")
	}
	return opts, nil
}

func addClassifyFlags(cmd *cobra.Command) {
	cmd.Flags().Int("top-k", 0, "topics linked per keypoint (default from CLASSIFY_TOP_K)")
	cmd.Flags().Int("workers", 0, "keypoints scored concurrently (default from CLASSIFY_WORKERS)")
	cmd.Flags().Duration("timeout", 0, "per keypoint scoring timeout (default from CLASSIFY_TIMEOUT)")
}

func init() {
	ingestCmd.Flags().String("file", "", "extraction artifact (default from EXTRACTED_FILE)")
	runCmd.Flags().String("file", "", "extraction artifact (default from EXTRACTED_FILE)")
	runCmd.Flags().Bool("classify", false, "classify keypoints after ingestion")
	addClassifyFlags(classifyCmd)
	addClassifyFlags(runCmd)

	rootCmd.AddCommand(schemaCmd, taxonomyCmd, ingestCmd, observationsCmd, classifyCmd, statsCmd, runCmd)
}
