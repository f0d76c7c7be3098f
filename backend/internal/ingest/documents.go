package ingest

import (
	"context"
	"errors"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/batch"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/constants"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/graph"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/logger"

	apperrors "github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/errors"
)

// DocumentIngestor writes ResearchPaper and Keypoint nodes from extraction records
type DocumentIngestor struct {
	w writer
}

// NewDocumentIngestor creates a document ingestor
func NewDocumentIngestor(store graph.Store, policy graph.RetryPolicy) *DocumentIngestor {
	return &DocumentIngestor{
		w: writer{store: store, policy: policy, logger: logger.Get()},
	}
}

// IngestFile reads the extraction artifact at path and ingests it. Failing to read
// or parse the artifact as a whole is returned as an error before any write.
func (d *DocumentIngestor) IngestFile(ctx context.Context, path string) (*batch.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewBaseError(apperrors.ErrorTypeIngest, "failed to read extraction artifact "+path, err)
	}
	records, err := ParseRecords(data)
	if err != nil {
		return nil, err
	}
	return d.Ingest(ctx, records)
}

// Ingest upserts each record as its own unit of work. A record that fails is
// reported and skipped; records already written stay committed. The error is
// non-nil only when ctx ends before the batch does.
func (d *DocumentIngestor) Ingest(ctx context.Context, records []ParsedRecord) (*batch.Report, error) {
	report := batch.NewReport(constants.StepDocuments)
	log := d.w.logger
	total := len(records)

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			report.Log(log)
			return report, apperrors.NewContextCancelled("ingest documents", err)
		}

		paperID := PaperID(rec.Ordinal)
		if rec.Err != nil {
			report.Fail(rec.Ordinal, paperID, rec.Err)
			continue
		}
		for _, w := range rec.Warnings {
			report.Warn(rec.Ordinal, paperID, w)
			log.Warn("Record defaulted", zap.String("paper_id", paperID), zap.String("detail", w))
		}

		if err := d.ingestRecord(ctx, paperID, rec.Record); err != nil {
			report.Fail(rec.Ordinal, paperID, err)
			continue
		}
		report.Succeed()

		log.Info("Imported paper",
			zap.Int("ordinal", rec.Ordinal),
			zap.Int("total", total),
			zap.String("paper_id", paperID),
			zap.String("title", truncate(rec.Record.Title, 50)),
		)
	}

	report.Log(log)
	return report, nil
}

// ingestRecord writes the paper, then each keypoint with its HAS_KEYPOINT edge.
// A failed keypoint does not stop the remaining ones.
func (d *DocumentIngestor) ingestRecord(ctx context.Context, paperID string, rec Record) error {
	paper := graph.ResearchPaper{
		ID:              paperID,
		Title:           rec.Title,
		Authors:         rec.Authors,
		PublicationYear: rec.PublicationYear,
		SourceFile:      rec.SourceFile,
		Abstract:        strings.Join(rec.Abstract, " "),
	}
	err := d.w.do(ctx, "upsert paper", func(ctx context.Context) error {
		return d.w.store.UpsertPaper(ctx, paper)
	})
	if err != nil {
		return err
	}

	var errs []error
	for j, text := range rec.Keypoints {
		if !rec.KeypointValid(j) {
			continue
		}
		kp := graph.Keypoint{ID: KeypointID(paperID, j+1), Text: text}
		err := d.w.link(ctx, "upsert keypoint", constants.RelHasKeypoint, paperID, kp.ID,
			func(ctx context.Context) (bool, error) {
				return d.w.store.UpsertKeypoint(ctx, paperID, kp)
			})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
