package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/graph"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/taxonomy"
)

const threeArticles = `[
	{
		"title": "Running shoe cushioning and impact forces",
		"authors": ["A. Author"],
		"publication_year": 2018,
		"source_file": "cushioning.pdf",
		"abstract": ["Cushioning attenuates impact.", "Stiffness matters."],
		"keypoints": ["Softer midsoles lower peak impact.", "Runners adapt leg stiffness."]
	},
	{
		"title": "Shoe rotation and injury risk",
		"authors": ["B. Author", "C. Author"],
		"publication_year": "unknown",
		"source_file": "rotation.pdf",
		"keypoints": ["Rotating shoes lowered injury risk by 39%."]
	},
	{
		"title": "Heel-to-toe drop",
		"authors": [],
		"publication_year": 2016,
		"source_file": "drop.pdf",
		"keypoints": ["Low drop increases ankle load.", "High drop suits heel strikers."]
	}
]`

func parse(t *testing.T, doc string) []ParsedRecord {
	t.Helper()
	records, err := ParseRecords([]byte(doc))
	require.NoError(t, err)
	return records
}

func keypointIDs(t *testing.T, store graph.Store) []string {
	t.Helper()
	kps, err := store.ListKeypoints(context.Background())
	require.NoError(t, err)
	ids := make([]string, 0, len(kps))
	for _, kp := range kps {
		ids = append(ids, kp.ID)
	}
	return ids
}

func TestDocumentIngestor_DerivesIDs(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	report, err := NewDocumentIngestor(store, testPolicy).Ingest(ctx, parse(t, threeArticles))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 3, report.Succeeded)

	assert.Equal(t, []string{
		"paper_1_kp_1", "paper_1_kp_2",
		"paper_2_kp_1",
		"paper_3_kp_1", "paper_3_kp_2",
	}, keypointIDs(t, store))

	paper, err := store.Paper(ctx, "paper_1")
	require.NoError(t, err)
	assert.Equal(t, "Cushioning attenuates impact. Stiffness matters.", paper.Abstract)
	assert.Equal(t, []string{"A. Author"}, paper.Authors)
	assert.Equal(t, "cushioning.pdf", paper.SourceFile)
	require.NotNil(t, paper.PublicationYear)
	assert.Equal(t, 2018, *paper.PublicationYear)
}

func TestDocumentIngestor_MalformedFieldDefaults(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	report, err := NewDocumentIngestor(store, testPolicy).Ingest(ctx, parse(t, threeArticles))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Succeeded)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, 2, report.Warnings[0].Ordinal)

	paper, err := store.Paper(ctx, "paper_2")
	require.NoError(t, err)
	assert.Nil(t, paper.PublicationYear)
	assert.Equal(t, "", paper.Abstract)

	for _, id := range []string{"paper_1", "paper_3"} {
		_, err := store.Paper(ctx, id)
		assert.NoError(t, err, id)
	}
}

func TestDocumentIngestor_StoreFailureIsContained(t *testing.T) {
	ctx := context.Background()
	inner := newTestStore(t)
	store := newFlakyStore(inner)
	store.failPaper["paper_2"] = -1

	report, err := NewDocumentIngestor(store, testPolicy).Ingest(ctx, parse(t, threeArticles))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 2, report.Succeeded)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "paper_2", report.Failures[0].ID)
	assert.Equal(t, 1, store.calls["paper_2"], "permanent errors are not retried")

	assert.Equal(t, []string{"paper_1_kp_1", "paper_1_kp_2", "paper_3_kp_1", "paper_3_kp_2"}, keypointIDs(t, inner))
}

func TestDocumentIngestor_RetriesTransientFailure(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore(newTestStore(t))
	store.failPaper["paper_1"] = 2

	report, err := NewDocumentIngestor(store, testPolicy).Ingest(ctx, parse(t, threeArticles))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Succeeded)
	assert.Equal(t, 3, store.calls["paper_1"])
}

func TestDocumentIngestor_NonObjectRecordKeepsOrdinals(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	doc := `[{"title": "A", "keypoints": ["a"]}, 17, {"title": "C", "keypoints": ["c1", "c2"]}]`
	report, err := NewDocumentIngestor(store, testPolicy).Ingest(ctx, parse(t, doc))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, []string{"paper_1_kp_1", "paper_3_kp_1", "paper_3_kp_2"}, keypointIDs(t, store))
}

func TestDocumentIngestor_EmptyKeypointIsStored(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	doc := `[{"title": "A", "source_file": "a.pdf", "keypoints": ["", 7, "third"]}]`
	report, err := NewDocumentIngestor(store, testPolicy).Ingest(ctx, parse(t, doc))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)

	kps, err := store.ListKeypoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []graph.Keypoint{
		{ID: "paper_1_kp_1", Text: ""},
		{ID: "paper_1_kp_3", Text: "third"},
	}, kps)
}

func TestDocumentIngestor_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, ingestEverything(ctx, store, threeArticles))
	first, err := store.Counts(ctx)
	require.NoError(t, err)

	require.NoError(t, ingestEverything(ctx, store, threeArticles))
	second, err := store.Counts(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(3), second.Papers)
	assert.Equal(t, int64(5), second.Keypoints)
	assert.Equal(t, int64(5), second.HasKeypointEdges)
	assert.Equal(t, int64(7), second.Topics)
	assert.Equal(t, int64(6), second.TopicRelations)
	assert.Equal(t, int64(6), second.Observations)
	assert.Equal(t, int64(9), second.ObservationTopicEdges)
}

func TestDocumentIngestor_ReferentialIntegrity(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, ingestEverything(ctx, store, threeArticles))

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, counts.TotalKeypoints, counts.HasKeypointEdges, "one HAS_KEYPOINT per keypoint")
	assert.Equal(t, counts.TotalKeypoints, counts.Keypoints, "no orphan keypoints")

	for _, id := range keypointIDs(t, store) {
		owner := id[:strings.Index(id, "_kp_")]
		_, err := store.Paper(ctx, owner)
		assert.NoError(t, err, id)
	}
}

func TestDocumentIngestor_IngestFile(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	path := filepath.Join(t.TempDir(), "extracted_articles.json")
	require.NoError(t, os.WriteFile(path, []byte(threeArticles), 0o644))

	report, err := NewDocumentIngestor(store, testPolicy).IngestFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Succeeded)

	_, err = NewDocumentIngestor(store, testPolicy).IngestFile(ctx, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestDocumentIngestor_CancelledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewDocumentIngestor(store, testPolicy).Ingest(ctx, parse(t, threeArticles))
	assert.Error(t, err)
	assert.Equal(t, 0, report.Attempted)
}

func ingestEverything(ctx context.Context, store graph.Store, doc string) error {
	tax := taxonomy.Default()
	if err := EnsureSchema(ctx, store, testPolicy, nopLogger); err != nil {
		return err
	}
	if _, err := NewTaxonomyLoader(store, tax, testPolicy).Load(ctx); err != nil {
		return err
	}
	records, err := ParseRecords([]byte(doc))
	if err != nil {
		return err
	}
	if _, err := NewDocumentIngestor(store, testPolicy).Ingest(ctx, records); err != nil {
		return err
	}
	_, err = NewObservationIngestor(store, tax, testPolicy).Ingest(ctx)
	return err
}
