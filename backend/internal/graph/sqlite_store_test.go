package graph

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(context.Background()) })
	require.NoError(t, store.EnsureConstraints(context.Background()))
	return store
}

func TestSQLiteStore_EnsureConstraintsTwice(t *testing.T) {
	store := newTestSQLite(t)
	assert.NoError(t, store.EnsureConstraints(context.Background()))
}

func TestSQLiteStore_UpsertPaperOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)

	year := 2019
	require.NoError(t, store.UpsertPaper(ctx, ResearchPaper{
		ID: "paper_1", Title: "Old", Authors: []string{"A", "B"}, PublicationYear: &year, SourceFile: "a.pdf",
	}))
	require.NoError(t, store.UpsertPaper(ctx, ResearchPaper{
		ID: "paper_1", Title: "New", Authors: nil, SourceFile: "b.pdf", Abstract: "x y",
	}))

	paper, err := store.Paper(ctx, "paper_1")
	require.NoError(t, err)
	assert.Equal(t, "New", paper.Title)
	assert.Empty(t, paper.Authors)
	assert.Nil(t, paper.PublicationYear)
	assert.Equal(t, "b.pdf", paper.SourceFile)
	assert.Equal(t, "x y", paper.Abstract)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Papers)
}

func TestSQLiteStore_KeypointRequiresPaper(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)

	linked, err := store.UpsertKeypoint(ctx, "paper_9", Keypoint{ID: "paper_9_kp_1", Text: "orphan"})
	require.NoError(t, err)
	assert.False(t, linked)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts.TotalKeypoints)
}

func TestSQLiteStore_MergesAreIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)

	for run := 0; run < 2; run++ {
		require.NoError(t, store.MergeTopic(ctx, "Offset"))
		require.NoError(t, store.MergeTopic(ctx, "Stack Height"))

		ok, err := store.MergeTopicRelation(ctx, "Offset", "Stack Height", "affects stability and ground feel")
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, store.UpsertPaper(ctx, ResearchPaper{ID: "paper_1", Title: "T"}))
		ok, err = store.UpsertKeypoint(ctx, "paper_1", Keypoint{ID: "paper_1_kp_1", Text: "drop matters"})
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, store.UpsertObservation(ctx, Observation{ID: "obs_1", Text: "note"}))
		ok, err = store.LinkObservationTopic(ctx, "obs_1", "Offset")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.LinkKeypointTopic(ctx, "paper_1_kp_1", "Offset")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Counts{
		Papers:                1,
		Keypoints:             1,
		TotalKeypoints:        1,
		Observations:          1,
		Topics:                2,
		TopicRelations:        1,
		HasKeypointEdges:      1,
		ObservationTopicEdges: 1,
		KeypointTopicEdges:    1,
		ClassifiedKeypoints:   1,
	}, counts)
}

func TestSQLiteStore_LinkMissingEndpoint(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)
	require.NoError(t, store.MergeTopic(ctx, "Offset"))
	require.NoError(t, store.UpsertObservation(ctx, Observation{ID: "obs_1", Text: "note"}))

	ok, err := store.LinkObservationTopic(ctx, "obs_1", "Ofset")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.MergeTopicRelation(ctx, "Offset", "Nowhere", "x")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.LinkKeypointTopic(ctx, "paper_1_kp_1", "Offset")
	require.NoError(t, err)
	assert.False(t, ok)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts.ObservationTopicEdges)
	assert.Zero(t, counts.TopicRelations)
	assert.Zero(t, counts.KeypointTopicEdges)
}

func TestSQLiteStore_ListAndTopicCounts(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)

	for _, name := range []string{"Offset", "Cushioning", "Gait Patterns"} {
		require.NoError(t, store.MergeTopic(ctx, name))
	}
	require.NoError(t, store.UpsertPaper(ctx, ResearchPaper{ID: "paper_1"}))
	for _, id := range []string{"paper_1_kp_2", "paper_1_kp_1", "paper_1_kp_3"} {
		_, err := store.UpsertKeypoint(ctx, "paper_1", Keypoint{ID: id, Text: "text " + id})
		require.NoError(t, err)
	}

	links := map[string][]string{
		"paper_1_kp_1": {"Offset", "Cushioning"},
		"paper_1_kp_2": {"Cushioning"},
		"paper_1_kp_3": {"Gait Patterns"},
	}
	for kp, topics := range links {
		for _, topic := range topics {
			_, err := store.LinkKeypointTopic(ctx, kp, topic)
			require.NoError(t, err)
		}
	}

	keypoints, err := store.ListKeypoints(ctx)
	require.NoError(t, err)
	require.Len(t, keypoints, 3)
	assert.Equal(t, "paper_1_kp_1", keypoints[0].ID)
	assert.Equal(t, "text paper_1_kp_3", keypoints[2].Text)

	perTopic, err := store.KeypointTopicCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []TopicCount{
		{Topic: "Cushioning", Keypoints: 2},
		{Topic: "Gait Patterns", Keypoints: 1},
		{Topic: "Offset", Keypoints: 1},
	}, perTopic)
}

func TestSQLiteStore_FileReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graph.db")

	store, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, store.EnsureConstraints(ctx))
	require.NoError(t, store.MergeTopic(ctx, "Offset"))
	require.NoError(t, store.Close(ctx))

	store, err = OpenSQLite(path)
	require.NoError(t, err)
	defer store.Close(ctx)
	require.NoError(t, store.EnsureConstraints(ctx))

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Topics)
}

func TestSQLiteStore_RelatedTopics(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLite(t)
	for _, name := range []string{"Offset", "Stack Height", "Shoe Rotation", "Cushioning"} {
		require.NoError(t, store.MergeTopic(ctx, name))
	}
	for _, rel := range []TopicRelation{
		{"Offset", "Stack Height", "affects stability and ground feel"},
		{"Offset", "Shoe Rotation", "varying offset helps prevent overuse injuries"},
		{"Cushioning", "Shoe Rotation", "rotating cushioning levels reduces repetitive stress"},
	} {
		ok, err := store.MergeTopicRelation(ctx, rel.Source, rel.Target, rel.Relationship)
		require.NoError(t, err)
		require.True(t, ok)
	}

	related, err := store.RelatedTopics(ctx, "Shoe Rotation")
	require.NoError(t, err)
	assert.Equal(t, []TopicRelation{
		{"Cushioning", "Shoe Rotation", "rotating cushioning levels reduces repetitive stress"},
		{"Offset", "Shoe Rotation", "varying offset helps prevent overuse injuries"},
	}, related)

	related, err = store.RelatedTopics(ctx, "Weather Conditions")
	require.NoError(t, err)
	assert.Empty(t, related)
}
