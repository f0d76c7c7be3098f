package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/errors"
)

func TestParseRecords_WellFormed(t *testing.T) {
	data := []byte(`[
		{
			"title": "Effects of heel-to-toe drop",
			"authors": ["Malisoux, L.", "Chambon, N."],
			"publication_year": 2016,
			"source_file": "drop.pdf",
			"abstract": ["First paragraph.", "Second paragraph."],
			"keypoints": ["Lower drop shifts load to the ankle.", "Higher drop favours heel strikers."]
		}
	]`)

	records, err := ParseRecords(data)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, 1, rec.Ordinal)
	assert.NoError(t, rec.Err)
	assert.Empty(t, rec.Warnings)
	assert.Equal(t, "Effects of heel-to-toe drop", rec.Record.Title)
	assert.Equal(t, []string{"Malisoux, L.", "Chambon, N."}, rec.Record.Authors)
	require.NotNil(t, rec.Record.PublicationYear)
	assert.Equal(t, 2016, *rec.Record.PublicationYear)
	assert.Equal(t, "drop.pdf", rec.Record.SourceFile)
	assert.Equal(t, []string{"First paragraph.", "Second paragraph."}, rec.Record.Abstract)
	assert.Len(t, rec.Record.Keypoints, 2)
}

func TestParseRecords_Defaults(t *testing.T) {
	data := []byte(`[
		{"source_file": "a.pdf", "publication_year": null},
		{"title": 42, "source_file": "b.pdf", "authors": "Solo Author", "publication_year": "2019", "keypoints": ["one", 7, "three"]},
		{"title": "Float year", "source_file": "c.pdf", "publication_year": 2019.5, "abstract": {"x": 1}}
	]`)

	records, err := ParseRecords(data)
	require.NoError(t, err)
	require.Len(t, records, 3)

	first := records[0].Record
	assert.Equal(t, "", first.Title)
	assert.Empty(t, first.Authors)
	assert.Nil(t, first.PublicationYear)
	assert.Empty(t, first.Abstract)
	assert.Empty(t, first.Keypoints)
	assert.Len(t, records[0].Warnings, 1, "missing title is reported")

	second := records[1]
	assert.Equal(t, "", second.Record.Title)
	assert.Equal(t, []string{"Solo Author"}, second.Record.Authors)
	assert.Nil(t, second.Record.PublicationYear)
	assert.Equal(t, []string{"one", "", "three"}, second.Record.Keypoints, "positions are kept")
	assert.Equal(t, []int{1}, second.Record.InvalidKeypoints)
	assert.False(t, second.Record.KeypointValid(1))
	assert.True(t, second.Record.KeypointValid(2))
	assert.Len(t, second.Warnings, 3)

	third := records[2]
	assert.Nil(t, third.Record.PublicationYear)
	assert.Empty(t, third.Record.Abstract)
	assert.Len(t, third.Warnings, 2)
}

func TestParseRecords_NonObjectElement(t *testing.T) {
	records, err := ParseRecords([]byte(`[{"title": "A"}, "oops", {"title": "C"}]`))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.NoError(t, records[0].Err)
	assert.Error(t, records[1].Err)
	assert.True(t, apperrors.IsErrorType(records[1].Err, apperrors.ErrorTypeIngest))
	assert.Equal(t, 3, records[2].Ordinal)
	assert.Equal(t, "C", records[2].Record.Title)
}

func TestParseRecords_RejectsArtifact(t *testing.T) {
	for _, doc := range []string{`{"title": "not an array"}`, `[{"title": `, ``} {
		_, err := ParseRecords([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestIDs(t *testing.T) {
	assert.Equal(t, "paper_3", PaperID(3))
	assert.Equal(t, "paper_3_kp_2", KeypointID(PaperID(3), 2))
	assert.Equal(t, "obs_6", ObservationID(6))
}
