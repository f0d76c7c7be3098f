package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/logger"

	apperrors "github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/errors"
)

// sqliteSchema renders the graph relationally: primary keys carry the uniqueness
// constraints and each edge type is a junction table keyed by its endpoints.
const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS research_papers (
		id               TEXT PRIMARY KEY,
		title            TEXT NOT NULL DEFAULT '',
		authors          TEXT NOT NULL DEFAULT '[]',
		publication_year INTEGER,
		source_file      TEXT NOT NULL DEFAULT '',
		abstract         TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS keypoints (
		id   TEXT PRIMARY KEY,
		text TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS observations (
		id   TEXT PRIMARY KEY,
		text TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS topics (
		name TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS has_keypoint (
		keypoint_id TEXT PRIMARY KEY REFERENCES keypoints(id),
		paper_id    TEXT NOT NULL REFERENCES research_papers(id)
	);

	CREATE TABLE IF NOT EXISTS related_to (
		source       TEXT NOT NULL REFERENCES topics(name),
		target       TEXT NOT NULL REFERENCES topics(name),
		relationship TEXT NOT NULL,
		PRIMARY KEY (source, target, relationship)
	);

	CREATE TABLE IF NOT EXISTS observation_topics (
		observation_id TEXT NOT NULL REFERENCES observations(id),
		topic          TEXT NOT NULL REFERENCES topics(name),
		PRIMARY KEY (observation_id, topic)
	);

	CREATE TABLE IF NOT EXISTS keypoint_topics (
		keypoint_id TEXT NOT NULL REFERENCES keypoints(id),
		topic       TEXT NOT NULL REFERENCES topics(name),
		PRIMARY KEY (keypoint_id, topic)
	);

	CREATE INDEX IF NOT EXISTS idx_has_keypoint_paper ON has_keypoint(paper_id);
	CREATE INDEX IF NOT EXISTS idx_keypoint_topics_topic ON keypoint_topics(topic);
`

// SQLiteStore is a Store backed by a single SQLite database file
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens or creates the database at path. ":memory:" gives a private
// in-memory database. Tables are created by EnsureConstraints.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serializes writers and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperrors.NewGraphConnectionFailed(path, err)
	}

	return &SQLiteStore{db: db, logger: logger.Get()}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close(ctx context.Context) error {
	return s.db.Close()
}

// EnsureConstraints creates the tables and their keys if absent
func (s *SQLiteStore) EnsureConstraints(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return sqliteError("create schema", err)
	}
	s.logger.Info("Constraints ensured", zap.String("backend", "sqlite"))
	return nil
}

// MergeTopic inserts a topic if it does not exist
func (s *SQLiteStore) MergeTopic(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO topics (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name)
	if err != nil {
		return sqliteError("merge topic", err)
	}
	return nil
}

// MergeTopicRelation inserts a RELATED_TO row between two existing topics
func (s *SQLiteStore) MergeTopicRelation(ctx context.Context, source, target, description string) (bool, error) {
	return s.linkTx(ctx, "merge topic relation",
		[]existsCheck{{"topics", "name", source}, {"topics", "name", target}},
		`INSERT INTO related_to (source, target, relationship) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
		source, target, description)
}

// UpsertPaper inserts a paper or overwrites every attribute of an existing one
func (s *SQLiteStore) UpsertPaper(ctx context.Context, paper ResearchPaper) error {
	authors := paper.Authors
	if authors == nil {
		authors = []string{}
	}
	authorsJSON, err := json.Marshal(authors)
	if err != nil {
		return fmt.Errorf("failed to encode authors: %w", err)
	}

	var year sql.NullInt64
	if paper.PublicationYear != nil {
		year = sql.NullInt64{Int64: int64(*paper.PublicationYear), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO research_papers (id, title, authors, publication_year, source_file, abstract)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			authors = excluded.authors,
			publication_year = excluded.publication_year,
			source_file = excluded.source_file,
			abstract = excluded.abstract`,
		paper.ID, paper.Title, string(authorsJSON), year, paper.SourceFile, paper.Abstract)
	if err != nil {
		return sqliteError("upsert paper", err)
	}
	return nil
}

// UpsertKeypoint upserts the keypoint and its HAS_KEYPOINT row in one transaction
func (s *SQLiteStore) UpsertKeypoint(ctx context.Context, paperID string, keypoint Keypoint) (bool, error) {
	const op = "upsert keypoint"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, sqliteError(op, err)
	}
	defer tx.Rollback()

	ok, err := exists(ctx, tx, existsCheck{"research_papers", "id", paperID})
	if err != nil {
		return false, sqliteError(op, err)
	}
	if !ok {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO keypoints (id, text) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET text = excluded.text`,
		keypoint.ID, keypoint.Text); err != nil {
		return false, sqliteError(op, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO has_keypoint (keypoint_id, paper_id) VALUES (?, ?)
		ON CONFLICT(keypoint_id) DO NOTHING`,
		keypoint.ID, paperID); err != nil {
		return false, sqliteError(op, err)
	}

	if err := tx.Commit(); err != nil {
		return false, sqliteError(op, err)
	}
	return true, nil
}

// UpsertObservation inserts or updates an observation's text
func (s *SQLiteStore) UpsertObservation(ctx context.Context, observation Observation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO observations (id, text) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET text = excluded.text`,
		observation.ID, observation.Text)
	if err != nil {
		return sqliteError("upsert observation", err)
	}
	return nil
}

// LinkObservationTopic inserts an observation_topics row if both ends exist
func (s *SQLiteStore) LinkObservationTopic(ctx context.Context, observationID, topic string) (bool, error) {
	return s.linkTx(ctx, "link observation topic",
		[]existsCheck{{"observations", "id", observationID}, {"topics", "name", topic}},
		`INSERT INTO observation_topics (observation_id, topic) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		observationID, topic)
}

// LinkKeypointTopic inserts a keypoint_topics row if both ends exist
func (s *SQLiteStore) LinkKeypointTopic(ctx context.Context, keypointID, topic string) (bool, error) {
	return s.linkTx(ctx, "link keypoint topic",
		[]existsCheck{{"keypoints", "id", keypointID}, {"topics", "name", topic}},
		`INSERT INTO keypoint_topics (keypoint_id, topic) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		keypointID, topic)
}

// ListKeypoints returns all keypoints ordered by id
func (s *SQLiteStore) ListKeypoints(ctx context.Context) ([]Keypoint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, text FROM keypoints ORDER BY id`)
	if err != nil {
		return nil, sqliteError("list keypoints", err)
	}
	defer rows.Close()

	var keypoints []Keypoint
	for rows.Next() {
		var kp Keypoint
		if err := rows.Scan(&kp.ID, &kp.Text); err != nil {
			return nil, sqliteError("list keypoints", err)
		}
		keypoints = append(keypoints, kp)
	}
	if err := rows.Err(); err != nil {
		return nil, sqliteError("list keypoints", err)
	}
	return keypoints, nil
}

// Counts returns aggregate row counts per entity and edge table
func (s *SQLiteStore) Counts(ctx context.Context) (*Counts, error) {
	counts := &Counts{}
	scalars := []struct {
		dst   *int64
		query string
	}{
		{&counts.Papers, `SELECT COUNT(*) FROM research_papers`},
		{&counts.Keypoints, `SELECT COUNT(DISTINCT k.id) FROM keypoints k JOIN has_keypoint h ON h.keypoint_id = k.id`},
		{&counts.TotalKeypoints, `SELECT COUNT(*) FROM keypoints`},
		{&counts.Observations, `SELECT COUNT(*) FROM observations`},
		{&counts.Topics, `SELECT COUNT(*) FROM topics`},
		{&counts.TopicRelations, `SELECT COUNT(*) FROM related_to`},
		{&counts.HasKeypointEdges, `SELECT COUNT(*) FROM has_keypoint`},
		{&counts.ObservationTopicEdges, `SELECT COUNT(*) FROM observation_topics`},
		{&counts.KeypointTopicEdges, `SELECT COUNT(*) FROM keypoint_topics`},
		{&counts.ClassifiedKeypoints, `SELECT COUNT(DISTINCT keypoint_id) FROM keypoint_topics`},
	}
	for _, sc := range scalars {
		if err := s.db.QueryRowContext(ctx, sc.query).Scan(sc.dst); err != nil {
			return nil, sqliteError("count", err)
		}
	}
	return counts, nil
}

// KeypointTopicCounts returns keypoints per topic, largest first, ties by name
func (s *SQLiteStore) KeypointTopicCounts(ctx context.Context) ([]TopicCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT topic, COUNT(*) AS keypoints
		FROM keypoint_topics
		GROUP BY topic
		ORDER BY keypoints DESC, topic ASC`)
	if err != nil {
		return nil, sqliteError("keypoint topic counts", err)
	}
	defer rows.Close()

	var counts []TopicCount
	for rows.Next() {
		var tc TopicCount
		if err := rows.Scan(&tc.Topic, &tc.Keypoints); err != nil {
			return nil, sqliteError("keypoint topic counts", err)
		}
		counts = append(counts, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, sqliteError("keypoint topic counts", err)
	}
	return counts, nil
}

// RelatedTopics returns the related_to rows touching topic, ordered by endpoints
func (s *SQLiteStore) RelatedTopics(ctx context.Context, topic string) ([]TopicRelation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, target, relationship
		FROM related_to
		WHERE source = ? OR target = ?
		ORDER BY source, target`, topic, topic)
	if err != nil {
		return nil, sqliteError("related topics", err)
	}
	defer rows.Close()

	relations := []TopicRelation{}
	for rows.Next() {
		var rel TopicRelation
		if err := rows.Scan(&rel.Source, &rel.Target, &rel.Relationship); err != nil {
			return nil, sqliteError("related topics", err)
		}
		relations = append(relations, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, sqliteError("related topics", err)
	}
	return relations, nil
}

// Paper reads a paper back by id, decoding the authors column. Tests use it to
// check what ingestion stored; it is not part of Store.
func (s *SQLiteStore) Paper(ctx context.Context, id string) (*ResearchPaper, error) {
	var (
		paper   ResearchPaper
		authors string
		year    sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, authors, publication_year, source_file, abstract
		FROM research_papers WHERE id = ?`, id).
		Scan(&paper.ID, &paper.Title, &authors, &year, &paper.SourceFile, &paper.Abstract)
	if err != nil {
		return nil, sqliteError("get paper", err)
	}
	if err := json.Unmarshal([]byte(authors), &paper.Authors); err != nil {
		return nil, fmt.Errorf("failed to decode authors: %w", err)
	}
	if year.Valid {
		y := int(year.Int64)
		paper.PublicationYear = &y
	}
	return &paper, nil
}

type existsCheck struct {
	table  string
	column string
	value  string
}

func exists(ctx context.Context, tx *sql.Tx, c existsCheck) (bool, error) {
	var found int
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ?)`, c.table, c.column)
	if err := tx.QueryRowContext(ctx, query, c.value).Scan(&found); err != nil {
		return false, err
	}
	return found == 1, nil
}

// linkTx inserts an edge row only when every endpoint check passes
func (s *SQLiteStore) linkTx(ctx context.Context, op string, checks []existsCheck, insert string, args ...interface{}) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, sqliteError(op, err)
	}
	defer tx.Rollback()

	for _, c := range checks {
		ok, err := exists(ctx, tx, c)
		if err != nil {
			return false, sqliteError(op, err)
		}
		if !ok {
			return false, nil
		}
	}

	if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
		return false, sqliteError(op, err)
	}
	if err := tx.Commit(); err != nil {
		return false, sqliteError(op, err)
	}
	return true, nil
}

func sqliteError(op string, err error) error {
	retryable := false
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			retryable = true
		}
	}
	return apperrors.NewGraphQueryFailed(op, retryable, fmt.Errorf("failed to %s: %w", op, err))
}
