package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/constants"
	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/logger"

	apperrors "github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/errors"
)

// uniqueKeys are the business keys MERGE matches on, one per node label
var uniqueKeys = []struct {
	name  string
	label string
	key   string
}{
	{"research_paper_id", constants.LabelResearchPaper, "id"},
	{"keypoint_id", constants.LabelKeypoint, "id"},
	{"observation_id", constants.LabelObservation, "id"},
	{"topic_name", constants.LabelTopic, "name"},
}

// constraintQueries declare one uniqueness constraint per keyed label
func constraintQueries() []string {
	queries := make([]string, len(uniqueKeys))
	for i, u := range uniqueKeys {
		queries[i] = fmt.Sprintf("CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE",
			u.name, u.label, u.key)
	}
	return queries
}

// Repository handles all Neo4j database operations
type Repository struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

var _ Store = (*Repository)(nil)

// NewRepository creates a new graph repository. An empty database uses the server default.
func NewRepository(driver neo4j.DriverWithContext, database string) *Repository {
	return &Repository{
		driver:   driver,
		database: database,
		logger:   logger.Get(),
	}
}

// Close closes the Neo4j driver connection
func (r *Repository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

func (r *Repository) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: r.database})
}

// single runs a query expected to return exactly one record
func (r *Repository) single(ctx context.Context, mode neo4j.AccessMode, op, query string, params map[string]interface{}) (*neo4j.Record, error) {
	session := r.session(ctx, mode)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, queryError(op, err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return nil, queryError(op, err)
	}
	return record, nil
}

// exec runs a query and discards its result
func (r *Repository) exec(ctx context.Context, op, query string, params map[string]interface{}) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return queryError(op, err)
	}
	if _, err := result.Consume(ctx); err != nil {
		return queryError(op, err)
	}
	return nil
}

// EnsureConstraints creates the uniqueness constraints if they are absent
func (r *Repository) EnsureConstraints(ctx context.Context) error {
	for _, query := range constraintQueries() {
		if err := r.exec(ctx, "create constraint", query, nil); err != nil {
			return err
		}
	}
	r.logger.Info("Constraints ensured", zap.Int("count", len(constraintQueries())))
	return nil
}

// MergeTopic creates a topic node if it does not exist
func (r *Repository) MergeTopic(ctx context.Context, name string) error {
	return r.exec(ctx, "merge topic", `MERGE (t:Topic {name: $name})`, map[string]interface{}{
		"name": name,
	})
}

// MergeTopicRelation merges a RELATED_TO edge between two existing topics
func (r *Repository) MergeTopicRelation(ctx context.Context, source, target, description string) (bool, error) {
	query := `
		MATCH (t1:Topic {name: $source})
		MATCH (t2:Topic {name: $target})
		MERGE (t1)-[:RELATED_TO {relationship: $relationship}]->(t2)
		RETURN count(*) as linked
	`
	return r.link(ctx, "merge topic relation", query, map[string]interface{}{
		"source":       source,
		"target":       target,
		"relationship": description,
	})
}

// UpsertPaper creates or overwrites a research paper by id
func (r *Repository) UpsertPaper(ctx context.Context, paper ResearchPaper) error {
	query := `
		MERGE (p:ResearchPaper {id: $id})
		SET p.title = $title,
		    p.authors = $authors,
		    p.publicationYear = $year,
		    p.sourceFile = $sourceFile,
		    p.abstract = $abstract
	`

	var year interface{}
	if paper.PublicationYear != nil {
		year = int64(*paper.PublicationYear)
	}
	authors := paper.Authors
	if authors == nil {
		authors = []string{}
	}

	err := r.exec(ctx, "upsert paper", query, map[string]interface{}{
		"id":         paper.ID,
		"title":      paper.Title,
		"authors":    authors,
		"year":       year,
		"sourceFile": paper.SourceFile,
		"abstract":   paper.Abstract,
	})
	if err != nil {
		return err
	}

	r.logger.Debug("Paper upserted", zap.String("paper_id", paper.ID))
	return nil
}

// UpsertKeypoint creates or updates a keypoint and links it to its paper
func (r *Repository) UpsertKeypoint(ctx context.Context, paperID string, keypoint Keypoint) (bool, error) {
	query := `
		MATCH (p:ResearchPaper {id: $paperID})
		MERGE (k:Keypoint {id: $id})
		SET k.text = $text
		MERGE (p)-[:HAS_KEYPOINT]->(k)
		RETURN count(k) as linked
	`
	return r.link(ctx, "upsert keypoint", query, map[string]interface{}{
		"paperID": paperID,
		"id":      keypoint.ID,
		"text":    keypoint.Text,
	})
}

// UpsertObservation creates or updates an observation by id
func (r *Repository) UpsertObservation(ctx context.Context, observation Observation) error {
	query := `
		MERGE (o:Observation {id: $id})
		SET o.text = $text
	`
	return r.exec(ctx, "upsert observation", query, map[string]interface{}{
		"id":   observation.ID,
		"text": observation.Text,
	})
}

// LinkObservationTopic merges a RELATES_TO edge from an observation to a topic
func (r *Repository) LinkObservationTopic(ctx context.Context, observationID, topic string) (bool, error) {
	query := `
		MATCH (o:Observation {id: $id})
		MATCH (t:Topic {name: $topic})
		MERGE (o)-[:RELATES_TO]->(t)
		RETURN count(*) as linked
	`
	return r.link(ctx, "link observation topic", query, map[string]interface{}{
		"id":    observationID,
		"topic": topic,
	})
}

// LinkKeypointTopic merges a RELATES_TO edge from a keypoint to a topic
func (r *Repository) LinkKeypointTopic(ctx context.Context, keypointID, topic string) (bool, error) {
	query := `
		MATCH (k:Keypoint {id: $id})
		MATCH (t:Topic {name: $topic})
		MERGE (k)-[:RELATES_TO]->(t)
		RETURN count(*) as linked
	`
	return r.link(ctx, "link keypoint topic", query, map[string]interface{}{
		"id":    keypointID,
		"topic": topic,
	})
}

func (r *Repository) link(ctx context.Context, op, query string, params map[string]interface{}) (bool, error) {
	record, err := r.single(ctx, neo4j.AccessModeWrite, op, query, params)
	if err != nil {
		return false, err
	}
	return getInt64FromRecord(record, "linked") > 0, nil
}

// ListKeypoints fetches all keypoints ordered by id
func (r *Repository) ListKeypoints(ctx context.Context) ([]Keypoint, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	query := `
		MATCH (k:Keypoint)
		RETURN k.id as id, k.text as text
		ORDER BY k.id
	`

	result, err := session.Run(ctx, query, nil)
	if err != nil {
		return nil, queryError("list keypoints", err)
	}

	var keypoints []Keypoint
	for result.Next(ctx) {
		record := result.Record()
		keypoints = append(keypoints, Keypoint{
			ID:   getStringFromRecord(record, "id"),
			Text: getStringFromRecord(record, "text"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, queryError("list keypoints", err)
	}

	return keypoints, nil
}

// Counts returns aggregate node and edge counts
func (r *Repository) Counts(ctx context.Context) (*Counts, error) {
	record, err := r.single(ctx, neo4j.AccessModeRead, "count papers", `
		MATCH (p:ResearchPaper)
		OPTIONAL MATCH (p)-[:HAS_KEYPOINT]->(k:Keypoint)
		RETURN count(DISTINCT p) as papers, count(DISTINCT k) as keypoints
	`, nil)
	if err != nil {
		return nil, err
	}

	counts := &Counts{
		Papers:    getInt64FromRecord(record, "papers"),
		Keypoints: getInt64FromRecord(record, "keypoints"),
	}

	scalars := []struct {
		dst   *int64
		query string
	}{
		{&counts.TotalKeypoints, "MATCH (k:Keypoint) RETURN count(k) as n"},
		{&counts.Observations, "MATCH (o:Observation) RETURN count(o) as n"},
		{&counts.Topics, "MATCH (t:Topic) RETURN count(t) as n"},
		{&counts.TopicRelations, "MATCH (:Topic)-[r:RELATED_TO]->(:Topic) RETURN count(r) as n"},
		{&counts.HasKeypointEdges, "MATCH (:ResearchPaper)-[r:HAS_KEYPOINT]->(:Keypoint) RETURN count(r) as n"},
		{&counts.ObservationTopicEdges, "MATCH (:Observation)-[r:RELATES_TO]->(:Topic) RETURN count(r) as n"},
		{&counts.KeypointTopicEdges, "MATCH (:Keypoint)-[r:RELATES_TO]->(:Topic) RETURN count(r) as n"},
		{&counts.ClassifiedKeypoints, "MATCH (k:Keypoint)-[:RELATES_TO]->(:Topic) RETURN count(DISTINCT k) as n"},
	}
	for _, s := range scalars {
		record, err := r.single(ctx, neo4j.AccessModeRead, "count", s.query, nil)
		if err != nil {
			return nil, err
		}
		*s.dst = getInt64FromRecord(record, "n")
	}

	return counts, nil
}

// KeypointTopicCounts returns how many keypoints relate to each topic
func (r *Repository) KeypointTopicCounts(ctx context.Context) ([]TopicCount, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	query := `
		MATCH (k:Keypoint)-[:RELATES_TO]->(t:Topic)
		RETURN t.name as topic, count(k) as keypoints
		ORDER BY keypoints DESC, topic ASC
	`

	result, err := session.Run(ctx, query, nil)
	if err != nil {
		return nil, queryError("keypoint topic counts", err)
	}

	var counts []TopicCount
	for result.Next(ctx) {
		record := result.Record()
		counts = append(counts, TopicCount{
			Topic:     getStringFromRecord(record, "topic"),
			Keypoints: getInt64FromRecord(record, "keypoints"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, queryError("keypoint topic counts", err)
	}

	return counts, nil
}

func queryError(op string, err error) error {
	return apperrors.NewGraphQueryFailed(op, neo4j.IsRetryable(err), fmt.Errorf("failed to %s: %w", op, err))
}
