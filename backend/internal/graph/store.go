package graph

import "context"

// Store is the graph store boundary. Every write is a merge keyed by the entity's
// unique business key, so repeating any call leaves the graph unchanged.
//
// Edge merges report whether both endpoints matched. A false result means nothing
// was written; callers decide whether that is an error.
type Store interface {
	// EnsureConstraints declares the uniqueness constraints. Safe to call repeatedly.
	EnsureConstraints(ctx context.Context) error

	MergeTopic(ctx context.Context, name string) error
	MergeTopicRelation(ctx context.Context, source, target, description string) (bool, error)

	UpsertPaper(ctx context.Context, paper ResearchPaper) error
	// UpsertKeypoint upserts the keypoint and merges HAS_KEYPOINT from its paper.
	// Nothing is written when the paper does not exist.
	UpsertKeypoint(ctx context.Context, paperID string, keypoint Keypoint) (bool, error)
	UpsertObservation(ctx context.Context, observation Observation) error

	LinkObservationTopic(ctx context.Context, observationID, topic string) (bool, error)
	LinkKeypointTopic(ctx context.Context, keypointID, topic string) (bool, error)

	// ListKeypoints returns every keypoint ordered by id.
	ListKeypoints(ctx context.Context) ([]Keypoint, error)
	Counts(ctx context.Context) (*Counts, error)
	// KeypointTopicCounts returns classified keypoints per topic, largest first.
	KeypointTopicCounts(ctx context.Context) ([]TopicCount, error)
	// RelatedTopics returns the RELATED_TO edges that start or end at topic.
	RelatedTopics(ctx context.Context, topic string) ([]TopicRelation, error)

	Close(ctx context.Context) error
}
