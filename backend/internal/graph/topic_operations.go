package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// TopicRelation is one RELATED_TO edge between two topics
type TopicRelation struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	Relationship string `json:"relationship"`
}

// RelatedTopics returns the RELATED_TO edges touching a topic in either direction
func (r *Repository) RelatedTopics(ctx context.Context, topic string) ([]TopicRelation, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	query := `
		MATCH (s:Topic)-[rel:RELATED_TO]->(t:Topic)
		WHERE s.name = $topic OR t.name = $topic
		RETURN s.name as source, t.name as target, rel.relationship as relationship
		ORDER BY source, target
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"topic": topic,
	})
	if err != nil {
		return nil, queryError("related topics", err)
	}

	relations := []TopicRelation{}
	for result.Next(ctx) {
		record := result.Record()
		relations = append(relations, TopicRelation{
			Source:       getStringFromRecord(record, "source"),
			Target:       getStringFromRecord(record, "target"),
			Relationship: getStringFromRecord(record, "relationship"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, queryError("related topics", err)
	}
	return relations, nil
}
