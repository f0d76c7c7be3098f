// Package stats reports what the graph holds. It never writes.
package stats

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/graph"
)

// Report is a point-in-time summary of the graph
type Report struct {
	graph.Counts
	PerTopic []graph.TopicCount `json:"per_topic"`
}

// Reporter reads counts from a store
type Reporter struct {
	store graph.Store
}

// NewReporter creates a reporter over store
func NewReporter(store graph.Store) *Reporter {
	return &Reporter{store: store}
}

// Collect gathers entity and edge counts plus classified keypoints per topic
func (r *Reporter) Collect(ctx context.Context) (*Report, error) {
	counts, err := r.store.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count graph: %w", err)
	}
	perTopic, err := r.store.KeypointTopicCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count keypoints per topic: %w", err)
	}
	if perTopic == nil {
		perTopic = []graph.TopicCount{}
	}
	return &Report{Counts: *counts, PerTopic: perTopic}, nil
}

// Write renders the console summary
func (r *Report) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := []struct {
		name  string
		value int64
	}{
		{"Research papers", r.Papers},
		{"Keypoints", r.Keypoints},
		{"Observations", r.Observations},
		{"Topics", r.Topics},
		{"Topic relations", r.TopicRelations},
		{"Classified keypoints", r.ClassifiedKeypoints},
		{"Keypoint topic links", r.KeypointTopicEdges},
	}

	fmt.Fprintln(tw, "Graph statistics")
	for _, row := range rows {
		fmt.Fprintf(tw, "  %s:\t%d\n", row.name, row.value)
	}
	if orphans := r.TotalKeypoints - r.Keypoints; orphans > 0 {
		fmt.Fprintf(tw, "  Keypoints without paper:\t%d\n", orphans)
	}

	if len(r.PerTopic) > 0 {
		fmt.Fprintln(tw, "Keypoints per topic")
		for _, tc := range r.PerTopic {
			fmt.Fprintf(tw, "  %s:\t%d\n", tc.Topic, tc.Keypoints)
		}
	}
	return tw.Flush()
}
