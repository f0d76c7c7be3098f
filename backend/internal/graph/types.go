package graph

// ResearchPaper is a paper extracted from one source document
type ResearchPaper struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	PublicationYear *int     `json:"publication_year"`
	SourceFile      string   `json:"source_file"`
	Abstract        string   `json:"abstract"`
}

// Keypoint is a single finding owned by a ResearchPaper
type Keypoint struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Observation is a curated personal note
type Observation struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// TopicCount is the number of keypoints classified under one topic
type TopicCount struct {
	Topic     string `json:"topic"`
	Keypoints int64  `json:"keypoints"`
}

// Counts holds the aggregate node and edge counts of the graph
type Counts struct {
	Papers                int64 `json:"papers"`
	Keypoints             int64 `json:"keypoints"` // owned through HAS_KEYPOINT
	TotalKeypoints        int64 `json:"total_keypoints"`
	Observations          int64 `json:"observations"`
	Topics                int64 `json:"topics"`
	TopicRelations        int64 `json:"topic_relations"`
	HasKeypointEdges      int64 `json:"has_keypoint_edges"`
	ObservationTopicEdges int64 `json:"observation_topic_edges"`
	KeypointTopicEdges    int64 `json:"keypoint_topic_edges"`
	ClassifiedKeypoints   int64 `json:"classified_keypoints"`
}
