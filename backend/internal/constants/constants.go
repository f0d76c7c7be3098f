package constants

// Node labels
const (
	LabelResearchPaper = "ResearchPaper"
	LabelKeypoint      = "Keypoint"
	LabelObservation   = "Observation"
	LabelTopic         = "Topic"
)

// Relationship types
const (
	RelHasKeypoint = "HAS_KEYPOINT"
	RelRelatedTo   = "RELATED_TO"
	RelRelatesTo   = "RELATES_TO"
)

// Classification constants
const (
	// DefaultTopK is how many topics each keypoint is linked to
	DefaultTopK = 2

	// TaxonomySize is the fixed number of topics in the taxonomy
	TaxonomySize = 7
)

// Batch step names, used in reports and logs
const (
	StepSchema       = "schema"
	StepTaxonomy     = "taxonomy"
	StepDocuments    = "documents"
	StepObservations = "observations"
	StepClassify     = "classify"
)
