// Package taxonomy holds the closed topic set, the curated topic relations and
// the curated observations that the ingestors write into the graph.
package taxonomy

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/internal/constants"
	apperrors "github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/errors"
)

//go:embed default.yaml
var defaultYAML []byte

// Relation is a directed RELATED_TO edge between two topics
type Relation struct {
	Source      string `yaml:"source" json:"source"`
	Target      string `yaml:"target" json:"target"`
	Description string `yaml:"description" json:"description"`
}

// ObservationSeed is a curated note with its statically assigned topics
type ObservationSeed struct {
	Text   string   `yaml:"text"`
	Topics []string `yaml:"topics"`
}

// Taxonomy is the configuration handed to the taxonomy and observation ingestors
type Taxonomy struct {
	Topics       []string          `yaml:"topics"`
	Relations    []Relation        `yaml:"relations"`
	Observations []ObservationSeed `yaml:"observations"`
}

// Default returns the built-in taxonomy. It panics only if the embedded file is broken.
func Default() *Taxonomy {
	t, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded taxonomy is invalid: %v", err))
	}
	return t
}

// Load reads a taxonomy from a YAML file, or returns Default when path is empty
func Load(path string) (*Taxonomy, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewBaseError(apperrors.ErrorTypeConfig, "failed to read taxonomy file "+path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a taxonomy document
func Parse(data []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, apperrors.NewBaseError(apperrors.ErrorTypeConfig, "failed to parse taxonomy", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate rejects a taxonomy that could write a topic outside the closed set
func (t *Taxonomy) Validate() error {
	if len(t.Topics) != constants.TaxonomySize {
		return apperrors.NewConfigValidationFailed("topics",
			fmt.Sprintf("expected %d topics, got %d", constants.TaxonomySize, len(t.Topics)))
	}

	seen := make(map[string]bool, len(t.Topics))
	for _, name := range t.Topics {
		if strings.TrimSpace(name) == "" {
			return apperrors.NewConfigValidationFailed("topics", "empty topic name")
		}
		if seen[name] {
			return apperrors.NewConfigValidationFailed("topics", "duplicate topic "+name)
		}
		seen[name] = true
	}

	for i, rel := range t.Relations {
		for _, name := range []string{rel.Source, rel.Target} {
			if !seen[name] {
				return apperrors.NewConfigValidationFailed(fmt.Sprintf("relations[%d]", i), "unknown topic "+name)
			}
		}
	}

	for i, obs := range t.Observations {
		if strings.TrimSpace(obs.Text) == "" {
			return apperrors.NewConfigValidationFailed(fmt.Sprintf("observations[%d]", i), "empty text")
		}
		for _, name := range obs.Topics {
			if !seen[name] {
				return apperrors.NewConfigValidationFailed(fmt.Sprintf("observations[%d]", i), "unknown topic "+name)
			}
		}
	}

	return nil
}

// Contains reports whether name is one of the taxonomy topics
func (t *Taxonomy) Contains(name string) bool {
	return t.Index(name) >= 0
}

// Index returns the position of name in the topic list, or -1
func (t *Taxonomy) Index(name string) int {
	for i, topic := range t.Topics {
		if topic == name {
			return i
		}
	}
	return -1
}
