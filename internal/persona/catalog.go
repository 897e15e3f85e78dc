package persona

import (
	_ "embed"
	"fmt"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Survey summarises the raw survey the personas were clustered from.
type Survey struct {
	TotalResponses    int                       `yaml:"total_responses" json:"total_responses"`
	Demographics      map[string]map[string]int `yaml:"demographics" json:"demographics"`
	MusicRelationship map[string]int            `yaml:"music_relationship" json:"music_relationship"`
	DiscoveryMethods  map[string]int            `yaml:"discovery_methods" json:"discovery_methods"`
	AIAttitudes       map[string]int            `yaml:"ai_attitudes" json:"ai_attitudes"`
	ListeningHabits   map[string]int            `yaml:"listening_habits" json:"listening_habits"`
	FormatEvolution   map[string]int            `yaml:"format_evolution" json:"format_evolution"`
}

// Catalog is the static content of the application: quiz, personas and survey.
// It is immutable once loaded.
type Catalog struct {
	Questions Questions `yaml:"questions" json:"questions"`
	Personas  Personas  `yaml:"personas" json:"personas"`
	Survey    Survey    `yaml:"survey" json:"survey"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	if err := catalog.Validate(); err != nil {
		return nil, err
	}

	return &catalog, nil
}

// Validate checks that every persona is characterised by the same non-empty set of
// categories with non-negative counts, and that ids are unique.
func (c *Catalog) Validate() error {
	if len(c.Personas) == 0 {
		return fmt.Errorf("catalog has no personas")
	}

	var keys []Category
	seen := make(map[int]bool, len(c.Personas))

	for _, p := range c.Personas {
		if seen[p.ID] {
			return fmt.Errorf("persona %d: duplicate id", p.ID)
		}
		seen[p.ID] = true

		if len(p.Characteristics) == 0 {
			return fmt.Errorf("persona %d: characteristics are empty", p.ID)
		}

		current := slices.Sorted(maps.Keys(p.Characteristics))
		if keys == nil {
			keys = current
		} else if !slices.Equal(keys, current) {
			return fmt.Errorf("persona %d: characteristics %v differ from %v", p.ID, current, keys)
		}

		for category, characteristic := range p.Characteristics {
			for response, count := range characteristic.Distribution {
				if count < 0 {
					return fmt.Errorf("persona %d: %s: negative count %d for %q", p.ID, category, count, response)
				}
			}
		}
	}

	for _, q := range c.Questions {
		if len(q.Options) == 0 {
			return fmt.Errorf("question %s has no options", q.ID)
		}
	}

	return nil
}

func (c *Catalog) Persona(id int) (Persona, error) {
	p, ok := c.Personas.FindByID(id)
	if !ok {
		return Persona{}, fmt.Errorf("%w: %d", ErrUnknownPersona, id)
	}
	return p, nil
}

// ValidateAnswers checks the answers against the catalog questions.
func (c *Catalog) ValidateAnswers(answers QuizAnswers) error {
	return c.Questions.ValidateAnswers(answers)
}

// Classify matches the answers against the catalog personas.
func (c *Catalog) Classify(answers QuizAnswers) (Persona, int, bool) {
	return ClassifyOK(answers, c.Personas)
}
