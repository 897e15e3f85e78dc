package persona

import "errors"

var ErrUnknownPersona = errors.New("unknown persona")

// Category is a quiz dimension a persona is characterised by.
type Category string

const (
	CategoryDiscoveryMethod   Category = "discovery_method"
	CategoryAIAttitude        Category = "ai_attitude"
	CategoryMusicRelationship Category = "music_relationship"
	CategoryAgeGroup          Category = "age_group"
	CategoryMusicPreference   Category = "music_preference"
	// CategoryListeningHabits is asked in the quiz but no persona is characterised by it.
	CategoryListeningHabits Category = "listening_habits"
)

// Characteristic is the survey answer profile of a persona for one category.
type Characteristic struct {
	TopResponse  string         `yaml:"top_response" json:"top_response"`
	Distribution map[string]int `yaml:"distribution" json:"distribution"`
}

// Has reports whether the response was given by at least one member of the persona.
func (c Characteristic) Has(response string) bool {
	return c.Distribution[response] > 0
}

type Persona struct {
	ID              int                         `yaml:"id" json:"id"`
	Name            string                      `yaml:"name" json:"name"`
	Description     string                      `yaml:"description" json:"description"`
	Traits          []string                    `yaml:"traits" json:"traits"`
	Color           string                      `yaml:"color" json:"color"`
	Size            int                         `yaml:"size" json:"size"`
	Percentage      float64                     `yaml:"percentage" json:"percentage"`
	Characteristics map[Category]Characteristic `yaml:"characteristics" json:"characteristics"`
}

// Characteristic returns the persona profile for the category. Missing categories yield an empty profile.
func (p Persona) Characteristic(c Category) Characteristic {
	return p.Characteristics[c]
}

type Personas []Persona

func (p Personas) Len() int {
	return len(p)
}

func (p Personas) FindByID(id int) (Persona, bool) {
	for _, persona := range p {
		if persona.ID == id {
			return persona, true
		}
	}
	return Persona{}, false
}

func (p Personas) Names() []string {
	names := make([]string, 0, len(p))
	for _, persona := range p {
		names = append(names, persona.Name)
	}
	return names
}
