package ai

import (
	"context"

	"github.com/spigell/music-dna/internal/persona"
)

const (
	SourceStatic = "static"
	SourceGemini = "gemini"
)

// Recommendation is a song suggested for a persona.
type Recommendation struct {
	Title  string `yaml:"title" json:"title"`
	Artist string `yaml:"artist" json:"artist"`
	Genre  string `yaml:"genre" json:"genre"`
	Reason string `yaml:"reason" json:"reason"`
}

// Insights is the narrative content shown next to a quiz result.
type Insights struct {
	PersonaID       int              `yaml:"id" json:"persona_id"`
	Description     string           `yaml:"description" json:"description"`
	Recommendations []Recommendation `yaml:"recommendations" json:"recommendations"`
	FunFacts        []string         `yaml:"fun_facts" json:"fun_facts"`
	Source          string           `yaml:"-" json:"source"`
}

// Provider produces insights for a persona.
type Provider interface {
	Insights(ctx context.Context, p persona.Persona) (*Insights, error)
}
