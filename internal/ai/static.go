package ai

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/spigell/music-dna/internal/persona"
)

//go:embed static.yaml
var staticInsights []byte

// StaticProvider serves the curated insights bundled with the binary.
type StaticProvider struct {
	byID     map[int]Insights
	fallback int
}

func NewStatic() (*StaticProvider, error) {
	var doc struct {
		Personas []Insights `yaml:"personas"`
	}
	if err := yaml.Unmarshal(staticInsights, &doc); err != nil {
		return nil, fmt.Errorf("decode static insights: %w", err)
	}
	if len(doc.Personas) == 0 {
		return nil, fmt.Errorf("static insights are empty")
	}

	byID := make(map[int]Insights, len(doc.Personas))
	for _, in := range doc.Personas {
		byID[in.PersonaID] = in
	}

	return &StaticProvider{byID: byID, fallback: doc.Personas[0].PersonaID}, nil
}

// Insights returns the curated content for the persona, or the first entry for
// personas without curated content.
func (s *StaticProvider) Insights(_ context.Context, p persona.Persona) (*Insights, error) {
	in, ok := s.byID[p.ID]
	if !ok {
		in = s.byID[s.fallback]
	}

	out := in
	out.PersonaID = p.ID
	out.Recommendations = append([]Recommendation(nil), in.Recommendations...)
	out.FunFacts = append([]string(nil), in.FunFacts...)
	out.Source = SourceStatic
	return &out, nil
}
