package filtering

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spigell/music-dna/internal/buddy"
)

type personaTypeFilter struct {
	personaID *int
}

// NewPersonaType creates a filter that keeps only profiles of the given persona type.
// A nil id keeps everything.
func NewPersonaType(personaID *int) Filter {
	return &personaTypeFilter{personaID: personaID}
}

func (f *personaTypeFilter) Name() string { return "persona_type" }

func (f *personaTypeFilter) Disable(string) {}

func (f *personaTypeFilter) IsEnabled() bool { return true }

func (f *personaTypeFilter) Validate() error {
	if f.personaID != nil && *f.personaID < 0 {
		return fmt.Errorf("persona id must not be negative: %d", *f.personaID)
	}
	return nil
}

func (f *personaTypeFilter) Apply(_ context.Context, p *buddy.Profiles) (*buddy.Profiles, Step, error) {
	initial := p.Len()
	if f.personaID == nil {
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	want := *f.personaID
	excluded := p.Exclude(func(profile *buddy.Profile) bool {
		return profile.PersonaID != want
	})

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *personaTypeFilter) Status() Status {
	details := map[string]string{}
	if f.personaID != nil {
		details["persona_id"] = strconv.Itoa(*f.personaID)
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
