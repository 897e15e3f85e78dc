package filtering

import (
	"context"
	"strings"

	"github.com/spigell/music-dna/internal/buddy"
)

type cityFilter struct {
	city string
}

// NewCity creates a filter that keeps only profiles from exactly the given city.
// An empty city keeps everything.
func NewCity(city string) Filter {
	return &cityFilter{city: strings.TrimSpace(city)}
}

func (f *cityFilter) Name() string { return "city" }

func (f *cityFilter) Disable(string) {}

func (f *cityFilter) IsEnabled() bool { return true }

func (f *cityFilter) Validate() error { return nil }

func (f *cityFilter) Apply(_ context.Context, p *buddy.Profiles) (*buddy.Profiles, Step, error) {
	initial := p.Len()
	if f.city == "" {
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	excluded := p.Exclude(func(profile *buddy.Profile) bool {
		return profile.City != f.city
	})

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *cityFilter) Status() Status {
	details := map[string]string{}
	if f.city != "" {
		details["city"] = f.city
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
