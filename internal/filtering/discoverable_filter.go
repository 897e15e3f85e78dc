package filtering

import (
	"context"

	"github.com/spigell/music-dna/internal/buddy"
)

type discoverableFilter struct{}

// NewDiscoverable creates a filter that removes profiles hidden by their owners.
func NewDiscoverable() Filter {
	return &discoverableFilter{}
}

func (f *discoverableFilter) Name() string { return "discoverable" }

func (f *discoverableFilter) Disable(string) {}

func (f *discoverableFilter) IsEnabled() bool { return true }

func (f *discoverableFilter) Validate() error { return nil }

func (f *discoverableFilter) Apply(_ context.Context, p *buddy.Profiles) (*buddy.Profiles, Step, error) {
	initial := p.Len()
	excluded := p.Exclude(func(profile *buddy.Profile) bool {
		return !profile.IsDiscoverable
	})

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}
