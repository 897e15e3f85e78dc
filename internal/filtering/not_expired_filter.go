package filtering

import (
	"context"
	"fmt"
	"time"

	"github.com/spigell/music-dna/internal/buddy"
)

type notExpiredFilter struct {
	now func() time.Time
}

// NewNotExpired creates a filter that removes profiles past their retention window.
func NewNotExpired(now func() time.Time) Filter {
	return &notExpiredFilter{now: now}
}

func (f *notExpiredFilter) Name() string { return "not_expired" }

func (f *notExpiredFilter) Disable(string) {}

func (f *notExpiredFilter) IsEnabled() bool { return true }

func (f *notExpiredFilter) Validate() error {
	if f.now == nil {
		return fmt.Errorf("clock is required")
	}
	return nil
}

func (f *notExpiredFilter) Apply(_ context.Context, p *buddy.Profiles) (*buddy.Profiles, Step, error) {
	initial := p.Len()
	now := f.now()
	excluded := p.Exclude(func(profile *buddy.Profile) bool {
		return profile.Expired(now)
	})

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}
