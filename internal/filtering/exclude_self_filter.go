package filtering

import (
	"context"
	"strings"

	"github.com/spigell/music-dna/internal/buddy"
)

const noTokenMsg = "no access token supplied"

type excludeSelfFilter struct {
	token   string
	enabled bool
	reason  string
}

// NewExcludeSelf creates a filter that removes the profile owned by the given access token.
// Without a token the filter is disabled.
func NewExcludeSelf(token string) Filter {
	token = strings.TrimSpace(token)
	f := &excludeSelfFilter{token: token, enabled: true}
	if token == "" {
		f.Disable(noTokenMsg)
	}
	return f
}

func (f *excludeSelfFilter) Name() string { return "exclude_self" }

func (f *excludeSelfFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *excludeSelfFilter) IsEnabled() bool { return f.enabled }

func (f *excludeSelfFilter) Validate() error { return nil }

func (f *excludeSelfFilter) Apply(_ context.Context, p *buddy.Profiles) (*buddy.Profiles, Step, error) {
	initial := p.Len()
	excluded := p.Exclude(func(profile *buddy.Profile) bool {
		return profile.AccessToken == f.token
	})

	return p, Step{Initial: initial, Dropped: len(excluded), Left: p.Len()}, nil
}

func (f *excludeSelfFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.enabled, Reason: f.reason}
}
