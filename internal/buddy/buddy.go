package buddy

import (
	"time"
)

// Retention is how long a saved profile stays discoverable.
const Retention = 90 * 24 * time.Hour

// Profile is a saved music buddy persona. AccessToken is a bearer capability:
// whoever holds it can manage the profile.
type Profile struct {
	ID                   string    `json:"id"`
	PersonaID            int       `json:"persona_id"`
	PersonaName          string    `json:"persona_name"`
	Traits               []string  `json:"traits"`
	VibeTags             []string  `json:"vibe_tags"`
	Nickname             string    `json:"nickname"`
	City                 string    `json:"city,omitempty"`
	Email                string    `json:"email,omitempty"`
	LinkedInURL          string    `json:"linkedin_url,omitempty"`
	IsDiscoverable       bool      `json:"is_discoverable"`
	ShowContactsPublicly bool      `json:"show_contacts_publicly"`
	AccessToken          string    `json:"access_token,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	ExpiresAt            time.Time `json:"expires_at"`
}

// Expired reports whether the profile retention window has passed at now.
func (p *Profile) Expired(now time.Time) bool {
	return !p.ExpiresAt.After(now)
}

// Public returns a copy without the access token and contact fields.
func (p *Profile) Public() *Profile {
	public := *p
	public.AccessToken = ""
	public.Email = ""
	public.LinkedInURL = ""
	public.Traits = append([]string(nil), p.Traits...)
	public.VibeTags = append([]string(nil), p.VibeTags...)
	return &public
}

// Contact is the contact information a profile owner may choose to share.
type Contact struct {
	Email       string `json:"email,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
}

// Profiles is an ordered candidate pool.
type Profiles struct {
	Items []*Profile
}

func (p *Profiles) Len() int {
	return len(p.Items)
}

func (p *Profiles) FindByID(id string) *Profile {
	for _, profile := range p.Items {
		if profile.ID == id {
			return profile
		}
	}
	return nil
}

func (p *Profiles) IDs() []string {
	ids := make([]string, 0, len(p.Items))
	for _, profile := range p.Items {
		ids = append(ids, profile.ID)
	}
	return ids
}

// Exclude removes every profile the predicate matches, preserving the order of
// the rest, and returns the ids of the removed profiles.
func (p *Profiles) Exclude(match func(*Profile) bool) []string {
	var excluded []string
	kept := p.Items[:0]
	for _, profile := range p.Items {
		if match(profile) {
			excluded = append(excluded, profile.ID)
			continue
		}
		kept = append(kept, profile)
	}
	// Drop references held by the tail of the backing array.
	for i := len(kept); i < len(p.Items); i++ {
		p.Items[i] = nil
	}
	p.Items = kept
	return excluded
}
