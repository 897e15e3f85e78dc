package buddy

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spigell/music-dna/internal/persona"
)

func TestExtractVibeTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		traits []string
		expect []string
	}{
		{
			name:   "lower-cases traits in order",
			traits: []string{"Traditional", "Authentic", "Skeptical of AI", "Radio-focused"},
			expect: []string{"traditional", "authentic", "skeptical of ai", "radio-focused"},
		},
		{
			name:   "deduplicates after lower-casing",
			traits: []string{"Jazz", "jazz", " JAZZ ", "Chill"},
			expect: []string{"jazz", "chill"},
		},
		{
			name:   "caps at five",
			traits: []string{"a", "b", "c", "d", "e", "f", "g"},
			expect: []string{"a", "b", "c", "d", "e"},
		},
		{
			name:   "skips empty traits",
			traits: []string{"", "  ", "x"},
			expect: []string{"x"},
		},
		{
			name:   "no traits",
			traits: nil,
			expect: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ExtractVibeTags(persona.Persona{Traits: tt.traits})
			if !reflect.DeepEqual(got, tt.expect) {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestExtractVibeTagsIgnoresCharacteristics(t *testing.T) {
	p := persona.Persona{
		Characteristics: map[persona.Category]persona.Characteristic{
			persona.CategoryMusicPreference: {TopResponse: "Country", Distribution: map[string]int{"Country": 3}},
		},
	}

	if got := ExtractVibeTags(p); len(got) != 0 {
		t.Fatalf("expected characteristics to be ignored, got %v", got)
	}
}

func TestProfilePublic(t *testing.T) {
	p := &Profile{
		ID:          "1",
		Email:       "a@example.com",
		LinkedInURL: "https://linkedin.com/in/a",
		AccessToken: "bt_secret",
		VibeTags:    []string{"jazz"},
	}

	public := p.Public()
	if public.AccessToken != "" || public.Email != "" || public.LinkedInURL != "" {
		t.Fatalf("public view leaked private fields: %+v", public)
	}

	public.VibeTags[0] = "rock"
	if p.VibeTags[0] != "jazz" {
		t.Fatalf("public view must not share tag slice")
	}
}

func TestProfileExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := &Profile{ExpiresAt: now.Add(time.Hour)}

	if p.Expired(now) {
		t.Fatalf("did not expect profile to be expired")
	}
	if !p.Expired(now.Add(time.Hour)) {
		t.Fatalf("expected profile to be expired at expiry time")
	}
}

func TestProfilesExclude(t *testing.T) {
	profiles := &Profiles{Items: []*Profile{{ID: "a"}, {ID: "b", City: "x"}, {ID: "c"}, {ID: "d", City: "x"}}}

	excluded := profiles.Exclude(func(p *Profile) bool { return p.City == "x" })

	if !reflect.DeepEqual(excluded, []string{"b", "d"}) {
		t.Fatalf("unexpected excluded ids: %v", excluded)
	}
	if !reflect.DeepEqual(profiles.IDs(), []string{"a", "c"}) {
		t.Fatalf("expected order to be preserved, got %v", profiles.IDs())
	}
	if profiles.FindByID("c") == nil || profiles.FindByID("b") != nil {
		t.Fatalf("unexpected FindByID results")
	}
}

func TestNewAccessToken(t *testing.T) {
	now := time.UnixMilli(1700000000000)

	first := NewAccessToken(now)
	second := NewAccessToken(now)

	if first == second {
		t.Fatalf("expected unique tokens")
	}
	if !strings.HasPrefix(first, "bt_1700000000000_") {
		t.Fatalf("unexpected token shape: %s", first)
	}
	if !LooksLikeAccessToken(first) {
		t.Fatalf("expected generated token to pass shape check")
	}
	if LooksLikeAccessToken("bt_") || LooksLikeAccessToken("nope") {
		t.Fatalf("expected malformed tokens to fail shape check")
	}
}
