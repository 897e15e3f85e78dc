package buddy

import (
	"math"
	"slices"
	"sort"
	"strings"
)

const (
	samePersonaWeight = 0.5
	sharedTagsWeight  = 0.3
	sameCityWeight    = 0.2

	DefaultMatchLimit = 10
)

// Match is a candidate ranked against the caller's own profile.
type Match struct {
	Profile    *Profile `json:"persona"`
	Similarity int      `json:"similarity"`
	SharedTags []string `json:"shared_tags"`
}

// SharedTags returns a's tags that also appear in b, in a's order.
func SharedTags(a, b *Profile) []string {
	shared := make([]string, 0, len(a.VibeTags))
	for _, tag := range a.VibeTags {
		if slices.Contains(b.VibeTags, tag) {
			shared = append(shared, tag)
		}
	}
	return shared
}

// Similarity returns the compatibility of b with a as a percentage in [0, 100].
//
// Same persona type is worth 50%, shared vibe tags up to 30% relative to the
// number of a's tags, and the same city (case-insensitive, both present) 20%.
// The score is not symmetric: only a's tag count is used as the denominator.
func Similarity(a, b *Profile) int {
	score := 0.0

	if a.PersonaID == b.PersonaID {
		score += samePersonaWeight
	}

	if len(a.VibeTags) > 0 {
		shared := len(SharedTags(a, b))
		score += (float64(shared) / float64(len(a.VibeTags))) * sharedTagsWeight
	}

	if a.City != "" && b.City != "" && strings.ToLower(a.City) == strings.ToLower(b.City) {
		score += sameCityWeight
	}

	return int(math.Round(score * 100))
}

// SuggestMatches scores every candidate against mine and returns the best ones,
// highest similarity first. Ties keep the pool order. A non-positive limit
// means DefaultMatchLimit.
func SuggestMatches(mine *Profile, pool []*Profile, limit int) []Match {
	if limit <= 0 {
		limit = DefaultMatchLimit
	}

	matches := make([]Match, 0, len(pool))
	for _, candidate := range pool {
		if candidate == nil {
			continue
		}
		matches = append(matches, Match{
			Profile:    candidate,
			Similarity: Similarity(mine, candidate),
			SharedTags: SharedTags(mine, candidate),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	return matches
}
