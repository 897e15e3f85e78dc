package buddy

import (
	"strings"

	"github.com/spigell/music-dna/internal/persona"
)

const maxVibeTags = 5

// ExtractVibeTags derives the vibe tags of a new profile: up to five unique
// lower-cased traits of the persona, in trait order. Characteristics are not
// used as tags.
func ExtractVibeTags(p persona.Persona) []string {
	tags := make([]string, 0, maxVibeTags)
	seen := make(map[string]bool, len(p.Traits))

	for _, trait := range p.Traits {
		tag := strings.ToLower(strings.TrimSpace(trait))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
		if len(tags) == maxVibeTags {
			break
		}
	}

	return tags
}
