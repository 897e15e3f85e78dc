package persona

type weight struct {
	category Category
	top      int
	partial  int
}

// weights lists the scored categories. Listening habits are collected by the quiz but not scored.
var weights = []weight{
	{category: CategoryDiscoveryMethod, top: 3, partial: 1},
	{category: CategoryAIAttitude, top: 3, partial: 1},
	{category: CategoryMusicRelationship, top: 2, partial: 1},
	{category: CategoryAgeGroup, top: 2, partial: 1},
}

// Score returns how well the answers match the persona.
// An answer equal to the persona's top response earns the full weight of the
// category, an answer found elsewhere in its distribution earns one point.
func Score(answers QuizAnswers, p Persona) int {
	score := 0
	for _, w := range weights {
		answer := answers.Answer(w.category)
		if answer == "" {
			continue
		}
		characteristic := p.Characteristic(w.category)

		switch {
		case characteristic.TopResponse == answer:
			score += w.top
		case characteristic.Has(answer):
			score += w.partial
		}
	}
	return score
}

// ClassifyOK returns the best matching persona and its score.
// Personas are scanned in order and only a strictly greater score replaces the
// current best, so ties and all-zero scores resolve to the earliest persona.
// ok is false when personas is empty.
func ClassifyOK(answers QuizAnswers, personas []Persona) (best Persona, score int, ok bool) {
	if len(personas) == 0 {
		return Persona{}, 0, false
	}

	best = personas[0]
	for _, p := range personas {
		if s := Score(answers, p); s > score {
			score = s
			best = p
		}
	}

	return best, score, true
}

// Classify returns the best matching persona. It never fabricates a persona: the
// result is always an element of personas, or the zero Persona when the list is empty.
func Classify(answers QuizAnswers, personas []Persona) Persona {
	best, _, _ := ClassifyOK(answers, personas)
	return best
}
