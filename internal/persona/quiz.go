package persona

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// QuizAnswers holds one answer per quiz question.
type QuizAnswers struct {
	DiscoveryMethod   string `json:"discovery_method" mapstructure:"discovery_method"`
	AIAttitude        string `json:"ai_attitude" mapstructure:"ai_attitude"`
	MusicRelationship string `json:"music_relationship" mapstructure:"music_relationship"`
	AgeGroup          string `json:"age_group" mapstructure:"age_group"`
	ListeningHabits   string `json:"listening_habits" mapstructure:"listening_habits"`
}

// Answer returns the answer given for the category.
func (a QuizAnswers) Answer(c Category) string {
	switch c {
	case CategoryDiscoveryMethod:
		return a.DiscoveryMethod
	case CategoryAIAttitude:
		return a.AIAttitude
	case CategoryMusicRelationship:
		return a.MusicRelationship
	case CategoryAgeGroup:
		return a.AgeGroup
	case CategoryListeningHabits:
		return a.ListeningHabits
	default:
		return ""
	}
}

// Set stores the answer for the category. Unknown categories are ignored.
func (a *QuizAnswers) Set(c Category, answer string) {
	switch c {
	case CategoryDiscoveryMethod:
		a.DiscoveryMethod = answer
	case CategoryAIAttitude:
		a.AIAttitude = answer
	case CategoryMusicRelationship:
		a.MusicRelationship = answer
	case CategoryAgeGroup:
		a.AgeGroup = answer
	case CategoryListeningHabits:
		a.ListeningHabits = answer
	}
}

type Question struct {
	ID       Category `yaml:"id" json:"id"`
	Question string   `yaml:"question" json:"question"`
	Category string   `yaml:"category" json:"category"`
	Options  []string `yaml:"options" json:"options"`
}

func (q Question) HasOption(option string) bool {
	return slices.Contains(q.Options, option)
}

type Questions []Question

func (q Questions) Len() int {
	return len(q)
}

// ValidateAnswers reports every missing answer and every answer that is not one of
// the question's options.
func (q Questions) ValidateAnswers(answers QuizAnswers) error {
	var errs []error
	for _, question := range q {
		answer := answers.Answer(question.ID)
		if strings.TrimSpace(answer) == "" {
			errs = append(errs, fmt.Errorf("%s: answer is required", question.ID))
			continue
		}
		if !question.HasOption(answer) {
			errs = append(errs, fmt.Errorf("%s: %q is not one of the options", question.ID, answer))
		}
	}
	return errors.Join(errs...)
}
