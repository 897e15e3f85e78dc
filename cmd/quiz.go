package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spigell/music-dna/internal/ai"
	"github.com/spigell/music-dna/internal/buddy"
	"github.com/spigell/music-dna/internal/matchmaker"
	"github.com/spigell/music-dna/internal/persona"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Take the music persona quiz in the terminal",
	Run: func(cmd *cobra.Command, _ []string) {
		quiz(cmd)
	},
}

func init() {
	rootCmd.AddCommand(quizCmd)

	quizCmd.Flags().StringToString("answer", nil, "preset answers as question_id=option, the rest is asked interactively")
	quizCmd.Flags().Bool("no-insights", false, "do not print persona insights")
	quizCmd.Flags().Bool("save", false, "save the result as a music buddy profile")
	quizCmd.Flags().String("nickname", "", "buddy profile nickname (required with --save)")
	quizCmd.Flags().String("city", "", "buddy profile city")
	quizCmd.Flags().String("email", "", "buddy profile contact email")
	quizCmd.Flags().String("linkedin", "", "buddy profile linkedin url")
	quizCmd.Flags().Bool("discoverable", true, "show the saved profile in the buddy browser")
	quizCmd.Flags().Bool("public-contacts", false, "let others reveal the contacts of the saved profile")
}

// asker returns the chosen option for a question.
type asker func(q persona.Question) (string, error)

func promptAnswer(q persona.Question) (string, error) {
	p := promptui.Select{
		Label: q.Question,
		Items: q.Options,
		Size:  len(q.Options),
	}

	_, selected, err := p.Run()
	return selected, err
}

func quiz(cmd *cobra.Command) {
	ctx := context.Background()

	d := newDeps()
	defer d.close()

	logger := d.logger
	out := cmd.OutOrStdout()

	preset, err := cmd.Flags().GetStringToString("answer")
	if err != nil {
		logger.Fatal("reading preset answers", zap.Error(err))
	}

	answers, err := collectAnswers(d.catalog.Questions, preset, promptAnswer)
	if err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}

	if err := d.catalog.ValidateAnswers(answers); err != nil {
		logger.Fatal("invalid answers", zap.Error(err))
	}

	best, score, ok := d.catalog.Classify(answers)
	if !ok {
		logger.Fatal("classifying answers", zap.String("reason", "catalog has no personas"))
	}
	d.metrics.Classified(best.Name)

	logger.Debug("quiz classified", zap.Int("persona_id", best.ID), zap.Int("score", score))

	printPersona(out, best, score)

	if noInsights, _ := cmd.Flags().GetBool("no-insights"); !noInsights {
		insights, err := newInsights(ctx, d.config.AI, logger.Named("ai"))
		if err != nil {
			logger.Warn("skipping insights", zap.Error(err))
		} else if result, err := insights.Insights(ctx, best); err != nil {
			logger.Warn("skipping insights", zap.Error(err))
		} else {
			printInsights(out, result)
		}
	}

	save, _ := cmd.Flags().GetBool("save")
	if !save {
		return
	}

	req, err := saveRequestFromFlags(cmd, best.ID)
	if err != nil {
		logger.Fatal("preparing buddy profile", zap.Error(err))
	}

	d.openStore()

	profile, err := d.buddies.Save(ctx, req)
	if err != nil {
		logger.Fatal("saving buddy profile", zap.Error(err))
	}

	printSaved(out, profile)
}

// collectAnswers fills every question from preset or, when missing, by asking.
// Preset keys must name a known question.
func collectAnswers(questions persona.Questions, preset map[string]string, ask asker) (persona.QuizAnswers, error) {
	var answers persona.QuizAnswers

	known := make(map[string]bool, len(questions))
	for _, q := range questions {
		known[string(q.ID)] = true
	}
	for id := range preset {
		if !known[id] {
			return answers, fmt.Errorf("unknown question id %q", id)
		}
	}

	for _, q := range questions {
		if answer, ok := preset[string(q.ID)]; ok {
			answers.Set(q.ID, strings.TrimSpace(answer))
			continue
		}

		answer, err := ask(q)
		if err != nil {
			return answers, fmt.Errorf("question %s: %w", q.ID, err)
		}
		answers.Set(q.ID, answer)
	}

	return answers, nil
}

func saveRequestFromFlags(cmd *cobra.Command, personaID int) (matchmaker.SaveRequest, error) {
	flags := cmd.Flags()

	nickname, _ := flags.GetString("nickname")
	if strings.TrimSpace(nickname) == "" {
		return matchmaker.SaveRequest{}, fmt.Errorf("--nickname is required with --save")
	}

	city, _ := flags.GetString("city")
	email, _ := flags.GetString("email")
	linkedin, _ := flags.GetString("linkedin")
	discoverable, _ := flags.GetBool("discoverable")
	public, _ := flags.GetBool("public-contacts")

	return matchmaker.SaveRequest{
		PersonaID:            personaID,
		Nickname:             nickname,
		City:                 city,
		Email:                email,
		LinkedInURL:          linkedin,
		IsDiscoverable:       discoverable,
		ShowContactsPublicly: public,
	}, nil
}

func printPersona(w io.Writer, p persona.Persona, score int) {
	fmt.Fprintf(w, "\nYour music persona: %s (score %d)\n", p.Name, score)
	fmt.Fprintf(w, "%s\n", p.Description)
	if len(p.Traits) > 0 {
		fmt.Fprintf(w, "Traits: %s\n", strings.Join(p.Traits, ", "))
	}
	fmt.Fprintf(w, "%.1f%% of surveyed Canadians share this persona\n", p.Percentage)
}

func printInsights(w io.Writer, in *ai.Insights) {
	if len(in.Recommendations) > 0 {
		fmt.Fprintf(w, "\nRecommended for you:\n")
		for _, r := range in.Recommendations {
			fmt.Fprintf(w, "  - %s by %s (%s): %s\n", r.Title, r.Artist, r.Genre, r.Reason)
		}
	}
	if len(in.FunFacts) > 0 {
		fmt.Fprintf(w, "\nFun facts:\n")
		for _, f := range in.FunFacts {
			fmt.Fprintf(w, "  - %s\n", f)
		}
	}
}

func printSaved(w io.Writer, p *buddy.Profile) {
	fmt.Fprintf(w, "\nSaved buddy profile %s (%s)\n", p.ID, p.Nickname)
	fmt.Fprintf(w, "Vibe tags: %s\n", strings.Join(p.VibeTags, ", "))
	fmt.Fprintf(w, "Expires at: %s\n", p.ExpiresAt.Format("2006-01-02"))
	fmt.Fprintf(w, "Access token (keep it, it is shown once): %s\n", p.AccessToken)
}
