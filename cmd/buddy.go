package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spigell/music-dna/internal/buddy"
	"github.com/spigell/music-dna/internal/logger"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var buddyCmd = &cobra.Command{
	Use:   "buddy",
	Short: "Manage saved music buddy profiles",
}

var buddyMatchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "Print suggested matches for a saved profile",
	Run: func(cmd *cobra.Command, _ []string) {
		buddyMatches(cmd)
	},
}

var buddyDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a saved profile",
	Run: func(cmd *cobra.Command, _ []string) {
		buddyDelete(cmd)
	},
}

var buddyPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every profile past its retention window",
	Run: func(_ *cobra.Command, _ []string) {
		buddyPurge()
	},
}

var confirm = promptui.Select{
	Label: "Delete the profile?",
	Items: []string{PromptYes, PromptNo},
}

func init() {
	rootCmd.AddCommand(buddyCmd)
	buddyCmd.AddCommand(buddyMatchesCmd, buddyDeleteCmd, buddyPurgeCmd)

	for _, c := range []*cobra.Command{buddyMatchesCmd, buddyDeleteCmd} {
		c.Flags().StringP("token", "t", "", "profile access token")
		c.MarkFlagRequired("token")
	}

	buddyMatchesCmd.Flags().IntP("limit", "l", 0, "maximum number of matches (default is matching.default-limit)")
	buddyDeleteCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation")
}

func buddyMatches(cmd *cobra.Command) {
	ctx := context.Background()

	d := newDeps()
	d.openStore()
	defer d.close()

	token, _ := cmd.Flags().GetString("token")
	limit, _ := cmd.Flags().GetInt("limit")

	matches, err := d.buddies.Matches(ctx, token, limit)
	if err != nil {
		d.logger.Fatal("getting matches", zap.Error(err), logger.TokenField(token))
	}

	d.logger.Info("suggested matches", zap.Int("count", len(matches)))
	printMatches(cmd.OutOrStdout(), matches)
}

func buddyDelete(cmd *cobra.Command) {
	ctx := context.Background()

	d := newDeps()
	d.openStore()
	defer d.close()

	token, _ := cmd.Flags().GetString("token")

	profile, err := d.buddies.Mine(ctx, token)
	if err != nil {
		d.logger.Fatal("finding profile", zap.Error(err), logger.TokenField(token))
	}

	if approved, _ := cmd.Flags().GetBool("auto-approve"); !approved {
		confirm.Label = fmt.Sprintf("Delete the profile of %s (%s)?", profile.Nickname, profile.PersonaName)
		_, answer, err := confirm.Run()
		if err != nil {
			d.logger.Fatal("exiting", zap.Error(err))
		}
		if answer != PromptYes {
			d.logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	if err := d.buddies.Delete(ctx, token); err != nil {
		d.logger.Fatal("deleting profile", zap.Error(err), logger.TokenField(token))
	}

	d.logger.Info("profile deleted", logger.ProfileFields(profile.ID, profile.PersonaID)...)
}

func buddyPurge() {
	ctx := context.Background()

	d := newDeps()
	d.openStore()
	defer d.close()

	purged, err := d.buddies.PurgeExpired(ctx)
	if err != nil {
		d.logger.Fatal("purging expired profiles", zap.Error(err))
	}

	d.logger.Info("purged expired profiles", zap.Int64("count", purged))
}

func printMatches(w io.Writer, matches []buddy.Match) {
	if len(matches) == 0 {
		fmt.Fprintln(w, "No matches yet.")
		return
	}

	for i, m := range matches {
		fmt.Fprintf(w, "%2d. %s, %s, %d%% similar", i+1, m.Profile.Nickname, m.Profile.PersonaName, m.Similarity)
		if m.Profile.City != "" {
			fmt.Fprintf(w, ", %s", m.Profile.City)
		}
		if len(m.SharedTags) > 0 {
			fmt.Fprintf(w, " [%s]", strings.Join(m.SharedTags, ", "))
		}
		fmt.Fprintln(w)
	}
}
