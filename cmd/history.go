package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/export"
	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/utils"
)

const (
	PromptBack = "Back"
	PromptExit = "Exit"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past match runs of a user",
	Run: func(cmd *cobra.Command, _ []string) {
		runHistory(cmd)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringP("user", "u", "", "user id whose history to show")
	historyCmd.Flags().BoolP("interactive", "i", false, "browse runs interactively")
	historyCmd.Flags().StringP("export", "e", "", "write the history to an xlsx workbook")

	historyCmd.MarkFlagRequired("user")
}

func runHistory(cmd *cobra.Command) {
	ctx := context.Background()
	rt := bootstrap(ctx)
	defer rt.Close()

	user, _ := cmd.Flags().GetString("user")

	entries, err := matching.NewRecorder(rt.store, rt.config.Matching.KeepRationale).ListByUser(ctx, user)
	if err != nil {
		rt.logger.Fatal("listing history", zap.Error(err))
	}

	rt.logger.Info("history loaded", zap.String("user", user), zap.Int("runs", len(entries)))

	if path, _ := cmd.Flags().GetString("export"); path != "" {
		if err := export.WriteHistoryXLSX(entries, path); err != nil {
			rt.logger.Fatal("exporting history", zap.Error(err))
		}
		rt.logger.Info("history exported", zap.String("filename", path))
	}

	if interactive, _ := cmd.Flags().GetBool("interactive"); !interactive || len(entries) == 0 {
		for _, e := range entries {
			rt.logger.Info("match run",
				zap.String("id", e.ID),
				zap.String("namespace", e.Namespace),
				zap.Time("date", e.CreatedAt),
				zap.Int("matches", len(e.Matches)),
			)
		}
		return
	}

	if err := browseHistory(rt.logger, entries); err != nil && !errors.Is(err, errExit) {
		rt.logger.Fatal("browsing history", zap.Error(err))
	}
}

var errExit = errors.New("exit requested")

func browseHistory(l *zap.Logger, entries []*matching.HistoryEntry) error {
	items := make([]string, 0, len(entries)+1)
	for _, e := range entries {
		items = append(items, historyLabel(e))
	}
	items = append(items, PromptExit)

	for {
		prompt := promptui.Select{
			Label: "Choose a match run and press ENTER",
			Items: items,
			Size:  10,
		}

		idx, selected, err := prompt.Run()
		if err != nil {
			return err
		}

		if selected == PromptExit {
			return errExit
		}

		if err := browseMatches(l, entries[idx]); err != nil {
			return err
		}
	}
}

func browseMatches(l *zap.Logger, entry *matching.HistoryEntry) error {
	items := make([]string, 0, len(entry.Matches)+1)
	for i, m := range entry.Matches {
		items = append(items, fmt.Sprintf("%d. %s / %s / %.1f", i+1, m.Name, m.SuggestedRole, m.Score))
	}
	items = append(items, PromptBack)

	prompt := promptui.Select{
		Label: fmt.Sprintf("Run %s: %s", entry.ID, utils.TruncateRunes(entry.JobDescription, 60)),
		Items: items,
	}

	idx, selected, err := prompt.Run()
	if err != nil {
		return err
	}
	if selected == PromptBack {
		return nil
	}

	// do not bother error since the match is plain data
	pretty, _ := json.MarshalIndent(entry.Matches[idx], "", "  ")
	l.Info(string(pretty))

	return nil
}

func historyLabel(e *matching.HistoryEntry) string {
	return fmt.Sprintf("%s %s / %s / %d candidates",
		e.ID, e.CreatedAt.Format("2006-01-02 15:04"), e.Namespace, len(e.Matches),
	)
}
