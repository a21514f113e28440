package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/matching"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank the résumés of a college code against a job description",
	Run: func(cmd *cobra.Command, _ []string) {
		runMatch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("namespace", "n", "", "college code to match within")
	matchCmd.Flags().StringP("user", "u", "", "issuing company user id recorded in history")
	matchCmd.Flags().StringP("job-file", "f", "", "file with the job description (use - for stdin)")
	matchCmd.Flags().String("job", "", "job description text")
	matchCmd.Flags().IntP("top-n", "t", 0, "number of candidates to keep (default from matching.default-top-n)")

	matchCmd.MarkFlagRequired("namespace")
	matchCmd.MarkFlagRequired("user")
}

func runMatch(cmd *cobra.Command) {
	ctx := context.Background()
	rt := bootstrap(ctx)
	defer rt.Close()

	job, err := readJobDescription(cmd)
	if err != nil {
		rt.logger.Fatal("reading job description", zap.Error(err))
	}

	orchestrator, _, err := rt.services(ctx)
	if err != nil {
		rt.logger.Fatal("preparing ai services", zap.Error(err))
	}

	namespace, _ := cmd.Flags().GetString("namespace")
	user, _ := cmd.Flags().GetString("user")

	req := matching.Request{UserID: user, JobDescription: job, Namespace: namespace}
	if cmd.Flags().Changed("top-n") {
		topN, _ := cmd.Flags().GetInt("top-n")
		req.TopN = &topN
	}

	out, err := orchestrator.RunMatch(ctx, req)
	if err != nil {
		if errors.Is(err, matching.ErrNoCandidates) {
			rt.logger.Info("exiting", zap.String("reason", "no resumes found for college code"), zap.String("namespace", namespace))
			return
		}
		rt.logger.Fatal("match run failed", zap.Error(err))
	}

	// do not bother error since the result is plain data
	pretty, _ := json.MarshalIndent(out.Result, "", "  ")
	rt.logger.Info(string(pretty),
		zap.String("history_id", out.Entry.ID),
		zap.Int("candidates", len(out.Result)),
	)
}

func readJobDescription(cmd *cobra.Command) (string, error) {
	if text, _ := cmd.Flags().GetString("job"); strings.TrimSpace(text) != "" {
		return text, nil
	}

	path, _ := cmd.Flags().GetString("job-file")
	switch strings.TrimSpace(path) {
	case "":
		return "", errors.New("either --job or --job-file is required")
	case "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return string(data), nil
	}
}
