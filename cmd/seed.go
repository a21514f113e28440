package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/resume"
	"github.com/spigell/resume-matcher/internal/storage"
)

const sampleNamespace = "COLLEGE123"

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load sample résumés and a sample match run into the storage",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		rt := bootstrap(ctx)
		defer rt.Close()

		if err := seedSampleData(ctx, rt.store, time.Now()); err != nil {
			rt.logger.Fatal("seeding storage", zap.Error(err))
		}

		rt.logger.Info("sample data loaded", zap.String("namespace", sampleNamespace))
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func sampleResumes(now time.Time) []*resume.Record {
	john := resume.NewRecord("user1", sampleNamespace, "", resume.Profile{
		Name:          "John Student",
		Email:         "john@example.com",
		SuggestedRole: "Frontend Developer",
		Experience:    "Built single page applications during two internships.",
		Skills:        []string{"React", "JavaScript", "HTML/CSS", "Git", "TypeScript"},
	}, now.Add(-48*time.Hour))
	john.ID = "resume1"

	jane := resume.NewRecord("user3", sampleNamespace, "", resume.Profile{
		Name:          "Jane Doe",
		Email:         "jane@example.com",
		SuggestedRole: "Full Stack Developer",
		Experience:    "Shipped REST services and dashboards for a campus startup.",
		Skills:        []string{"React", "Node.js", "MongoDB", "Express", "AWS"},
	}, now.Add(-24*time.Hour))
	jane.ID = "resume2"

	return []*resume.Record{john, jane}
}

func sampleHistory(now time.Time) *matching.HistoryEntry {
	return &matching.HistoryEntry{
		ID:             "match1",
		UserID:         "user2",
		Namespace:      sampleNamespace,
		JobDescription: "Frontend developer with React experience",
		CreatedAt:      now.UTC(),
		Matches: []matching.HistoryMatch{
			{ResumeID: "resume1", Name: "John Student", Email: "john@example.com", SuggestedRole: "Frontend Developer", Score: 85, Status: matching.StatusScored},
			{ResumeID: "resume2", Name: "Jane Doe", Email: "jane@example.com", SuggestedRole: "Full Stack Developer", Score: 70, Status: matching.StatusScored},
		},
	}
}

// seedSampleData is idempotent: résumés are upserted and the sample run is added once.
func seedSampleData(ctx context.Context, store storage.Store, now time.Time) error {
	for _, rec := range sampleResumes(now) {
		if _, err := store.UpsertResume(ctx, rec); err != nil {
			return fmt.Errorf("seed resume %s: %w", rec.ID, err)
		}
	}

	entry := sampleHistory(now)
	_, err := store.GetHistory(ctx, entry.ID)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, matching.ErrNotFound):
		return fmt.Errorf("seed history: %w", err)
	}

	if err := store.AppendHistory(ctx, entry); err != nil {
		return fmt.Errorf("seed history: %w", err)
	}
	return nil
}
