package matching

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestOrchestrator(repo *fakeRepo, scorer *scriptedScorer, pub Publisher) *Orchestrator {
	return New(Config{KeepRationale: true}, Deps{
		Resumes:   repo,
		History:   repo,
		Scorer:    scorer,
		Publisher: pub,
		Logger:    zap.NewNop(),
	})
}

func TestRunMatchRanksAndRecords(t *testing.T) {
	repo := seededRepo()
	scorer := &scriptedScorer{scores: map[string]float64{"A": 92, "B": 85}}
	pub := &recordingPublisher{}
	o := newTestOrchestrator(repo, scorer, pub)

	out, err := o.RunMatch(context.Background(), Request{
		UserID:         "user2",
		JobDescription: "Frontend engineer",
		Namespace:      "COLLEGE123",
		TopN:           intPtr(5),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := out.Result.IDs()
	if len(ids) != 2 || ids[0] != "A" || ids[1] != "B" {
		t.Fatalf("unexpected ranking: %v", ids)
	}
	if scorer.calls.Load() != 2 {
		t.Fatalf("foreign namespace must not be scored, calls=%d", scorer.calls.Load())
	}

	if len(repo.history) != 1 {
		t.Fatalf("expected one history entry, got %d", len(repo.history))
	}
	entry := repo.history[0]
	if entry.UserID != "user2" || entry.Namespace != "COLLEGE123" || entry.JobDescription != "Frontend engineer" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if len(entry.Matches) != 2 || entry.Matches[0].ResumeID != "A" || entry.Matches[0].Score != 92 || entry.Matches[1].ResumeID != "B" {
		t.Fatalf("history must mirror ranked result: %+v", entry.Matches)
	}
	if entry.Matches[0].Email != "john@example.com" || entry.Matches[0].Rationale[0] != "fits A" {
		t.Fatalf("unexpected match projection: %+v", entry.Matches[0])
	}
	if out.Entry.ID == "" || out.Entry.ID != entry.ID {
		t.Fatalf("outcome must reference the stored entry")
	}

	if len(pub.entries) != 1 || pub.entries[0].ID != entry.ID {
		t.Fatalf("expected one published event")
	}
	if len(out.Steps) != 3 || out.Steps[2].Left != 2 {
		t.Fatalf("unexpected steps: %+v", out.Steps)
	}
}

func TestRunMatchTopNTruncates(t *testing.T) {
	repo := seededRepo()
	o := newTestOrchestrator(repo, &scriptedScorer{scores: map[string]float64{"A": 92, "B": 85}}, nil)

	out, err := o.RunMatch(context.Background(), Request{UserID: "user2", JobDescription: "jd", Namespace: "COLLEGE123", TopN: intPtr(1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids := out.Result.IDs(); len(ids) != 1 || ids[0] != "A" {
		t.Fatalf("unexpected ranking: %v", ids)
	}
	if len(repo.history[0].Matches) != 1 {
		t.Fatalf("history must hold only the truncated result")
	}
}

func TestRunMatchDefaultTopN(t *testing.T) {
	repo := &fakeRepo{}
	scores := map[string]float64{}
	for i := 0; i < 7; i++ {
		id := string(rune('a' + i))
		repo.resumes = append(repo.resumes, records(id)...)
		scores[id] = float64(i)
	}
	o := newTestOrchestrator(repo, &scriptedScorer{scores: scores}, nil)

	out, err := o.RunMatch(context.Background(), Request{UserID: "u", JobDescription: "jd", Namespace: "COLLEGE123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Result) != DefaultTopN || out.Result[0].ResumeID != "g" {
		t.Fatalf("unexpected default truncation: %v", out.Result.IDs())
	}
}

func TestRunMatchScoringFailureStillRanks(t *testing.T) {
	repo := seededRepo()
	scorer := &scriptedScorer{
		scores: map[string]float64{"A": 92},
		errs:   map[string]error{"B": errors.New("malformed")},
	}
	o := newTestOrchestrator(repo, scorer, nil)

	out, err := o.RunMatch(context.Background(), Request{UserID: "user2", JobDescription: "jd", Namespace: "COLLEGE123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Result) != 2 {
		t.Fatalf("expected both candidates, got %v", out.Result.IDs())
	}
	b := out.Result[1]
	if b.ResumeID != "B" || b.Score != 0 || b.Status != StatusFailed || !strings.Contains(b.Rationale[0], "could not be completed") {
		t.Fatalf("unexpected failed candidate: %+v", b)
	}
	if repo.history[0].Matches[1].Status != StatusFailed {
		t.Fatalf("history must record the failed status")
	}
}

func TestRunMatchNoCandidates(t *testing.T) {
	repo := seededRepo()
	scorer := &scriptedScorer{}
	o := newTestOrchestrator(repo, scorer, nil)

	_, err := o.RunMatch(context.Background(), Request{UserID: "user2", JobDescription: "jd", Namespace: "EMPTY"})
	if !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
	if scorer.calls.Load() != 0 {
		t.Fatalf("expected zero scoring calls")
	}
	if len(repo.history) != 0 {
		t.Fatalf("expected no history entry")
	}
}

func TestRunMatchInvalidRequests(t *testing.T) {
	cases := []struct {
		name string
		req  Request
	}{
		{name: "zero topN", req: Request{UserID: "u", JobDescription: "jd", Namespace: "COLLEGE123", TopN: intPtr(0)}},
		{name: "negative topN", req: Request{UserID: "u", JobDescription: "jd", Namespace: "COLLEGE123", TopN: intPtr(-1)}},
		{name: "blank job", req: Request{UserID: "u", JobDescription: "  ", Namespace: "COLLEGE123"}},
		{name: "no namespace", req: Request{UserID: "u", JobDescription: "jd"}},
		{name: "no user", req: Request{JobDescription: "jd", Namespace: "COLLEGE123"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := seededRepo()
			scorer := &scriptedScorer{}
			o := newTestOrchestrator(repo, scorer, nil)

			_, err := o.RunMatch(context.Background(), tc.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
			if repo.listCalls != 0 || scorer.calls.Load() != 0 || len(repo.history) != 0 {
				t.Fatalf("invalid request must not touch the repository or scorer")
			}
		})
	}
}

func TestRunMatchPersistenceFailures(t *testing.T) {
	repo := seededRepo()
	repo.listErr = errors.New("db down")
	o := newTestOrchestrator(repo, &scriptedScorer{}, nil)
	if _, err := o.RunMatch(context.Background(), Request{UserID: "u", JobDescription: "jd", Namespace: "COLLEGE123"}); !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence on read, got %v", err)
	}

	repo = seededRepo()
	repo.appendErr = errors.New("disk full")
	pub := &recordingPublisher{}
	o = newTestOrchestrator(repo, &scriptedScorer{scores: map[string]float64{"A": 1, "B": 2}}, pub)
	out, err := o.RunMatch(context.Background(), Request{UserID: "u", JobDescription: "jd", Namespace: "COLLEGE123"})
	if !errors.Is(err, ErrPersistence) || out != nil {
		t.Fatalf("expected ErrPersistence without result, got %v, %v", out, err)
	}
	if len(pub.entries) != 0 {
		t.Fatalf("nothing must be published when recording fails")
	}
}

func TestRunMatchPublishFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	repo := seededRepo()
	o := New(Config{}, Deps{
		Resumes:   repo,
		History:   repo,
		Scorer:    &scriptedScorer{scores: map[string]float64{"A": 1, "B": 2}},
		Publisher: &recordingPublisher{err: errors.New("broker down")},
		Logger:    zap.New(core),
	})

	out, err := o.RunMatch(context.Background(), Request{UserID: "u", JobDescription: "jd", Namespace: "COLLEGE123"})
	if err != nil || out == nil {
		t.Fatalf("publish failure must not fail the run: %v", err)
	}
	if logs.FilterMessage("publishing match event failed").Len() != 1 {
		t.Fatalf("expected publish failure to be logged")
	}
	if repo.history[0].Matches[0].Rationale != nil {
		t.Fatalf("rationale must be dropped when not kept")
	}
}

func TestRunMatchCancellationRecordsNothing(t *testing.T) {
	repo := seededRepo()
	scorer := &scriptedScorer{block: map[string]bool{"A": true, "B": true}}
	o := newTestOrchestrator(repo, scorer, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := o.RunMatch(ctx, Request{UserID: "u", JobDescription: "jd", Namespace: "COLLEGE123"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if len(repo.history) != 0 {
		t.Fatalf("cancelled run must not be recorded")
	}
}

func TestRunMatchNormalizesOnlyScoringText(t *testing.T) {
	repo := seededRepo()
	scorer := &scriptedScorer{scores: map[string]float64{"A": 1, "B": 2}}
	o := New(Config{}, Deps{
		Resumes:   repo,
		History:   repo,
		Scorer:    scorer,
		Logger:    zap.NewNop(),
		Normalize: strings.ToUpper,
	})

	if _, err := o.RunMatch(context.Background(), Request{UserID: "u", JobDescription: "go dev", Namespace: "COLLEGE123"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	job, _ := scorer.jobs.Load("A")
	if job != "GO DEV" {
		t.Fatalf("expected normalized job for scoring, got %v", job)
	}
	if repo.history[0].JobDescription != "go dev" {
		t.Fatalf("history must keep the submitted text")
	}
}

func TestListHistoryNewestFirstAndIdempotent(t *testing.T) {
	repo := seededRepo()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.history = []*HistoryEntry{
		{ID: "old", UserID: "user2", CreatedAt: base},
		{ID: "other", UserID: "someone", CreatedAt: base.Add(time.Hour)},
		{ID: "new", UserID: "user2", CreatedAt: base.Add(2 * time.Hour)},
	}
	o := newTestOrchestrator(repo, &scriptedScorer{}, nil)

	first, err := o.ListHistory(context.Background(), "user2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := o.ListHistory(context.Background(), "user2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, got := range [][]*HistoryEntry{first, second} {
		if len(got) != 2 || got[0].ID != "new" || got[1].ID != "old" {
			t.Fatalf("unexpected history: %+v", got)
		}
	}

	empty, err := o.ListHistory(context.Background(), "nobody")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty list, got %v, %v", empty, err)
	}

	if _, err := o.ListHistory(context.Background(), " "); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}

	repo.historyErr = errors.New("db down")
	if _, err := o.ListHistory(context.Background(), "user2"); !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestRunMatchScoresJobThatNormalizesToEmpty(t *testing.T) {
	repo := seededRepo()
	scorer := &scriptedScorer{scores: map[string]float64{"A": 10, "B": 20}}
	o := New(Config{}, Deps{
		Resumes:   repo,
		History:   repo,
		Scorer:    scorer,
		Logger:    zap.NewNop(),
		Normalize: func(string) string { return "" },
	})

	out, err := o.RunMatch(context.Background(), Request{UserID: "u", JobDescription: "<div></div>", Namespace: "COLLEGE123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range out.Result {
		if c.Status != StatusScored {
			t.Fatalf("expected every candidate to be scored, got %+v", c)
		}
	}
	if job, _ := scorer.jobs.Load("A"); job != "" {
		t.Fatalf("expected the normalized job to reach the scorer, got %q", job)
	}
	if repo.history[0].JobDescription != "<div></div>" {
		t.Fatalf("history must keep the submitted text")
	}
}
