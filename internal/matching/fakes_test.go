package matching

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/resume"
)

type fakeRepo struct {
	mu         sync.Mutex
	resumes    []*resume.Record
	history    []*HistoryEntry
	listCalls  int
	listErr    error
	appendErr  error
	historyErr error
}

func (f *fakeRepo) ListResumesByNamespace(_ context.Context, ns string) ([]*resume.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*resume.Record
	for _, r := range f.resumes {
		if r.Namespace == ns {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (f *fakeRepo) AppendHistory(_ context.Context, entry *HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.history = append(f.history, entry.Clone())
	return nil
}

func (f *fakeRepo) ListHistoryByUser(_ context.Context, userID string) ([]*HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	var out []*HistoryEntry
	for _, e := range f.history {
		if e.UserID == userID {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}

type scriptedScorer struct {
	scores map[string]float64
	errs   map[string]error
	block  map[string]bool
	calls  atomic.Int32
	jobs   sync.Map
	seen   sync.Map
}

func (s *scriptedScorer) Score(ctx context.Context, job string, c ai.Candidate) (*ai.Assessment, error) {
	s.calls.Add(1)
	s.jobs.Store(c.ID, job)
	s.seen.Store(c.ID, c)
	if s.block[c.ID] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err, ok := s.errs[c.ID]; ok {
		return nil, &ai.ScoringError{CandidateID: c.ID, Err: err}
	}
	score, ok := s.scores[c.ID]
	if !ok {
		return nil, errors.New("unscripted candidate")
	}
	return &ai.Assessment{Score: score, Rationale: []string{"fits " + c.ID}}, nil
}

type recordingPublisher struct {
	entries []*HistoryEntry
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, entry *HistoryEntry) error {
	p.entries = append(p.entries, entry)
	return p.err
}

func seededRepo() *fakeRepo {
	at := time.Date(2023, 5, 15, 10, 0, 0, 0, time.UTC)
	return &fakeRepo{resumes: []*resume.Record{
		{ID: "A", UserID: "u1", Namespace: "COLLEGE123", Name: "John Student", Email: "john@example.com", SuggestedRole: "Frontend Developer", Skills: []string{"React"}, UploadedAt: at},
		{ID: "B", UserID: "u2", Namespace: "COLLEGE123", Name: "Jane Doe", Email: "jane@example.com", SuggestedRole: "Full Stack Developer", Skills: []string{"Node.js"}, UploadedAt: at},
		{ID: "X", UserID: "u3", Namespace: "OTHER", Name: "Other", UploadedAt: at},
	}}
}

func intPtr(v int) *int { return &v }
