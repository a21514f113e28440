package matching

import (
	"context"
	"slices"
	"time"

	"github.com/spigell/resume-matcher/internal/resume"
)

type CandidateStatus string

const (
	StatusScored CandidateStatus = "scored"
	StatusFailed CandidateStatus = "failed"
)

// FailedRationale is the explanation attached to a candidate whose evaluation failed.
const FailedRationale = "Match evaluation could not be completed for this candidate."

// Candidate is one evaluated résumé.
type Candidate struct {
	ResumeID      string          `json:"resumeId"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	SuggestedRole string          `json:"suggestedRole"`
	Score         float64         `json:"score"`
	Rationale     []string        `json:"highlights"`
	Status        CandidateStatus `json:"status"`
}

// Result is a ranked list of candidates, best first.
type Result []Candidate

func (r Result) IDs() []string {
	ids := make([]string, 0, len(r))
	for _, c := range r {
		ids = append(ids, c.ResumeID)
	}
	return ids
}

// HistoryMatch is the stored projection of a ranked candidate.
type HistoryMatch struct {
	ResumeID      string          `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	SuggestedRole string          `json:"suggestedRole,omitempty"`
	Score         float64         `json:"score"`
	Status        CandidateStatus `json:"status,omitempty"`
	Rationale     []string        `json:"highlights,omitempty"`
}

// HistoryEntry is an immutable record of one completed match run.
type HistoryEntry struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId"`
	Namespace      string         `json:"collegeCode"`
	JobDescription string         `json:"jobDescription"`
	Matches        []HistoryMatch `json:"matches"`
	CreatedAt      time.Time      `json:"date"`
}

func (e *HistoryEntry) Clone() *HistoryEntry {
	if e == nil {
		return nil
	}
	c := *e
	c.Matches = make([]HistoryMatch, len(e.Matches))
	for i, m := range e.Matches {
		m.Rationale = slices.Clone(m.Rationale)
		c.Matches[i] = m
	}
	return &c
}

// ResumeSource lists the résumés a run may consider.
type ResumeSource interface {
	ListResumesByNamespace(ctx context.Context, namespace string) ([]*resume.Record, error)
}

// HistoryStore persists history entries.
type HistoryStore interface {
	AppendHistory(ctx context.Context, entry *HistoryEntry) error
	ListHistoryByUser(ctx context.Context, userID string) ([]*HistoryEntry, error)
}

// Publisher is notified after a run has been recorded.
type Publisher interface {
	Publish(ctx context.Context, entry *HistoryEntry) error
}
