package ai

import (
	"context"
	"errors"
	"fmt"
)

// ErrScoring marks any failure to obtain a usable score for a candidate.
var ErrScoring = errors.New("scoring failed")

// Candidate is the résumé profile presented to a scorer.
type Candidate struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Email         string   `json:"email,omitempty"`
	SuggestedRole string   `json:"suggestedRole"`
	Experience    string   `json:"experience"`
	Skills        []string `json:"skills"`
	// RawText is the full résumé text, sent as its own prompt section.
	RawText       string   `json:"-"`
}

// Assessment is the scorer's verdict for one candidate.
type Assessment struct {
	Score     float64
	Rationale []string
	Raw       string
}

// Scorer rates how well a candidate fits a job description.
// Implementations should return once ctx is done; callers stop waiting at that point.
type Scorer interface {
	Score(ctx context.Context, jobDescription string, candidate Candidate) (*Assessment, error)
}

// Generator is a text-completion backend.
type Generator interface {
	GenerateContent(ctx context.Context, system, prompt string) (string, error)
	Model() string
}

// ScoringError ties a scoring failure to the candidate it happened for.
type ScoringError struct {
	CandidateID string
	Err         error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("score candidate %s: %v", e.CandidateID, e.Err)
}

func (e *ScoringError) Unwrap() []error {
	return []error{ErrScoring, e.Err}
}

func scoringError(candidateID string, err error) error {
	return &ScoringError{CandidateID: candidateID, Err: err}
}
