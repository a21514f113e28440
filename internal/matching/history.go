package matching

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Recorder turns ranked results into history entries.
type Recorder struct {
	store         HistoryStore
	keepRationale bool
	now           func() time.Time
	newID         func() string
}

func NewRecorder(store HistoryStore, keepRationale bool) *Recorder {
	return &Recorder{
		store:         store,
		keepRationale: keepRationale,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// Record persists result exactly in its ranked order and returns the stored entry.
func (r *Recorder) Record(ctx context.Context, userID, namespace, jobDescription string, result Result) (*HistoryEntry, error) {
	entry := &HistoryEntry{
		ID:             r.newID(),
		UserID:         userID,
		Namespace:      namespace,
		JobDescription: jobDescription,
		Matches:        make([]HistoryMatch, 0, len(result)),
		CreatedAt:      r.now().UTC(),
	}

	for _, c := range result {
		m := HistoryMatch{
			ResumeID:      c.ResumeID,
			Name:          c.Name,
			Email:         c.Email,
			SuggestedRole: c.SuggestedRole,
			Score:         c.Score,
			Status:        c.Status,
		}
		if r.keepRationale {
			m.Rationale = slices.Clone(c.Rationale)
		}
		entry.Matches = append(entry.Matches, m)
	}

	if err := r.store.AppendHistory(ctx, entry); err != nil {
		return nil, fmt.Errorf("%w: append history: %w", ErrPersistence, err)
	}

	return entry, nil
}

// ListByUser returns the user's entries, newest first.
func (r *Recorder) ListByUser(ctx context.Context, userID string) ([]*HistoryEntry, error) {
	entries, err := r.store.ListHistoryByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list history: %w", ErrPersistence, err)
	}

	SortHistory(entries)
	if entries == nil {
		entries = []*HistoryEntry{}
	}
	return entries, nil
}

// SortHistory orders entries newest first; equal timestamps keep their order.
func SortHistory(entries []*HistoryEntry) {
	slices.SortStableFunc(entries, func(a, b *HistoryEntry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
