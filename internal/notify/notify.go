package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spigell/resume-matcher/internal/matching"
)

const EventMatchCompleted = "match.completed"

// Event is published once a match run has been recorded.
type Event struct {
	Type        string    `json:"type"`
	HistoryID   string    `json:"historyId"`
	UserID      string    `json:"userId"`
	CollegeCode string    `json:"collegeCode"`
	Matches     int       `json:"matches"`
	TopResumeID string    `json:"topResumeId,omitempty"`
	TopScore    float64   `json:"topScore"`
	CreatedAt   time.Time `json:"createdAt"`
}

func NewEvent(entry *matching.HistoryEntry) Event {
	ev := Event{
		Type:        EventMatchCompleted,
		HistoryID:   entry.ID,
		UserID:      entry.UserID,
		CollegeCode: entry.Namespace,
		Matches:     len(entry.Matches),
		CreatedAt:   entry.CreatedAt,
	}
	if len(entry.Matches) > 0 {
		ev.TopResumeID = entry.Matches[0].ResumeID
		ev.TopScore = entry.Matches[0].Score
	}
	return ev
}

func (e Event) Marshal() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return b, nil
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, *matching.HistoryEntry) error { return nil }
