package matching

import (
	"context"
	"testing"
	"time"
)

func TestRecorderRecord(t *testing.T) {
	repo := &fakeRepo{}
	r := NewRecorder(repo, false)
	fixed := time.Date(2023, 5, 16, 14, 30, 0, 0, time.FixedZone("x", 7200))
	r.now = func() time.Time { return fixed }
	r.newID = func() string { return "match1" }

	result := Result{
		{ResumeID: "resume1", Name: "John Student", Email: "john@example.com", Score: 85, Rationale: []string{"a"}, Status: StatusScored},
		{ResumeID: "resume2", Name: "Jane Doe", Email: "jane@example.com", Score: 70, Status: StatusScored},
	}

	entry, err := r.Record(context.Background(), "user2", "COLLEGE123", "Frontend", result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.ID != "match1" || !entry.CreatedAt.Equal(fixed) || entry.CreatedAt.Location() != time.UTC {
		t.Fatalf("unexpected entry metadata: %+v", entry)
	}
	if len(entry.Matches) != 2 || entry.Matches[0].ResumeID != "resume1" || entry.Matches[0].Rationale != nil {
		t.Fatalf("unexpected matches: %+v", entry.Matches)
	}

	result[0].Score = 1
	if repo.history[0].Matches[0].Score != 85 {
		t.Fatalf("stored entry must not alias the result")
	}
}

func TestSortHistoryStable(t *testing.T) {
	at := time.Now()
	entries := []*HistoryEntry{
		{ID: "a", CreatedAt: at},
		{ID: "b", CreatedAt: at.Add(time.Second)},
		{ID: "c", CreatedAt: at},
	}
	SortHistory(entries)
	if entries[0].ID != "b" || entries[1].ID != "a" || entries[2].ID != "c" {
		t.Fatalf("unexpected order: %s %s %s", entries[0].ID, entries[1].ID, entries[2].ID)
	}
}
