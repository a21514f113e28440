package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/resume"
)

// Memory keeps everything in process. Reads return copies.
type Memory struct {
	mu      sync.RWMutex
	resumes []*resume.Record
	history []*matching.HistoryEntry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) ListResumesByNamespace(_ context.Context, namespace string) ([]*resume.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*resume.Record{}
	for _, r := range m.resumes {
		if r.Namespace == namespace {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (m *Memory) UpsertResume(_ context.Context, rec *resume.Record) (*resume.Record, error) {
	if err := validateResume(rec); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := rec.Clone()
	for i, existing := range m.resumes {
		if existing.UserID == rec.UserID {
			stored.ID = existing.ID
			m.resumes[i] = stored
			return stored.Clone(), nil
		}
	}

	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	m.resumes = append(m.resumes, stored)
	return stored.Clone(), nil
}

func (m *Memory) GetResumeByUser(_ context.Context, userID string) (*resume.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.resumes {
		if r.UserID == userID {
			return r.Clone(), nil
		}
	}
	return nil, fmt.Errorf("resume for user %s: %w", userID, matching.ErrNotFound)
}

func (m *Memory) AppendHistory(_ context.Context, entry *matching.HistoryEntry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.history {
		if e.ID == entry.ID {
			return fmt.Errorf("history entry %s already exists", entry.ID)
		}
	}
	m.history = append(m.history, entry.Clone())
	return nil
}

func (m *Memory) ListHistoryByUser(_ context.Context, userID string) ([]*matching.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*matching.HistoryEntry{}
	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].UserID == userID {
			out = append(out, m.history[i].Clone())
		}
	}
	matching.SortHistory(out)
	return out, nil
}

func (m *Memory) GetHistory(_ context.Context, id string) (*matching.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.history {
		if e.ID == id {
			return e.Clone(), nil
		}
	}
	return nil, fmt.Errorf("history entry %s: %w", id, matching.ErrNotFound)
}

func (m *Memory) Close() error { return nil }
