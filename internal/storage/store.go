package storage

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/resume"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store is the repository shared by the matcher, the HTTP API and the CLI.
type Store interface {
	matching.ResumeSource
	matching.HistoryStore

	// UpsertResume stores rec, replacing the user's previous résumé while keeping its id.
	UpsertResume(ctx context.Context, rec *resume.Record) (*resume.Record, error)
	GetResumeByUser(ctx context.Context, userID string) (*resume.Record, error)
	GetHistory(ctx context.Context, id string) (*matching.HistoryEntry, error)
	Close() error
}

// Open returns the store selected by driver.
func Open(ctx context.Context, driver, dsn string, log *zap.Logger) (Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverMemory:
		log.Info("using in-memory storage")
		return NewMemory(), nil
	case DriverSQLite:
		return OpenSQLite(ctx, dsn, log)
	case DriverPostgres:
		return ConnectPostgres(ctx, dsn, log)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}

func validateResume(rec *resume.Record) error {
	if rec == nil {
		return fmt.Errorf("resume is required")
	}
	if strings.TrimSpace(rec.UserID) == "" {
		return fmt.Errorf("resume user id is required")
	}
	if strings.TrimSpace(rec.Namespace) == "" {
		return fmt.Errorf("resume college code is required")
	}
	return nil
}

func validateEntry(entry *matching.HistoryEntry) error {
	if entry == nil {
		return fmt.Errorf("history entry is required")
	}
	if strings.TrimSpace(entry.ID) == "" {
		return fmt.Errorf("history entry id is required")
	}
	if strings.TrimSpace(entry.UserID) == "" {
		return fmt.Errorf("history entry user id is required")
	}
	return nil
}
