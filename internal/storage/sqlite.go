package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/resume"
)

// SQLite stores résumés and history in a single database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string, log *zap.Logger) (*SQLite, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if log != nil {
		log.Info("sqlite storage opened", zap.String("path", path))
	}
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	scripts, err := migrations(DriverSQLite)
	if err != nil {
		return err
	}
	for _, script := range scripts {
		if _, err := s.db.ExecContext(ctx, script); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) ListResumesByNamespace(ctx context.Context, namespace string) ([]*resume.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, college_code, name, email, suggested_role, experience, skills, raw_text, uploaded_at
		FROM resumes WHERE college_code = ? ORDER BY uploaded_at, id`, namespace)
	if err != nil {
		return nil, fmt.Errorf("query resumes: %w", err)
	}
	defer rows.Close()

	out := []*resume.Record{}
	for rows.Next() {
		rec, err := scanSQLiteResume(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLite) UpsertResume(ctx context.Context, rec *resume.Record) (*resume.Record, error) {
	if err := validateResume(rec); err != nil {
		return nil, err
	}

	skills, err := encodeSkills(rec.Skills)
	if err != nil {
		return nil, err
	}

	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}

	var storedID string
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO resumes (id, user_id, college_code, name, email, suggested_role, experience, skills, raw_text, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			college_code = excluded.college_code,
			name = excluded.name,
			email = excluded.email,
			suggested_role = excluded.suggested_role,
			experience = excluded.experience,
			skills = excluded.skills,
			raw_text = excluded.raw_text,
			uploaded_at = excluded.uploaded_at
		RETURNING id`,
		id, rec.UserID, rec.Namespace, rec.Name, rec.Email, rec.SuggestedRole, rec.Experience, skills, rec.Text, formatTime(rec.UploadedAt),
	).Scan(&storedID)
	if err != nil {
		return nil, fmt.Errorf("upsert resume: %w", err)
	}

	stored := rec.Clone()
	stored.ID = storedID
	return stored, nil
}

func (s *SQLite) GetResumeByUser(ctx context.Context, userID string) (*resume.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, college_code, name, email, suggested_role, experience, skills, raw_text, uploaded_at
		FROM resumes WHERE user_id = ?`, userID)

	rec, err := scanSQLiteResume(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resume for user %s: %w", userID, matching.ErrNotFound)
	}
	return rec, err
}

func (s *SQLite) AppendHistory(ctx context.Context, entry *matching.HistoryEntry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}

	matches, err := encodeMatches(entry.Matches)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO match_history (id, user_id, college_code, job_description, matches, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.Namespace, entry.JobDescription, matches, formatTime(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (s *SQLite) ListHistoryByUser(ctx context.Context, userID string) ([]*matching.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, college_code, job_description, matches, created_at
		FROM match_history WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := []*matching.HistoryEntry{}
	for rows.Next() {
		entry, err := scanSQLiteHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *SQLite) GetHistory(ctx context.Context, id string) (*matching.HistoryEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, college_code, job_description, matches, created_at
		FROM match_history WHERE id = ?`, id)

	entry, err := scanSQLiteHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("history entry %s: %w", id, matching.ErrNotFound)
	}
	return entry, err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteResume(row rowScanner) (*resume.Record, error) {
	var (
		rec        resume.Record
		skills     string
		uploadedAt string
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Namespace, &rec.Name, &rec.Email, &rec.SuggestedRole,
		&rec.Experience, &skills, &rec.Text, &uploadedAt); err != nil {
		return nil, err
	}

	var err error
	if rec.Skills, err = decodeSkills([]byte(skills)); err != nil {
		return nil, err
	}
	if rec.UploadedAt, err = parseTime(uploadedAt); err != nil {
		return nil, fmt.Errorf("parse uploaded_at: %w", err)
	}
	return &rec, nil
}

func scanSQLiteHistory(row rowScanner) (*matching.HistoryEntry, error) {
	var (
		entry     matching.HistoryEntry
		matches   string
		createdAt string
	)
	if err := row.Scan(&entry.ID, &entry.UserID, &entry.Namespace, &entry.JobDescription, &matches, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if entry.Matches, err = decodeMatches([]byte(matches)); err != nil {
		return nil, err
	}
	if entry.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &entry, nil
}
