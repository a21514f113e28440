package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/resume"
)

// Postgres stores résumés and history in PostgreSQL through a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// ConnectPostgres creates a pgx pool and runs schema migrations.
func ConnectPostgres(ctx context.Context, databaseURL string, log *zap.Logger) (*Postgres, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("postgres dsn is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if log != nil {
		log.Info("postgres storage connected", zap.String("host", config.ConnConfig.Host))
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	scripts, err := migrations(DriverPostgres)
	if err != nil {
		return err
	}
	for _, script := range scripts {
		if _, err := p.pool.Exec(ctx, script); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) ListResumesByNamespace(ctx context.Context, namespace string) ([]*resume.Record, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, user_id, college_code, name, email, suggested_role, experience, skills, raw_text, uploaded_at
		FROM resumes WHERE college_code = $1 ORDER BY uploaded_at, id`, namespace)
	if err != nil {
		return nil, fmt.Errorf("query resumes: %w", err)
	}
	defer rows.Close()

	out := []*resume.Record{}
	for rows.Next() {
		rec, err := scanPostgresResume(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) UpsertResume(ctx context.Context, rec *resume.Record) (*resume.Record, error) {
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
	err = p.pool.QueryRow(ctx, `
		INSERT INTO resumes (id, user_id, college_code, name, email, suggested_role, experience, skills, raw_text, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			college_code = EXCLUDED.college_code,
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			suggested_role = EXCLUDED.suggested_role,
			experience = EXCLUDED.experience,
			skills = EXCLUDED.skills,
			raw_text = EXCLUDED.raw_text,
			uploaded_at = EXCLUDED.uploaded_at
		RETURNING id`,
		id, rec.UserID, rec.Namespace, rec.Name, rec.Email, rec.SuggestedRole, rec.Experience, skills, rec.Text, rec.UploadedAt.UTC(),
	).Scan(&storedID)
	if err != nil {
		return nil, fmt.Errorf("upsert resume: %w", err)
	}

	stored := rec.Clone()
	stored.ID = storedID
	return stored, nil
}

func (p *Postgres) GetResumeByUser(ctx context.Context, userID string) (*resume.Record, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, user_id, college_code, name, email, suggested_role, experience, skills, raw_text, uploaded_at
		FROM resumes WHERE user_id = $1`, userID)

	rec, err := scanPostgresResume(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("resume for user %s: %w", userID, matching.ErrNotFound)
	}
	return rec, err
}

func (p *Postgres) AppendHistory(ctx context.Context, entry *matching.HistoryEntry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}

	matches, err := encodeMatches(entry.Matches)
	if err != nil {
		return err
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO match_history (id, user_id, college_code, job_description, matches, created_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6)`,
		entry.ID, entry.UserID, entry.Namespace, entry.JobDescription, matches, entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (p *Postgres) ListHistoryByUser(ctx context.Context, userID string) ([]*matching.HistoryEntry, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, user_id, college_code, job_description, matches, created_at
		FROM match_history WHERE user_id = $1 ORDER BY created_at DESC, seq DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := []*matching.HistoryEntry{}
	for rows.Next() {
		entry, err := scanPostgresHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (p *Postgres) GetHistory(ctx context.Context, id string) (*matching.HistoryEntry, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, user_id, college_code, job_description, matches, created_at
		FROM match_history WHERE id = $1`, id)

	entry, err := scanPostgresHistory(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("history entry %s: %w", id, matching.ErrNotFound)
	}
	return entry, err
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func scanPostgresResume(row pgx.Row) (*resume.Record, error) {
	var (
		rec        resume.Record
		skills     []byte
		uploadedAt time.Time
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Namespace, &rec.Name, &rec.Email, &rec.SuggestedRole,
		&rec.Experience, &skills, &rec.Text, &uploadedAt); err != nil {
		return nil, err
	}

	var err error
	if rec.Skills, err = decodeSkills(skills); err != nil {
		return nil, err
	}
	rec.UploadedAt = uploadedAt.UTC()
	return &rec, nil
}

func scanPostgresHistory(row pgx.Row) (*matching.HistoryEntry, error) {
	var (
		entry     matching.HistoryEntry
		matches   []byte
		createdAt time.Time
	)
	if err := row.Scan(&entry.ID, &entry.UserID, &entry.Namespace, &entry.JobDescription, &matches, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if entry.Matches, err = decodeMatches(matches); err != nil {
		return nil, err
	}
	entry.CreatedAt = createdAt.UTC()
	return &entry, nil
}
