package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nebulatools/sleepplan/internal/db"
	"github.com/nebulatools/sleepplan/internal/domain"
)

// SQLiteTranscriptRepo implements TranscriptRepo using a SQLite database.
type SQLiteTranscriptRepo struct {
	db db.DBTX
}

// NewSQLiteTranscriptRepo creates a new SQLiteTranscriptRepo.
func NewSQLiteTranscriptRepo(conn db.DBTX) *SQLiteTranscriptRepo {
	return &SQLiteTranscriptRepo{db: conn}
}

func (r *SQLiteTranscriptRepo) Create(ctx context.Context, tr *domain.Transcript) error {
	query := `INSERT INTO transcripts (id, child_id, provider, summary, created_at)
		VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		tr.ID, tr.ChildID, tr.Provider, tr.Summary, timeToString(tr.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting transcript: %w", err)
	}
	return nil
}

func (r *SQLiteTranscriptRepo) GetByID(ctx context.Context, id string) (*domain.Transcript, error) {
	query := `SELECT id, child_id, provider, summary, created_at FROM transcripts WHERE id = ?`
	var tr domain.Transcript
	var createdAt string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&tr.ID, &tr.ChildID, &tr.Provider, &tr.Summary, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transcript: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning transcript: %w", err)
	}
	tr.CreatedAt = parseTime(createdAt)
	return &tr, nil
}

func (r *SQLiteTranscriptRepo) ResolveCreatedAt(ctx context.Context, id string) (time.Time, error) {
	query := `SELECT created_at FROM transcripts WHERE id = ?`
	var createdAt string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("transcript: %w", ErrNotFound)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("resolving transcript timestamp: %w", err)
	}
	return parseTime(createdAt), nil
}
