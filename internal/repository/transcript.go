package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/climajusto/iacolhe/internal/models"
	"github.com/jmoiron/sqlx"
)

// TranscriptRepository keeps each request's turns as an append-only log keyed by
// (request_id, seq). Sequence numbers are assigned inside the insert transaction,
// so two writers appending to the same request both keep their turns.
type TranscriptRepository interface {
	// Append adds msgs after the current last turn and returns the new transcript length.
	Append(ctx context.Context, requestID string, msgs ...models.Message) (int, error)
	Load(ctx context.Context, requestID string) ([]models.Message, error)
}

type transcriptRepository struct {
	db *sqlx.DB
}

func NewTranscriptRepository(db *sqlx.DB) TranscriptRepository {
	return &transcriptRepository{db: db}
}

func (r *transcriptRepository) Append(ctx context.Context, requestID string, msgs ...models.Message) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	length, err := appendMessages(ctx, tx, requestID, time.Now(), msgs)
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE benefit_requests SET updated_at = ? WHERE id = ?`, time.Now().UTC(), requestID); err != nil {
		return 0, fmt.Errorf("failed to touch benefit request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transcript: %w", err)
	}
	return length, nil
}

func (r *transcriptRepository) Load(ctx context.Context, requestID string) ([]models.Message, error) {
	msgs := []models.Message{}
	query := `SELECT role, content FROM transcript_messages WHERE request_id = ? ORDER BY seq`
	if err := r.db.SelectContext(ctx, &msgs, query, requestID); err != nil {
		return nil, err
	}
	return msgs, nil
}

func appendMessages(ctx context.Context, tx *sqlx.Tx, requestID string, at time.Time, msgs []models.Message) (int, error) {
	var next int
	err := tx.GetContext(ctx, &next, `SELECT COALESCE(MAX(seq) + 1, 0) FROM transcript_messages WHERE request_id = ?`, requestID)
	if err != nil {
		return 0, fmt.Errorf("failed to read transcript position: %w", err)
	}

	query := `INSERT INTO transcript_messages (request_id, seq, role, content, created_at) VALUES (?, ?, ?, ?, ?)`
	for _, m := range msgs {
		if _, err := tx.ExecContext(ctx, query, requestID, next, m.Role, m.Content, at.UTC()); err != nil {
			return 0, fmt.Errorf("failed to append transcript message: %w", err)
		}
		next++
	}
	return next, nil
}
