package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/climajusto/iacolhe/internal/models"
	"github.com/jmoiron/sqlx"
)

// DocumentRepository stores analyses. Rows are written once and never changed.
type DocumentRepository interface {
	Create(ctx context.Context, a *models.DocumentAnalysis) error
	GetByID(ctx context.Context, id string) (*models.DocumentAnalysis, error)
	ListByRequest(ctx context.Context, requestID string) ([]models.DocumentAnalysis, error)
	Stats(ctx context.Context) (DocumentCounts, error)
}

type DocumentCounts struct {
	Total   int `db:"total"`
	Valid   int `db:"valid"`
	Invalid int `db:"invalid"`
}

type documentRepository struct {
	db *sqlx.DB
}

func NewDocumentRepository(db *sqlx.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, a *models.DocumentAnalysis) error {
	query := `
		INSERT INTO document_analyses (id, request_id, document_name, content_type, storage_key, analysis_result, is_valid, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.RequestID,
		a.DocumentName,
		a.ContentType,
		a.StorageKey,
		a.AnalysisResult,
		a.IsValid,
		a.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert document analysis: %w", err)
	}
	return nil
}

func (r *documentRepository) GetByID(ctx context.Context, id string) (*models.DocumentAnalysis, error) {
	var a models.DocumentAnalysis
	query := `
		SELECT id, request_id, document_name, content_type, storage_key, analysis_result, is_valid, created_at
		FROM document_analyses
		WHERE id = ?
	`
	err := r.db.GetContext(ctx, &a, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *documentRepository) ListByRequest(ctx context.Context, requestID string) ([]models.DocumentAnalysis, error) {
	analyses := []models.DocumentAnalysis{}
	query := `
		SELECT id, request_id, document_name, content_type, storage_key, analysis_result, is_valid, created_at
		FROM document_analyses
		WHERE request_id = ?
		ORDER BY created_at, rowid
	`
	if err := r.db.SelectContext(ctx, &analyses, query, requestID); err != nil {
		return nil, err
	}
	return analyses, nil
}

func (r *documentRepository) Stats(ctx context.Context) (DocumentCounts, error) {
	var counts DocumentCounts
	query := `
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN is_valid = 1 THEN 1 ELSE 0 END), 0) AS valid,
		       COALESCE(SUM(CASE WHEN is_valid = 1 THEN 0 ELSE 1 END), 0) AS invalid
		FROM document_analyses
	`
	if err := r.db.GetContext(ctx, &counts, query); err != nil {
		return DocumentCounts{}, err
	}
	return counts, nil
}
