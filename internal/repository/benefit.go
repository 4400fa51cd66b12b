package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/climajusto/iacolhe/internal/models"
	"github.com/jmoiron/sqlx"
)

var (
	// ErrNotPending is returned when deciding a request a reviewer already ruled on.
	ErrNotPending = errors.New("benefit request is not pending")
	// ErrDuplicateProtocol is returned when a protocol number is already taken.
	ErrDuplicateProtocol = errors.New("protocol number already in use")
)

type BenefitRepository interface {
	// Create stores the request together with its initial transcript.
	Create(ctx context.Context, req *models.BenefitRequest, transcript []models.Message) error
	GetByID(ctx context.Context, id string) (*models.BenefitRequest, error)
	GetByProtocol(ctx context.Context, protocol string) (*models.BenefitRequest, error)
	LatestForUser(ctx context.Context, userID string) (*models.BenefitRequest, error)
	List(ctx context.Context) ([]models.BenefitRequest, error)
	Decide(ctx context.Context, id string, status models.RequestStatus, notes string, at time.Time) error
	CountByStatus(ctx context.Context) (map[models.RequestStatus]int, error)
}

type benefitRepository struct {
	db *sqlx.DB
}

func NewBenefitRepository(db *sqlx.DB) BenefitRepository {
	return &benefitRepository{db: db}
}

const benefitColumns = `id, user_id, user_name, protocol, benefit_type, status,
	decision_notes, decision_date, created_at, updated_at`

func (r *benefitRepository) Create(ctx context.Context, req *models.BenefitRequest, transcript []models.Message) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO benefit_requests (id, user_id, user_name, protocol, benefit_type, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.ExecContext(ctx, query,
		req.ID,
		req.UserID,
		req.UserName,
		req.Protocol,
		req.BenefitType,
		req.Status,
		req.CreatedAt.UTC(),
		req.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err, "benefit_requests.protocol") {
			return ErrDuplicateProtocol
		}
		return fmt.Errorf("failed to insert benefit request: %w", err)
	}

	if _, err := appendMessages(ctx, tx, req.ID, req.CreatedAt, transcript); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit benefit request: %w", err)
	}

	req.Transcript = append([]models.Message(nil), transcript...)
	return nil
}

func (r *benefitRepository) GetByID(ctx context.Context, id string) (*models.BenefitRequest, error) {
	return r.getOne(ctx, `SELECT `+benefitColumns+` FROM benefit_requests WHERE id = ?`, id)
}

func (r *benefitRepository) GetByProtocol(ctx context.Context, protocol string) (*models.BenefitRequest, error) {
	return r.getOne(ctx, `SELECT `+benefitColumns+` FROM benefit_requests WHERE protocol = ?`, protocol)
}

func (r *benefitRepository) LatestForUser(ctx context.Context, userID string) (*models.BenefitRequest, error) {
	query := `SELECT ` + benefitColumns + ` FROM benefit_requests
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`
	return r.getOne(ctx, query, userID)
}

func (r *benefitRepository) getOne(ctx context.Context, query string, args ...any) (*models.BenefitRequest, error) {
	var req models.BenefitRequest
	err := r.db.GetContext(ctx, &req, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *benefitRepository) List(ctx context.Context) ([]models.BenefitRequest, error) {
	var requests []models.BenefitRequest
	query := `SELECT ` + benefitColumns + ` FROM benefit_requests ORDER BY created_at DESC, rowid DESC`
	if err := r.db.SelectContext(ctx, &requests, query); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *benefitRepository) Decide(ctx context.Context, id string, status models.RequestStatus, notes string, at time.Time) error {
	query := `
		UPDATE benefit_requests
		SET status = ?, decision_notes = ?, decision_date = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	res, err := r.db.ExecContext(ctx, query, status, notes, at.UTC(), at.UTC(), id, models.StatusPending)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotPending
	}
	return nil
}

func (r *benefitRepository) CountByStatus(ctx context.Context) (map[models.RequestStatus]int, error) {
	var rows []struct {
		Status models.RequestStatus `db:"status"`
		Count  int                  `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS n FROM benefit_requests GROUP BY status`); err != nil {
		return nil, err
	}

	counts := make(map[models.RequestStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func isUniqueViolation(err error, column string) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: "+column)
}
