package repository

import (
	"context"
	"time"

	"github.com/climajusto/iacolhe/internal/utils"
	"github.com/jmoiron/sqlx"
)

type RoleRepository interface {
	HasRole(ctx context.Context, userID, role string) (bool, error)
	// Grant is idempotent.
	Grant(ctx context.Context, userID, role string) error
	Revoke(ctx context.Context, userID, role string) (bool, error)
}

type roleRepository struct {
	db *sqlx.DB
}

func NewRoleRepository(db *sqlx.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) HasRole(ctx context.Context, userID, role string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM user_roles WHERE user_id = ? AND role = ?`, userID, role)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *roleRepository) Grant(ctx context.Context, userID, role string) error {
	query := `INSERT OR IGNORE INTO user_roles (id, user_id, role, created_at) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, utils.GenerateID(), userID, role, time.Now().UTC())
	return err
}

func (r *roleRepository) Revoke(ctx context.Context, userID, role string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = ? AND role = ?`, userID, role)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
