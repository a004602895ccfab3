package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/competition-livestream/internal/model"
)

// ApparatusRepo manages persistence for apparatus.
type ApparatusRepo struct {
	db *sql.DB
}

// NewApparatusRepo constructs an ApparatusRepo with the given DB handle.
func NewApparatusRepo(db *sql.DB) *ApparatusRepo {
	return &ApparatusRepo{db: db}
}

// CreateTx inserts a new apparatus inside the caller's transaction.
func (r *ApparatusRepo) CreateTx(ctx context.Context, tx *sql.Tx, a *model.Apparatus) error {
	const q = `INSERT INTO apparatus (id, code, name) VALUES (?, ?, ?)`
	_, err := tx.ExecContext(ctx, q, a.ID, a.Code, a.Name)
	return err
}

// GetByID retrieves an apparatus. Returns ErrApparatusNotFound when missing.
func (r *ApparatusRepo) GetByID(ctx context.Context, id string) (*model.Apparatus, error) {
	const q = `SELECT id, code, name, created_at, updated_at FROM apparatus WHERE id = ?`
	var a model.Apparatus
	err := r.db.QueryRowContext(ctx, q, id).Scan(&a.ID, &a.Code, &a.Name, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrApparatusNotFound
		}
		return nil, err
	}
	return &a, nil
}

// ListAll returns every apparatus ordered by code.
func (r *ApparatusRepo) ListAll(ctx context.Context) ([]model.Apparatus, error) {
	const q = `SELECT id, code, name, created_at, updated_at FROM apparatus ORDER BY code ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.Apparatus
	for rows.Next() {
		var a model.Apparatus
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteAllTx wipes apparatus inside the caller's transaction (seed import).
func (r *ApparatusRepo) DeleteAllTx(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM apparatus`)
	return err
}
