package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/competition-livestream/internal/model"
)

// GroupRepo manages persistence for performing groups.
type GroupRepo struct {
	db *sql.DB
}

// NewGroupRepo constructs a GroupRepo with the given DB handle.
func NewGroupRepo(db *sql.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// Create inserts a new group (seed import).
func (r *GroupRepo) Create(ctx context.Context, g *model.Group) error {
	const q = "INSERT INTO `groups` (id, name, category) VALUES (?, ?, ?)"
	_, err := r.db.ExecContext(ctx, q, g.ID, g.Name, g.Category)
	return err
}

// CreateTx is Create inside the caller's transaction.
func (r *GroupRepo) CreateTx(ctx context.Context, tx *sql.Tx, g *model.Group) error {
	const q = "INSERT INTO `groups` (id, name, category) VALUES (?, ?, ?)"
	_, err := tx.ExecContext(ctx, q, g.ID, g.Name, g.Category)
	return err
}

// GetByID retrieves a group. Returns ErrGroupNotFound when missing.
func (r *GroupRepo) GetByID(ctx context.Context, id string) (*model.Group, error) {
	const q = "SELECT id, name, category, created_at, updated_at FROM `groups` WHERE id = ?"
	var g model.Group
	err := r.db.QueryRowContext(ctx, q, id).Scan(&g.ID, &g.Name, &g.Category, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return &g, nil
}

// ListAll returns every group ordered by name.
func (r *GroupRepo) ListAll(ctx context.Context) ([]model.Group, error) {
	const q = "SELECT id, name, category, created_at, updated_at FROM `groups` ORDER BY name ASC"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.Group
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Category, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteAllTx wipes groups inside the caller's transaction (seed import).
func (r *GroupRepo) DeleteAllTx(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM `groups`")
	return err
}
