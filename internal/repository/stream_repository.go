// Package repository contains data access logic for the competition
// domain. This file defines the stream repository. A stream's
// current_passage_id is a weak pointer maintained by the stream binder;
// the repository only moves it, it never decides what it should be.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/competition-livestream/internal/model"
)

// StreamRepo manages persistence for streams.
type StreamRepo struct {
	db *sql.DB
}

// NewStreamRepo constructs a StreamRepo with the given DB handle.
func NewStreamRepo(db *sql.DB) *StreamRepo {
	return &StreamRepo{db: db}
}

const streamCols = `id, name, url, location, is_live, current_passage_id, created_at, updated_at`

func scanStream(s interface{ Scan(...any) error }) (model.Stream, error) {
	var st model.Stream
	var cur sql.NullString
	err := s.Scan(&st.ID, &st.Name, &st.URL, &st.Location, &st.IsLive, &cur, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return st, err
	}
	if cur.Valid {
		st.CurrentPassageID = &cur.String
	}
	return st, nil
}

// Create inserts a new stream (seed import).
func (r *StreamRepo) Create(ctx context.Context, st *model.Stream) error {
	const q = `INSERT INTO streams (id, name, url, location, is_live) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, st.ID, st.Name, st.URL, st.Location, st.IsLive)
	return err
}

// CreateTx inserts a new stream inside the caller's transaction (seed
// import).
func (r *StreamRepo) CreateTx(ctx context.Context, tx *sql.Tx, st *model.Stream) error {
	const q = `INSERT INTO streams (id, name, url, location, is_live) VALUES (?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q, st.ID, st.Name, st.URL, st.Location, st.IsLive)
	return err
}

// GetByID retrieves a stream by id. Returns ErrStreamNotFound when no
// row matches.
func (r *StreamRepo) GetByID(ctx context.Context, id string) (*model.Stream, error) {
	const q = `SELECT ` + streamCols + ` FROM streams WHERE id = ?`
	st, err := scanStream(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStreamNotFound
		}
		return nil, err
	}
	return &st, nil
}

// GetByLocation retrieves the stream covering a location.
func (r *StreamRepo) GetByLocation(ctx context.Context, location string) (*model.Stream, error) {
	const q = `SELECT ` + streamCols + ` FROM streams WHERE location = ? LIMIT 1`
	st, err := scanStream(r.db.QueryRowContext(ctx, q, location))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStreamNotFound
		}
		return nil, err
	}
	return &st, nil
}

// ListAll returns every stream ordered by name.
func (r *StreamRepo) ListAll(ctx context.Context) ([]model.Stream, error) {
	const q = `SELECT ` + streamCols + ` FROM streams ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.Stream
	for rows.Next() {
		st, err := scanStream(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SetCurrentPassage points the stream at a location to the given
// passage (nil clears the pointer). The write is conditional on the
// pointer still holding the value the read observed; when a concurrent
// binder moved it in between, zero rows match and the call reports no
// change, leaving convergence to the next tick. Returns the updated
// stream and whether the pointer actually changed, so callers publish
// stream events only on real changes. ErrStreamNotFound when the
// location has no stream.
func (r *StreamRepo) SetCurrentPassage(ctx context.Context, location string, passageID *string) (*model.Stream, bool, error) {
	before, err := r.GetByLocation(ctx, location)
	if err != nil {
		return nil, false, err
	}
	same := (before.CurrentPassageID == nil && passageID == nil) ||
		(before.CurrentPassageID != nil && passageID != nil && *before.CurrentPassageID == *passageID)
	if same {
		return before, false, nil
	}
	// <=> is MySQL's null-safe equality, so a NULL pointer compares
	// like any other expected value.
	const q = `UPDATE streams SET current_passage_id = ? WHERE id = ? AND current_passage_id <=> ?`
	var arg, expected any
	if passageID != nil {
		arg = *passageID
	}
	if before.CurrentPassageID != nil {
		expected = *before.CurrentPassageID
	}
	res, err := r.db.ExecContext(ctx, q, arg, before.ID, expected)
	if err != nil {
		return nil, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if n == 0 {
		return before, false, nil
	}
	before.CurrentPassageID = passageID
	return before, true, nil
}

// Update applies admin edits to a stream. Nil fields are left
// untouched; clearCurrent forces current_passage_id to NULL.
func (r *StreamRepo) Update(ctx context.Context, id string, url *string, isLive *bool, currentPassageID *string, clearCurrent bool) (*model.Stream, error) {
	st, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if url != nil {
		st.URL = *url
	}
	if isLive != nil {
		st.IsLive = *isLive
	}
	if clearCurrent {
		st.CurrentPassageID = nil
	} else if currentPassageID != nil {
		st.CurrentPassageID = currentPassageID
	}
	const q = `UPDATE streams SET url = ?, is_live = ?, current_passage_id = ? WHERE id = ?`
	var cur any
	if st.CurrentPassageID != nil {
		cur = *st.CurrentPassageID
	}
	if _, err := r.db.ExecContext(ctx, q, st.URL, st.IsLive, cur, id); err != nil {
		return nil, err
	}
	return st, nil
}

// DeleteAllTx wipes streams inside the caller's transaction (seed import).
func (r *StreamRepo) DeleteAllTx(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM streams`)
	return err
}
