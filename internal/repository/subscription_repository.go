// Package repository contains data access logic for the competition
// domain. This file defines the subscription repository. Subscriptions
// are keyed by endpoint (upsert semantics); favorites live in a side
// table replaced wholesale on every sync, which keeps the
// "favorites contains passage" reminder lookup a simple indexed join.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/competition-livestream/internal/model"
)

// SubscriptionRepo manages persistence for push subscriptions.
type SubscriptionRepo struct {
	db *sql.DB
}

// NewSubscriptionRepo constructs a SubscriptionRepo with the given DB handle.
func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo {
	return &SubscriptionRepo{db: db}
}

// Upsert inserts a subscription or refreshes the channel data of an
// existing one with the same endpoint. Favorites are not touched here;
// the sync API owns them.
func (r *SubscriptionRepo) Upsert(ctx context.Context, s *model.Subscription) error {
	const q = `INSERT INTO subscriptions (id, type, endpoint, key_p256dh, key_auth)
               VALUES (?, ?, ?, ?, ?)
               ON DUPLICATE KEY UPDATE type = VALUES(type),
                                       key_p256dh = VALUES(key_p256dh),
                                       key_auth = VALUES(key_auth)`
	_, err := r.db.ExecContext(ctx, q, s.ID, s.Type, s.Endpoint, s.KeyP256dh, s.KeyAuth)
	return err
}

// GetByEndpoint retrieves a subscription and its favorites.
func (r *SubscriptionRepo) GetByEndpoint(ctx context.Context, endpoint string) (*model.Subscription, error) {
	const q = `SELECT id, type, endpoint, key_p256dh, key_auth, created_at, updated_at
               FROM subscriptions WHERE endpoint = ?`
	var s model.Subscription
	err := r.db.QueryRowContext(ctx, q, endpoint).Scan(
		&s.ID, &s.Type, &s.Endpoint, &s.KeyP256dh, &s.KeyAuth, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	favs, err := r.favoritesOf(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	s.Favorites = favs
	return &s, nil
}

func (r *SubscriptionRepo) favoritesOf(ctx context.Context, subID string) ([]string, error) {
	const q = `SELECT passage_id FROM subscription_favorites WHERE subscription_id = ?`
	rows, err := r.db.QueryContext(ctx, q, subID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var favs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		favs = append(favs, id)
	}
	return favs, rows.Err()
}

// ReplaceFavorites swaps the favorites of the subscription with the
// given endpoint. Returns ErrSubscriptionNotFound for unknown
// endpoints so the API can answer 404 without a prior read.
func (r *SubscriptionRepo) ReplaceFavorites(ctx context.Context, endpoint string, favorites []string) error {
	sub, err := r.GetByEndpoint(ctx, endpoint)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM subscription_favorites WHERE subscription_id = ?`, sub.ID); err != nil {
		return err
	}
	const ins = `INSERT INTO subscription_favorites (subscription_id, passage_id) VALUES (?, ?)`
	for _, pid := range favorites {
		if _, err := tx.ExecContext(ctx, ins, sub.ID, pid); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListByFavorite returns every subscription that favorited the given
// passage. This is the reminder fan-out query.
func (r *SubscriptionRepo) ListByFavorite(ctx context.Context, passageID string) ([]model.Subscription, error) {
	const q = `SELECT s.id, s.type, s.endpoint, s.key_p256dh, s.key_auth, s.created_at, s.updated_at
               FROM subscriptions s
               JOIN subscription_favorites f ON f.subscription_id = s.id
               WHERE f.passage_id = ?`
	rows, err := r.db.QueryContext(ctx, q, passageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.Subscription
	for rows.Next() {
		var s model.Subscription
		if err := rows.Scan(&s.ID, &s.Type, &s.Endpoint, &s.KeyP256dh, &s.KeyAuth, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteByEndpoint garbage collects a subscription whose channel
// reported the endpoint permanently gone. Deleting an already-deleted
// endpoint is a no-op, so concurrent cleanups are safe.
func (r *SubscriptionRepo) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	const q = `DELETE FROM subscriptions WHERE endpoint = ?`
	_, err := r.db.ExecContext(ctx, q, endpoint)
	return err
}
