// Package repository contains data access logic for the competition
// domain. This file holds the passage repository: time-relative queries
// driving the scheduler, conditional status writes, score publication
// and the reminder tracking markers.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/competition-livestream/internal/model"
)

// PassageDetail is a passage joined with the names the event payloads
// and notifications denormalize: group name, apparatus code and name.
type PassageDetail struct {
	model.Passage
	GroupName     string
	ApparatusCode string
	ApparatusName string
}

// Reminder tracking columns. SetNotified only accepts these values so
// callers can never interpolate arbitrary column names into SQL.
const (
	NotifiedCol15 = "notified_at_15"
	NotifiedCol3  = "notified_at_3"
)

// PassageRepo manages persistence for passages.
type PassageRepo struct {
	db *sql.DB
}

// NewPassageRepo constructs a PassageRepo with the given DB handle.
func NewPassageRepo(db *sql.DB) *PassageRepo {
	return &PassageRepo{db: db}
}

// DB exposes the underlying sql.DB. It allows callers to begin
// transactions spanning multiple repositories (the seed import uses it).
func (r *PassageRepo) DB() *sql.DB {
	return r.db
}

const passageDetailCols = `p.id, p.group_id, p.apparatus_id, p.start_time, p.end_time,
       p.location, p.status, p.score, p.is_published, p.notified_at_15, p.notified_at_3,
       p.created_at, p.updated_at, g.name, a.code, a.name`

const passageDetailFrom = `FROM passages p
       JOIN ` + "`groups`" + ` g ON g.id = p.group_id
       JOIN apparatus a ON a.id = p.apparatus_id`

func scanPassageDetail(s interface{ Scan(...any) error }) (PassageDetail, error) {
	var d PassageDetail
	var score sql.NullFloat64
	var n15, n3 sql.NullTime
	err := s.Scan(
		&d.ID, &d.GroupID, &d.ApparatusID, &d.StartTime, &d.EndTime,
		&d.Location, &d.Status, &score, &d.IsPublished, &n15, &n3,
		&d.CreatedAt, &d.UpdatedAt, &d.GroupName, &d.ApparatusCode, &d.ApparatusName,
	)
	if err != nil {
		return d, err
	}
	if score.Valid {
		d.Score = &score.Float64
	}
	if n15.Valid {
		t := n15.Time
		d.NotifiedAt15 = &t
	}
	if n3.Valid {
		t := n3.Time
		d.NotifiedAt3 = &t
	}
	return d, nil
}

func (r *PassageRepo) queryDetails(ctx context.Context, q string, args ...any) ([]PassageDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []PassageDetail
	for rows.Next() {
		d, err := scanPassageDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Create inserts a new passage. The caller provides the ID (24 hex
// chars from model.NewID); timestamps default in the DB.
func (r *PassageRepo) Create(ctx context.Context, p *model.Passage) error {
	const q = `INSERT INTO passages (id, group_id, apparatus_id, start_time, end_time, location, status, is_published)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	status := p.Status
	if status == "" {
		status = model.StatusScheduled
	}
	_, err := r.db.ExecContext(ctx, q, p.ID, p.GroupID, p.ApparatusID,
		p.StartTime.UTC(), p.EndTime.UTC(), p.Location, status, p.IsPublished)
	return err
}

// CreateTx is Create inside the caller's transaction (seed import).
func (r *PassageRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Passage) error {
	const q = `INSERT INTO passages (id, group_id, apparatus_id, start_time, end_time, location, status, is_published)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	status := p.Status
	if status == "" {
		status = model.StatusScheduled
	}
	_, err := tx.ExecContext(ctx, q, p.ID, p.GroupID, p.ApparatusID,
		p.StartTime.UTC(), p.EndTime.UTC(), p.Location, status, p.IsPublished)
	return err
}

// GetDetail retrieves one passage with its group and apparatus names.
// Returns ErrPassageNotFound when no row matches.
func (r *PassageRepo) GetDetail(ctx context.Context, id string) (*PassageDetail, error) {
	q := `SELECT ` + passageDetailCols + ` ` + passageDetailFrom + ` WHERE p.id = ?`
	d, err := scanPassageDetail(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPassageNotFound
		}
		return nil, err
	}
	return &d, nil
}

// DueToGoLive returns SCHEDULED passages whose start time has been
// reached. The scheduler promotes each through SetStatusIf so a row
// that changed since this read is skipped, not clobbered.
func (r *PassageRepo) DueToGoLive(ctx context.Context, now time.Time) ([]PassageDetail, error) {
	q := `SELECT ` + passageDetailCols + ` ` + passageDetailFrom + `
          WHERE p.status = ? AND p.start_time <= ? ORDER BY p.start_time ASC`
	return r.queryDetails(ctx, q, model.StatusScheduled, now.UTC())
}

// DueToFinish returns LIVE passages whose end time has passed.
func (r *PassageRepo) DueToFinish(ctx context.Context, now time.Time) ([]PassageDetail, error) {
	q := `SELECT ` + passageDetailCols + ` ` + passageDetailFrom + `
          WHERE p.status = ? AND p.end_time <= ? ORDER BY p.end_time ASC`
	return r.queryDetails(ctx, q, model.StatusLive, now.UTC())
}

// LiveAtLocation returns every LIVE passage at a location, excluding
// the given id when non-empty. Used by conflict resolution; a healthy
// store returns at most one row.
func (r *PassageRepo) LiveAtLocation(ctx context.Context, location, excludeID string) ([]PassageDetail, error) {
	q := `SELECT ` + passageDetailCols + ` ` + passageDetailFrom + `
          WHERE p.status = ? AND p.location = ? AND p.id <> ?`
	return r.queryDetails(ctx, q, model.StatusLive, location, excludeID)
}

// NextEligibleAt returns the earliest SCHEDULED passage at a location
// whose start time has been reached, or nil when there is none.
func (r *PassageRepo) NextEligibleAt(ctx context.Context, location string, now time.Time) (*PassageDetail, error) {
	q := `SELECT ` + passageDetailCols + ` ` + passageDetailFrom + `
          WHERE p.status = ? AND p.location = ? AND p.start_time <= ?
          ORDER BY p.start_time ASC LIMIT 1`
	d, err := scanPassageDetail(r.db.QueryRowContext(ctx, q, model.StatusScheduled, location, now.UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// SetStatusIf performs the compare-and-set every transition goes
// through: the status column only changes when it still equals the
// expected prior value. When endTime is non-nil the end time is also
// clamped, but never moved past a value already in the past (a passage
// finished early keeps its forced end time on re-evaluation).
// Returns ErrStale when the precondition no longer held.
func (r *PassageRepo) SetStatusIf(ctx context.Context, id, from, to string, endTime *time.Time) error {
	var res sql.Result
	var err error
	if endTime != nil {
		const q = `UPDATE passages SET status = ?, end_time = LEAST(end_time, ?) WHERE id = ? AND status = ?`
		res, err = r.db.ExecContext(ctx, q, to, endTime.UTC(), id, from)
	} else {
		const q = `UPDATE passages SET status = ? WHERE id = ? AND status = ?`
		res, err = r.db.ExecContext(ctx, q, to, id, from)
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStale
	}
	return nil
}

// ForceStatus sets the status unconditionally. Only the admin override
// path uses it; the automatic clock always goes through SetStatusIf.
func (r *PassageRepo) ForceStatus(ctx context.Context, id, to string, endTime *time.Time) error {
	var res sql.Result
	var err error
	if endTime != nil {
		const q = `UPDATE passages SET status = ?, end_time = LEAST(end_time, ?) WHERE id = ?`
		res, err = r.db.ExecContext(ctx, q, to, endTime.UTC(), id)
	} else {
		const q = `UPDATE passages SET status = ? WHERE id = ?`
		res, err = r.db.ExecContext(ctx, q, to, id)
	}
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPassageNotFound
	}
	return nil
}

// SetScore writes the score, forces FINISHED and publishes the result.
// Scores remain mutable after FINISHED; everything else is frozen.
func (r *PassageRepo) SetScore(ctx context.Context, id string, score float64) error {
	const q = `UPDATE passages SET score = ?, status = ?, is_published = TRUE WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, score, model.StatusFinished, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPassageNotFound
	}
	return nil
}

// RankOf returns the 1-based rank of a passage among published
// finished passages ordered by score descending, or 0 when the passage
// is not ranked.
func (r *PassageRepo) RankOf(ctx context.Context, id string) (int, error) {
	const q = `SELECT COALESCE(rnk, 0) FROM (
                 SELECT id, RANK() OVER (ORDER BY score DESC) AS rnk
                 FROM passages WHERE status = ? AND is_published = TRUE AND score IS NOT NULL
               ) ranked WHERE id = ?`
	var rank int
	err := r.db.QueryRowContext(ctx, q, model.StatusFinished, id).Scan(&rank)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return rank, err
}

// InReminderWindow returns passages whose start time falls inside
// [from, to] and whose tracking column is still unset. col must be one
// of NotifiedCol15 / NotifiedCol3.
func (r *PassageRepo) InReminderWindow(ctx context.Context, col string, from, to time.Time) ([]PassageDetail, error) {
	if col != NotifiedCol15 && col != NotifiedCol3 {
		return nil, fmt.Errorf("invalid reminder column %q", col)
	}
	q := `SELECT ` + passageDetailCols + ` ` + passageDetailFrom + `
          WHERE p.start_time >= ? AND p.start_time <= ? AND p.` + col + ` IS NULL`
	return r.queryDetails(ctx, q, from.UTC(), to.UTC())
}

// SetNotified stamps a reminder tracking column. The stamp is the sole
// deduplication mechanism for reminders, so it is written even when a
// passage had no interested subscribers.
func (r *PassageRepo) SetNotified(ctx context.Context, id, col string, at time.Time) error {
	if col != NotifiedCol15 && col != NotifiedCol3 {
		return fmt.Errorf("invalid reminder column %q", col)
	}
	q := `UPDATE passages SET ` + col + ` = ? WHERE id = ? AND ` + col + ` IS NULL`
	_, err := r.db.ExecContext(ctx, q, at.UTC(), id)
	return err
}

// ListSchedule returns all passages ordered by start time. When day is
// non-zero, only passages starting on that UTC calendar day are
// returned.
func (r *PassageRepo) ListSchedule(ctx context.Context, day time.Time) ([]PassageDetail, error) {
	if day.IsZero() {
		q := `SELECT ` + passageDetailCols + ` ` + passageDetailFrom + ` ORDER BY p.start_time ASC`
		return r.queryDetails(ctx, q)
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	q := `SELECT ` + passageDetailCols + ` ` + passageDetailFrom + `
          WHERE p.start_time >= ? AND p.start_time < ? ORDER BY p.start_time ASC`
	return r.queryDetails(ctx, q, start, end)
}

// ListLive returns every currently LIVE passage.
func (r *PassageRepo) ListLive(ctx context.Context) ([]PassageDetail, error) {
	q := `SELECT ` + passageDetailCols + ` ` + passageDetailFrom + `
          WHERE p.status = ? ORDER BY p.start_time ASC`
	return r.queryDetails(ctx, q, model.StatusLive)
}

// ListResults returns published finished passages ordered by score
// descending, i.e. the public ranking.
func (r *PassageRepo) ListResults(ctx context.Context) ([]PassageDetail, error) {
	q := `SELECT ` + passageDetailCols + ` ` + passageDetailFrom + `
          WHERE p.status = ? AND p.is_published = TRUE AND p.score IS NOT NULL
          ORDER BY p.score DESC`
	return r.queryDetails(ctx, q, model.StatusFinished)
}

// DeleteAllTx wipes passages inside the caller's transaction. Used by
// the seed import before re-inserting a fresh schedule.
func (r *PassageRepo) DeleteAllTx(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM passages`)
	return err
}
