package model

import "time"

// Passage status values.  A passage moves SCHEDULED -> LIVE -> FINISHED;
// the scheduler owns the automatic transitions and the admin API may
// force any of them.  Once FINISHED only the score may still change.
const (
	StatusScheduled = "SCHEDULED"
	StatusLive      = "LIVE"
	StatusFinished  = "FINISHED"
)

// ValidStatus reports whether s is one of the three passage statuses.
func ValidStatus(s string) bool {
	return s == StatusScheduled || s == StatusLive || s == StatusFinished
}

// Passage represents one timed performance slot by one group on one
// apparatus at one physical location.  At most one passage per location
// may be LIVE at any instant; the scheduler enforces this, not the DB.
//
// Fields:
//  ID           – primary key (24 hex chars).
//  GroupID      – performing group.
//  ApparatusID  – apparatus the group performs on.
//  StartTime    – when the passage begins.
//  EndTime      – when the passage ends (clamped to "now" on a forced finish).
//  Location     – physical venue/hall name; empty when unassigned.
//  Status       – SCHEDULED, LIVE or FINISHED.
//  Score        – final score, nil until published.
//  IsPublished  – whether the score is publicly visible.
//  NotifiedAt15 – when the 15 minute reminder was dispatched (nil = never).
//  NotifiedAt3  – when the 3 minute reminder was dispatched (nil = never).
type Passage struct {
	ID           string     // passages.id
	GroupID      string     // passages.group_id
	ApparatusID  string     // passages.apparatus_id
	StartTime    time.Time  // passages.start_time
	EndTime      time.Time  // passages.end_time
	Location     string     // passages.location
	Status       string     // passages.status
	Score        *float64   // passages.score
	IsPublished  bool       // passages.is_published
	NotifiedAt15 *time.Time // passages.notified_at_15
	NotifiedAt3  *time.Time // passages.notified_at_3
	CreatedAt    time.Time  // passages.created_at
	UpdatedAt    time.Time  // passages.updated_at
}
