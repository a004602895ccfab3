package model

import "time"

// Apparatus is a discipline a group performs on (floor, bars, ...).
// Seeded once, referenced by passages.
type Apparatus struct {
	ID        string    // apparatus.id
	Code      string    // apparatus.code (short identifier, e.g. "sol")
	Name      string    // apparatus.name
	CreatedAt time.Time // apparatus.created_at
	UpdatedAt time.Time // apparatus.updated_at
}
