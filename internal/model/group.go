package model

import "time"

// Group is a performing team.  Groups are seeded by the admin import and
// referenced by passages; they never change during a competition.
type Group struct {
	ID        string    // groups.id
	Name      string    // groups.name
	Category  string    // groups.category
	CreatedAt time.Time // groups.created_at
	UpdatedAt time.Time // groups.updated_at
}
