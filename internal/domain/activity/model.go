package activity

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one append-only audit record. Entries are write-once: nothing
// updates or deletes them.
type Entry struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Type        string     `db:"type" json:"type"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description,omitempty"`
	Actor       string     `db:"actor" json:"actor,omitempty"`
	EntityID    *uuid.UUID `db:"entity_id" json:"entity_id,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}
