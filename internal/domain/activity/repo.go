package activity

import "context"

// Repository is the append-only activity store.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	List(ctx context.Context, entryType string, limit, offset int) ([]*Entry, int, error)
}
