package medicine

import (
	"context"

	"github.com/google/uuid"
)

// Repository abstracts medicine persistence.
type Repository interface {
	Create(ctx context.Context, m *Medicine) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medicine, error)
	GetByName(ctx context.Context, name string) (*Medicine, error)
	Update(ctx context.Context, m *Medicine) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, category, query string, limit, offset int) ([]*Medicine, int, error)
	ListLowStock(ctx context.Context) ([]*Medicine, error)
	// AdjustStock applies delta atomically. Implementations must fail
	// with an invariant error when the result would be negative.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*Medicine, error)
}
