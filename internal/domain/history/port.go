package history

import (
	"context"
)

// Repository port (interface untuk persistence riwayat scan)
type Repository interface {
	Save(ctx context.Context, e *Entry) error
	Get(ctx context.Context, tenant string, id EntryID) (*Entry, error)
	Latest(ctx context.Context, tenant string, limit int) ([]*Entry, error)
	Summary(ctx context.Context, tenant string, sinceDays int) (Summary, error)

	// paginate klasik, offset + limit
	Paginate(ctx context.Context, tenant string, page, pageSize int) (PaginatedResult, error)
	Count(ctx context.Context, tenant string) (int64, error)
}
