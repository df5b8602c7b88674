package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Store defines the interface for database operations.
// Implementations should handle connection management and query execution.
type Store interface {
	Connect(ctx context.Context) error
	Close() error
	// Query binds params to the named placeholders of sql and runs it.
	Query(ctx context.Context, sql string, params []Parameter) (pgx.Rows, error)
}
