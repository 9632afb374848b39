package ports

import (
	"context"
	"time"
)

// QueryCache stores encoded query results under string keys.
// Adapters may be backed by memory, SQLite or Redis.
type QueryCache interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeletePrefix removes key itself and every key below it. Keys are
	// "/"-separated segment paths; "issues" matches "issues/all" but not "issues-x".
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}
