// Package metadata is a small key/value repository over the client's local
// SQLite database. The session token store is built on top of it.
package metadata

import (
	"context"
)

// Repository reads and writes opaque values by key.
// Get returns common.ErrNotFound for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
