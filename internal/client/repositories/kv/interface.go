// Package kv implements the key/value tables that back the session store and
// the UI-state snapshot.
package kv

import "context"

// Table names known to the schema.
const (
	TableSession = "session_kv"
	TableUI      = "ui_kv"
)

// Repository is a byte-oriented key/value store. Get returns (nil, nil) for
// a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
