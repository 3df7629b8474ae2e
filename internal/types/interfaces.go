// internal/types/interfaces.go
package types

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by PersistentStore.Get for missing keys.
var ErrKeyNotFound = errors.New("key not found")

// PersistentStore is the small key-value store that session and status
// state survive reloads in.
type PersistentStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Keys used in the PersistentStore.
const (
	KeySession = "session"
	KeyStatus  = "access_status"
)
