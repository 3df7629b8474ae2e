// Package state provides PersistentStore implementations backed by memory,
// a JSON file, or a bbolt database.
package state

import "github.com/user/finsight/internal/types"

// Compile-time interface compliance checks.
var _ types.PersistentStore = (*MemoryStore)(nil)
var _ types.PersistentStore = (*FileStore)(nil)
var _ types.PersistentStore = (*BoltStore)(nil)
