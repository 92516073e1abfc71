// Package backend selects and builds the persistence gateway the point of
// sale runs on.
package backend

import (
	"context"

	"conto/internal/store"
)

// CleanupFunc releases backend resources at shutdown.
type CleanupFunc func() error

// BackendResult bundles the two gateway ports with their cleanup.
type BackendResult struct {
	Catalog store.Catalog
	Ledger  store.Ledger
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Type BackendType

	// kv specific
	DataDir string

	// sqlite specific
	SQLiteDBPath string
}

// BackendType represents the type of backend.
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	KVBackend     BackendType = "kv"
	SQLiteBackend BackendType = "sqlite"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is known.
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, KVBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
