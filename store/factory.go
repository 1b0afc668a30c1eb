package store

import (
	"path/filepath"

	"github.com/pkg/errors"
)

// New creates a Store based on the backend name.
//
// Supported backends:
//
//	"json"   - one JSON file per key in dataDir (default)
//	"sqlite" - SQLite database at dataDir/pos.db
//	"memory" - In-memory (ephemeral, for testing)
func New(backend, dataDir string) (Store, error) {
	switch backend {
	case "json", "":
		return NewJsonFileStore(dataDir)
	case "sqlite":
		return NewSqliteStore(filepath.Join(dataDir, "pos.db"))
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, errors.Errorf("unknown store backend: %q (supported: json, sqlite, memory)", backend)
	}
}
