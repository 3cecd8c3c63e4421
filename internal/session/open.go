package session

import (
	"context"
	"fmt"
	"log/slog"
)

// OpenStore opens the server-side store named by backend. dbPath is ignored
// for the memory backend.
func OpenStore(ctx context.Context, backend, dbPath string, logger *slog.Logger) (Store, error) {
	switch backend {
	case BackendSQLite:
		return NewSQLiteStore(ctx, dbPath, logger)
	case BackendBolt:
		return NewBoltStore(dbPath)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("session: %q is not a server-side backend", backend)
	}
}
