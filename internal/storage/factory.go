package storage

import (
	"fmt"
	"os"
	"strings"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// DefaultStoreKind honors GANNET_STORE and falls back to sqlite.
func DefaultStoreKind() string {
	if kind := strings.TrimSpace(os.Getenv("GANNET_STORE")); kind != "" {
		return kind
	}
	return StoreSQLite
}

func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", StoreMemory:
		return NewMemoryStore(), nil
	case StoreSQLite:
		return NewSQLiteStore(sqlitePath), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
