package core

import (
	"fmt"

	"fieldplot/internal/config"
	"fieldplot/internal/infra/persistence/memory"
	"fieldplot/internal/infra/persistence/postgres"
	"fieldplot/internal/infra/persistence/sqlite"
	"fieldplot/pkg/domain"
)

// StorageDriver identifies a concrete session store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenSessionStore selects a backend from the FIELDPLOT_* environment
// (see internal/config). Defaults to sqlite when unset.
func OpenSessionStore() (domain.SessionStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return OpenSessionStoreWith(cfg)
}

// OpenSessionStoreWith selects a backend from an already loaded Config.
func OpenSessionStoreWith(cfg *config.Config) (domain.SessionStore, error) {
	switch StorageDriver(cfg.StorageDriver) {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case StoragePostgres:
		return postgres.NewStore(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.StorageDriver)
	}
}
