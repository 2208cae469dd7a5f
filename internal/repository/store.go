// Package repository selects the encounter store backend.
package repository

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/xavierjflanagan/Guardian-sub003/internal/config"
	"github.com/xavierjflanagan/Guardian-sub003/internal/port"
	"github.com/xavierjflanagan/Guardian-sub003/internal/repository/postgres"
	"github.com/xavierjflanagan/Guardian-sub003/internal/repository/sqlite"
)

// Open connects to the configured store and returns its handle with the encounter repository.
func Open(cfg *config.Config) (*sqlx.DB, port.EncounterRepository, error) {
	switch cfg.Store.Driver {
	case "postgres":
		db, err := postgres.NewDB(&cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		return db, postgres.NewEncounterRepo(db), nil
	case "sqlite":
		db, err := sqlite.NewDB(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return db, sqlite.NewEncounterRepo(db), nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}
