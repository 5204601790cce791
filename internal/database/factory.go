package database

import (
	"fmt"
	"os"
	"path/filepath"

	"visitnotes/internal/config"
	"visitnotes/internal/visit"
)

// NewDatabaseFromConfig creates a Database implementation based on the database config type.
// Memory databases are migrated on creation; sqlite databases are left for
// the caller to migrate or check.
func NewDatabaseFromConfig(cfg config.DatabaseConfig) (visit.Database, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		db, err := NewSQLiteDatabase(filepath.Join(cfg.DataDir, "visitnotes.db"))
		if err != nil {
			return nil, err
		}
		return db, nil
	case "memory":
		db, err := NewSQLiteDatabase(":memory:")
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating memory database: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
