package kv

import (
	"fmt"
	"os"
	"path/filepath"

	"visitnotes/internal/config"
	"visitnotes/internal/notesync"
)

var (
	_ notesync.Store = (*MemoryStore)(nil)
	_ notesync.Store = (*SQLiteStore)(nil)
)

// Store is a notesync.Store that owns resources released by Close.
type Store interface {
	notesync.Store
	Close() error
}

type memoryCloser struct{ *MemoryStore }

func (memoryCloser) Close() error { return nil }

// NewStoreFromConfig creates a local Store based on the store config type.
func NewStoreFromConfig(cfg config.LocalStoreConfig) (Store, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite local store")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating local store directory: %w", err)
		}
		s, err := NewSQLiteStore(filepath.Join(cfg.DataDir, "local.db"))
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return memoryCloser{NewMemoryStore()}, nil
	default:
		return nil, fmt.Errorf("unknown local store type: %s", cfg.Type)
	}
}
