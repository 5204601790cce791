package kv

import (
	"bytes"
	"path/filepath"
	"testing"

	"visitnotes/internal/config"
	"visitnotes/internal/notesync"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStores(t *testing.T) {
	stores := []struct {
		name  string
		store func(t *testing.T) notesync.Store
	}{
		{"memory", func(*testing.T) notesync.Store { return NewMemoryStore() }},
		{"sqlite", func(t *testing.T) notesync.Store { return newSQLiteStore(t) }},
	}

	for _, st := range stores {
		t.Run(st.name, func(t *testing.T) {
			t.Run("missing key", func(t *testing.T) {
				s := st.store(t)
				v, ok, err := s.Get("nope")
				if err != nil {
					t.Fatalf("Get() error = %v", err)
				}
				if ok || v != nil {
					t.Errorf("Get() = %q, %v; want nil, false", v, ok)
				}
			})

			t.Run("set get overwrite remove", func(t *testing.T) {
				s := st.store(t)
				if err := s.Set("k", []byte("one")); err != nil {
					t.Fatalf("Set() error = %v", err)
				}
				if err := s.Set("k", []byte("two")); err != nil {
					t.Fatalf("second Set() error = %v", err)
				}

				v, ok, err := s.Get("k")
				if err != nil || !ok {
					t.Fatalf("Get() = %q, %v, %v", v, ok, err)
				}
				if !bytes.Equal(v, []byte("two")) {
					t.Errorf("Get() = %q, want %q", v, "two")
				}

				if err := s.Remove("k"); err != nil {
					t.Fatalf("Remove() error = %v", err)
				}
				if _, ok, _ := s.Get("k"); ok {
					t.Error("Get() after Remove found the key")
				}
				if err := s.Remove("k"); err != nil {
					t.Errorf("Remove() of missing key error = %v", err)
				}
			})
		})
	}
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	s := NewMemoryStore()
	buf := []byte("abc")
	if err := s.Set("k", buf); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	buf[0] = 'x'

	v, _, _ := s.Get("k")
	if string(v) != "abc" {
		t.Errorf("Get() = %q, want %q", v, "abc")
	}
}

func TestSQLiteStore_PersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if err := s.Set("ai_analyses_a1", []byte(`{"analyses":[]}`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	s.Close()

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen NewSQLiteStore() error = %v", err)
	}
	defer reopened.Close()

	v, ok, err := reopened.Get("ai_analyses_a1")
	if err != nil || !ok {
		t.Fatalf("Get() = %q, %v, %v", v, ok, err)
	}
	if string(v) != `{"analyses":[]}` {
		t.Errorf("Get() = %q", v)
	}
}

func TestNewStoreFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LocalStoreConfig
		wantErr bool
	}{
		{name: "memory", cfg: config.LocalStoreConfig{Type: "memory"}},
		{name: "sqlite", cfg: config.LocalStoreConfig{Type: "sqlite", DataDir: t.TempDir()}},
		{name: "sqlite without data_dir", cfg: config.LocalStoreConfig{Type: "sqlite"}, wantErr: true},
		{name: "unknown", cfg: config.LocalStoreConfig{Type: "cloud"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewStoreFromConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewStoreFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if got != nil {
					t.Error("NewStoreFromConfig() should return nil on error")
				}
				return
			}
			defer got.Close()
			if err := got.Set("k", []byte("v")); err != nil {
				t.Errorf("Set() error = %v", err)
			}
		})
	}
}
