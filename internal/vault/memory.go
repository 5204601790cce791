package vault

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"

	"visitnotes/internal/visit"
)

// MemoryVault keeps audio blobs in memory. Useful for tests and for running
// the server without persistent audio. Safe for concurrent use.
type MemoryVault struct {
	name  string
	blobs map[string][]byte
	mu    sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:  name,
		blobs: make(map[string][]byte),
	}
}

// Put stores the blob under key, replacing any previous blob.
func (m *MemoryVault) Put(key string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read audio: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = data
	return nil
}

// Get writes the blob stored under key to w.
func (m *MemoryVault) Get(key string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.blobs[key]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("audio %s: %w", key, visit.ErrNotFound)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write audio: %w", err)
	}
	return nil
}

func (m *MemoryVault) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *MemoryVault) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.blobs))
	for k := range m.blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidateSetup always succeeds for memory vaults.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

var _ visit.AudioVault = (*MemoryVault)(nil)
