package remote

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"visitnotes/internal/model"
	"visitnotes/internal/notesync"
)

// Op names a RemoteStore operation for failure injection and call counting.
type Op string

const (
	OpPut    Op = "put"
	OpList   Op = "list"
	OpDelete Op = "delete"
	OpPing   Op = "ping"
)

// ErrUnavailable is returned by MemoryStore while offline or for injected failures.
var ErrUnavailable = errors.New("remote unavailable")

// MemoryStore is an in-process RemoteStore. Safe for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	data     map[string]map[int]model.AnalysisRecord
	offline  bool
	failures map[Op]int
	calls    map[Op]int
}

var _ notesync.RemoteStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty, reachable MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:     make(map[string]map[int]model.AnalysisRecord),
		failures: make(map[Op]int),
		calls:    make(map[Op]int),
	}
}

// SetOffline makes every call fail until turned back on.
func (m *MemoryStore) SetOffline(offline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = offline
}

// FailNext makes the next n calls of op fail.
func (m *MemoryStore) FailNext(op Op, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] += n
}

// Calls returns how many times op was called.
func (m *MemoryStore) Calls(op Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Seed stores records directly, bypassing failure injection.
func (m *MemoryStore) Seed(appointmentID string, recs ...model.AnalysisRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range recs {
		m.appointment(appointmentID)[rec.ID] = rec.Normalized()
	}
}

// Records returns the stored records of the appointment in id order.
func (m *MemoryStore) Records(appointmentID string) []model.AnalysisRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(appointmentID)
}

func (m *MemoryStore) appointment(appointmentID string) map[int]model.AnalysisRecord {
	recs, ok := m.data[appointmentID]
	if !ok {
		recs = make(map[int]model.AnalysisRecord)
		m.data[appointmentID] = recs
	}
	return recs
}

func (m *MemoryStore) sorted(appointmentID string) []model.AnalysisRecord {
	recs := make([]model.AnalysisRecord, 0, len(m.data[appointmentID]))
	for _, rec := range m.data[appointmentID] {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	return recs
}

// enter counts the call and reports an injected failure. Callers hold mu.
func (m *MemoryStore) enter(op Op) error {
	m.calls[op]++
	if m.offline {
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}
	if m.failures[op] > 0 {
		m.failures[op]--
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}
	return nil
}

func (m *MemoryStore) PutAnalysis(_ context.Context, appointmentID string, rec model.AnalysisRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpPut); err != nil {
		return err
	}
	m.appointment(appointmentID)[rec.ID] = rec.Normalized()
	return nil
}

func (m *MemoryStore) ListAnalyses(_ context.Context, appointmentID string) ([]model.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpList); err != nil {
		return nil, err
	}
	return m.sorted(appointmentID), nil
}

func (m *MemoryStore) DeleteAnalysis(_ context.Context, appointmentID string, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpDelete); err != nil {
		return err
	}
	delete(m.appointment(appointmentID), id)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enter(OpPing)
}
