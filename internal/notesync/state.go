package notesync

import (
	"context"
	"time"

	"visitnotes/internal/model"
)

// Store is durable per-device key-value storage.
// Get reports ok=false when the key is absent.
type Store interface {
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
	Remove(key string) error
}

// RemoteStore is the server's analysis collection as seen by the engine.
// Implementations return an error for any transport failure or non-success
// response. DeleteAnalysis treats a record that is already absent as success.
type RemoteStore interface {
	PutAnalysis(ctx context.Context, appointmentID string, rec model.AnalysisRecord) error
	ListAnalyses(ctx context.Context, appointmentID string) ([]model.AnalysisRecord, error)
	DeleteAnalysis(ctx context.Context, appointmentID string, id int) error
	Ping(ctx context.Context) error
}

// Logger provides structured logging. The args follow slog conventions.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Clock abstracts time retrieval.
type Clock interface {
	Now() time.Time
}

// SyncStatus is the replication state of one record.
type SyncStatus string

const (
	StatusSynced        SyncStatus = "synced"
	StatusUnsynced      SyncStatus = "unsynced"
	StatusPendingDelete SyncStatus = "pending_delete"
)

// SyncState tracks one record id. A record with no entry is treated as
// unsynced. A pending_delete entry is a tombstone: the record is gone locally
// and its remote delete has not been confirmed.
type SyncState struct {
	Status      SyncStatus `json:"state"`
	LastSync    *time.Time `json:"lastSync,omitempty"`
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

// SaveResult reports the outcome of Save. Success is always true: local and
// remote failures are logged, never returned. Synced means the server has it.
type SaveResult struct {
	Success bool
	Synced  bool
	NextID  int
}

// Status summarizes the sync state of one appointment.
type Status struct {
	LocalCount      int
	UnsyncedCount   int
	PendingDeletes  int
	ServerReachable bool
	LastSync        *time.Time
}

// TaskKind names a kind of background work.
type TaskKind string

const (
	TaskPush   TaskKind = "push"
	TaskResync TaskKind = "resync"
	TaskDelete TaskKind = "delete"
)

// TaskResult is the outcome of one background push or delete.
type TaskResult struct {
	Kind          TaskKind
	AppointmentID string
	RecordID      int
	Err           error
}

func timePtr(t time.Time) *time.Time { return &t }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
