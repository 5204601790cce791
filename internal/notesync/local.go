package notesync

import (
	"encoding/json"
	"fmt"
	"time"

	"visitnotes/internal/model"
)

// localSet is the value stored under the records key of an appointment.
type localSet struct {
	Analyses       []model.AnalysisRecord `json:"analyses"`
	RecordingCount int                    `json:"recordingCount"`
	LastSync       *time.Time             `json:"lastSync,omitempty"`
}

// clearMarker is written when a clear could not enumerate the server copies.
type clearMarker struct {
	ClearedAt time.Time `json:"clearedAt"`
}

// localState reads and writes one appointment's keys in the Store. Read
// failures are logged and reported as empty data. Callers hold the engine
// mutex.
type localState struct {
	store      Store
	logger     Logger
	recordsKey string
	syncKey    string
	clearKey   string
}

func newLocalState(store Store, appointmentID string, logger Logger) *localState {
	return &localState{
		store:      store,
		logger:     logger,
		recordsKey: "ai_analyses_" + appointmentID,
		syncKey:    "synced_" + appointmentID,
		clearKey:   "cleared_" + appointmentID,
	}
}

func (l *localState) readJSON(key string, v any) bool {
	data, ok, err := l.store.Get(key)
	if err != nil {
		l.logger.Warn("reading local store failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		l.logger.Warn("decoding local store value failed", "key", key, "error", err)
		return false
	}
	return true
}

func (l *localState) writeJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := l.store.Set(key, data); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (l *localState) remove(key string) {
	if err := l.store.Remove(key); err != nil {
		l.logger.Warn("removing local store key failed", "key", key, "error", err)
	}
}

func (l *localState) readSet() localSet {
	var set localSet
	if !l.readJSON(l.recordsKey, &set) {
		return localSet{}
	}
	return set
}

func (l *localState) writeSet(set localSet) error {
	return l.writeJSON(l.recordsKey, set)
}

// upsert replaces the record with the same id or appends it, and advances the
// recording counter.
func (l *localState) upsert(rec model.AnalysisRecord) error {
	set := l.readSet()
	replaced := false
	for i := range set.Analyses {
		if set.Analyses[i].ID == rec.ID {
			set.Analyses[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		set.Analyses = append(set.Analyses, rec)
	}
	if rec.ID > set.RecordingCount {
		set.RecordingCount = rec.ID
	}
	return l.writeSet(set)
}

// replaceAll writes recs as the new baseline. recordingCount becomes the
// largest id seen, never lower than before.
func (l *localState) replaceAll(recs []model.AnalysisRecord, lastSync *time.Time) error {
	prev := l.readSet()
	set := localSet{
		Analyses:       make([]model.AnalysisRecord, 0, len(recs)),
		RecordingCount: prev.RecordingCount,
		LastSync:       prev.LastSync,
	}
	for _, rec := range recs {
		set.Analyses = append(set.Analyses, rec.Normalized())
		if rec.ID > set.RecordingCount {
			set.RecordingCount = rec.ID
		}
	}
	if lastSync != nil {
		set.LastSync = lastSync
	}
	return l.writeSet(set)
}

func (l *localState) removeRecord(id int) error {
	set := l.readSet()
	kept := set.Analyses[:0]
	for _, rec := range set.Analyses {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	set.Analyses = kept
	return l.writeSet(set)
}

func (l *localState) readStates() map[int]SyncState {
	states := map[int]SyncState{}
	if !l.readJSON(l.syncKey, &states) || states == nil {
		return map[int]SyncState{}
	}
	return states
}

func (l *localState) writeStates(states map[int]SyncState) {
	if err := l.writeJSON(l.syncKey, states); err != nil {
		l.logger.Warn("writing sync state failed", "key", l.syncKey, "error", err)
	}
}

// updateState applies fn to the state of one id and persists the table.
// fn returns false to delete the entry.
func (l *localState) updateState(id int, fn func(st SyncState, exists bool) (SyncState, bool)) {
	states := l.readStates()
	cur, exists := states[id]
	next, keep := fn(cur, exists)
	if keep {
		states[id] = next
	} else {
		delete(states, id)
	}
	l.writeStates(states)
}

func (l *localState) readClearMarker() *time.Time {
	var m clearMarker
	if !l.readJSON(l.clearKey, &m) {
		return nil
	}
	return &m.ClearedAt
}

func (l *localState) writeClearMarker(at time.Time) {
	if err := l.writeJSON(l.clearKey, clearMarker{ClearedAt: at}); err != nil {
		l.logger.Warn("writing clear marker failed", "key", l.clearKey, "error", err)
	}
}

// clearAll drops every key of the appointment.
func (l *localState) clearAll() {
	l.remove(l.recordsKey)
	l.remove(l.syncKey)
	l.remove(l.clearKey)
}
