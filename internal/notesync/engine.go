package notesync

import (
	"context"
	"sort"
	"sync"
	"time"

	"visitnotes/internal/model"
)

// Engine keeps one appointment's analysis records in step between the local
// Store and the RemoteStore.
//
// Remote failures never surface as errors: the engine degrades to local-only
// operation and replays unsynced writes on later calls. Foreground methods
// are not meant to be called concurrently with each other; background pushes
// started by Load are supervised and can be awaited with Wait.
type Engine struct {
	appointmentID string
	local         *localState
	remote        RemoteStore
	logger        Logger
	clock         Clock

	mu       sync.Mutex // guards local and onResult
	onResult func(TaskResult)
	wg       sync.WaitGroup
}

// NewEngine creates an engine scoped to appointmentID.
func NewEngine(appointmentID string, store Store, remote RemoteStore, logger Logger, clock Clock) *Engine {
	if logger == nil {
		logger = nopLogger{}
	}
	if clock == nil {
		clock = realClock{}
	}
	return &Engine{
		appointmentID: appointmentID,
		local:         newLocalState(store, appointmentID, logger),
		remote:        remote,
		logger:        logger,
		clock:         clock,
	}
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// AppointmentID returns the appointment this engine is scoped to.
func (e *Engine) AppointmentID() string { return e.appointmentID }

// OnTaskResult registers fn to receive the outcome of every background task.
// fn runs on the background goroutine.
func (e *Engine) OnTaskResult(fn func(TaskResult)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onResult = fn
}

// Wait blocks until all background work has finished.
func (e *Engine) Wait() { e.wg.Wait() }

// NextID returns the id the next recording of this appointment should use.
func (e *Engine) NextID() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.local.readSet().RecordingCount + 1
}

// Save writes rec locally, then tries to store it on the server. A remote
// failure leaves the record marked unsynced for a later Load to replay.
// Pending background pushes finish first so they cannot overwrite rec.
func (e *Engine) Save(ctx context.Context, rec model.AnalysisRecord) SaveResult {
	e.Wait()
	rec = rec.Normalized()

	e.mu.Lock()
	localErr := e.local.upsert(rec)
	e.local.updateState(rec.ID, func(st SyncState, _ bool) (SyncState, bool) {
		return SyncState{Status: StatusUnsynced, LastAttempt: st.LastAttempt}, true
	})
	e.mu.Unlock()

	if localErr != nil {
		e.logger.Warn("saving analysis locally failed", "appointment", e.appointmentID, "id", rec.ID, "error", localErr)
	}

	err := e.push(ctx, rec)
	if err != nil {
		e.logger.Warn("saving analysis to server failed, kept locally", "appointment", e.appointmentID, "id", rec.ID, "error", err)
	} else {
		e.logger.Info("analysis saved", "appointment", e.appointmentID, "id", rec.ID)
	}

	return SaveResult{
		Success: true,
		Synced:  err == nil,
		NextID:  e.NextID(),
	}
}

// Load merges the server and local copies, stores the result as the new
// local baseline and returns it in ascending id order. Records that lost to a
// newer local copy, records never confirmed by the server and deletes not yet
// confirmed are retried in the background.
func (e *Engine) Load(ctx context.Context) []model.AnalysisRecord {
	remoteRecs, err := e.remote.ListAnalyses(ctx, e.appointmentID)
	remoteOK := err == nil
	if err != nil {
		e.logger.Warn("fetching server analyses failed, using local copies", "appointment", e.appointmentID, "error", err)
		remoteRecs = nil
	}

	e.mu.Lock()
	now := e.clock.Now()
	set := e.local.readSet()
	states := e.local.readStates()
	clearedAt := e.local.readClearMarker()

	tombstones := make(map[int]time.Time)
	for id, st := range states {
		if st.Status == StatusPendingDelete {
			tombstones[id] = deletionTime(st)
		}
	}

	outcomes := Merge(remoteRecs, set.Analyses, tombstones, clearedAt)

	merged := make([]model.AnalysisRecord, 0, len(outcomes))
	var resync, pending []model.AnalysisRecord
	var purge []int
	for _, o := range outcomes {
		switch o.Kind {
		case ServerOnly, ServerWins:
			merged = append(merged, o.Record)
			states[o.ID] = SyncState{Status: StatusSynced, LastSync: timePtr(now)}
		case LocalOnly:
			merged = append(merged, o.Record)
			if states[o.ID].Status != StatusSynced {
				pending = append(pending, o.Record)
			}
		case LocalWins:
			merged = append(merged, o.Record)
			st := states[o.ID]
			st.Status = StatusUnsynced
			states[o.ID] = st
			resync = append(resync, o.Record)
		case Suppressed:
			purge = append(purge, o.ID)
			if _, ok := tombstones[o.ID]; !ok && clearedAt != nil {
				states[o.ID] = SyncState{Status: StatusPendingDelete, DeletedAt: timePtr(*clearedAt)}
			}
		}
	}

	if remoteOK {
		onServer := make(map[int]bool, len(remoteRecs))
		for _, rec := range remoteRecs {
			onServer[rec.ID] = true
		}
		for id := range tombstones {
			if !onServer[id] {
				delete(states, id)
			}
		}
	} else {
		for id := range tombstones {
			purge = append(purge, id)
		}
		sort.Ints(purge)
	}

	if err := e.local.replaceAll(merged, timePtr(now)); err != nil {
		e.logger.Warn("writing local baseline failed", "appointment", e.appointmentID, "error", err)
	}
	e.local.writeStates(states)
	if remoteOK && clearedAt != nil {
		e.local.remove(e.local.clearKey)
	}
	e.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	for _, rec := range resync {
		e.spawnPush(bg, TaskResync, rec)
	}
	for _, rec := range pending {
		e.spawnPush(bg, TaskPush, rec)
	}
	for _, id := range purge {
		e.spawnDelete(bg, id)
	}

	e.logger.Debug("analyses loaded", "appointment", e.appointmentID, "count", len(merged), "remote", remoteOK,
		"resync", len(resync), "pending", len(pending), "purge", len(purge))
	return merged
}

// Delete removes the record locally and from the server. An unconfirmed
// server delete leaves a tombstone so that Load neither brings the record
// back nor forgets to retry. It reports whether the server confirmed.
func (e *Engine) Delete(ctx context.Context, id int) bool {
	e.Wait()

	e.mu.Lock()
	now := e.clock.Now()
	if err := e.local.removeRecord(id); err != nil {
		e.logger.Warn("removing analysis locally failed", "appointment", e.appointmentID, "id", id, "error", err)
	}
	e.local.updateState(id, func(SyncState, bool) (SyncState, bool) {
		return SyncState{Status: StatusPendingDelete, DeletedAt: timePtr(now)}, true
	})
	e.mu.Unlock()

	if err := e.deleteRemote(ctx, id); err != nil {
		e.logger.Warn("deleting analysis on server failed, will retry", "appointment", e.appointmentID, "id", id, "error", err)
		return false
	}
	e.logger.Info("analysis deleted", "appointment", e.appointmentID, "id", id)
	return true
}

// ClearAll removes every record of the appointment locally and on the server.
// Individual delete failures are tombstoned and do not stop the rest; if the
// server copies cannot be listed a clear marker suppresses them until a later
// Load can retry.
func (e *Engine) ClearAll(ctx context.Context) {
	e.Wait()

	e.mu.Lock()
	e.local.clearAll()
	e.mu.Unlock()

	recs, err := e.remote.ListAnalyses(ctx, e.appointmentID)
	if err != nil {
		e.logger.Warn("listing server analyses for clear failed, marking cleared", "appointment", e.appointmentID, "error", err)
		e.mu.Lock()
		e.local.writeClearMarker(e.clock.Now())
		e.mu.Unlock()
		return
	}

	var failed int
	for _, rec := range recs {
		if err := e.remote.DeleteAnalysis(ctx, e.appointmentID, rec.ID); err != nil {
			failed++
			e.logger.Warn("deleting analysis on server failed", "appointment", e.appointmentID, "id", rec.ID, "error", err)
			e.mu.Lock()
			now := e.clock.Now()
			e.local.updateState(rec.ID, func(SyncState, bool) (SyncState, bool) {
				return SyncState{Status: StatusPendingDelete, DeletedAt: timePtr(now), LastAttempt: timePtr(now)}, true
			})
			e.mu.Unlock()
		}
	}
	e.logger.Info("analyses cleared", "appointment", e.appointmentID, "server", len(recs), "failed", failed)
}

// Status reports counts from the local store and probes the server.
func (e *Engine) Status(ctx context.Context) Status {
	e.mu.Lock()
	set := e.local.readSet()
	states := e.local.readStates()
	e.mu.Unlock()

	st := Status{LocalCount: len(set.Analyses), LastSync: set.LastSync}
	for _, rec := range set.Analyses {
		if states[rec.ID].Status != StatusSynced {
			st.UnsyncedCount++
		}
	}
	for _, s := range states {
		if s.Status == StatusPendingDelete {
			st.PendingDeletes++
		}
	}
	st.ServerReachable = e.remote.Ping(ctx) == nil
	return st
}

// push stores rec on the server and records the outcome. Tombstones are left
// untouched.
func (e *Engine) push(ctx context.Context, rec model.AnalysisRecord) error {
	err := e.remote.PutAnalysis(ctx, e.appointmentID, rec.Normalized())

	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock.Now()
	e.local.updateState(rec.ID, func(st SyncState, exists bool) (SyncState, bool) {
		if exists && st.Status == StatusPendingDelete {
			return st, true
		}
		if err != nil {
			return SyncState{Status: StatusUnsynced, LastSync: st.LastSync, LastAttempt: timePtr(now)}, true
		}
		return SyncState{Status: StatusSynced, LastSync: timePtr(now)}, true
	})
	return err
}

// deleteRemote deletes id on the server and clears its tombstone on success.
func (e *Engine) deleteRemote(ctx context.Context, id int) error {
	err := e.remote.DeleteAnalysis(ctx, e.appointmentID, id)

	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock.Now()
	e.local.updateState(id, func(st SyncState, exists bool) (SyncState, bool) {
		if !exists || st.Status != StatusPendingDelete {
			return st, exists
		}
		if err != nil {
			st.LastAttempt = timePtr(now)
			return st, true
		}
		return st, false
	})
	return err
}

func (e *Engine) spawnPush(ctx context.Context, kind TaskKind, rec model.AnalysisRecord) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		err := e.push(ctx, rec)
		e.report(TaskResult{Kind: kind, AppointmentID: e.appointmentID, RecordID: rec.ID, Err: err})
	}()
}

func (e *Engine) spawnDelete(ctx context.Context, id int) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		err := e.deleteRemote(ctx, id)
		e.report(TaskResult{Kind: TaskDelete, AppointmentID: e.appointmentID, RecordID: id, Err: err})
	}()
}

func (e *Engine) report(res TaskResult) {
	if res.Err != nil {
		e.logger.Warn("background sync failed", "kind", string(res.Kind), "appointment", res.AppointmentID, "id", res.RecordID, "error", res.Err)
	} else {
		e.logger.Debug("background sync complete", "kind", string(res.Kind), "appointment", res.AppointmentID, "id", res.RecordID)
	}

	e.mu.Lock()
	fn := e.onResult
	e.mu.Unlock()
	if fn != nil {
		fn(res)
	}
}

// deletionTime returns when a tombstone was written. Tombstones without a
// time suppress every server copy.
func deletionTime(st SyncState) time.Time {
	if st.DeletedAt != nil {
		return *st.DeletedAt
	}
	if st.LastAttempt != nil {
		return *st.LastAttempt
	}
	return time.Unix(1<<62, 0)
}
