package notesync_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"visitnotes/internal/kv"
	"visitnotes/internal/model"
	"visitnotes/internal/notesync"
	"visitnotes/internal/remote"
	"visitnotes/internal/testutil"
)

const appt = "appt-1"

type harness struct {
	engine *notesync.Engine
	store  *kv.MemoryStore
	remote *remote.MemoryStore
	clock  *testutil.StubClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:  kv.NewMemoryStore(),
		remote: remote.NewMemoryStore(),
		clock:  testutil.FixedClock(),
	}
	h.engine = notesync.NewEngine(appt, h.store, h.remote, nil, h.clock)
	t.Cleanup(h.engine.Wait)
	return h
}

// record returns an analysis stamped offset from the harness clock.
func (h *harness) record(id int, offset time.Duration, summary string) model.AnalysisRecord {
	return model.AnalysisRecord{ID: id, Timestamp: h.clock.Now().Add(offset), Summary: summary}
}

func ids(recs []model.AnalysisRecord) []int {
	out := make([]int, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestEngine_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("online save reaches the server", func(t *testing.T) {
		h := newHarness(t)

		res := h.engine.Save(ctx, h.record(1, -time.Hour, "first"))
		if !res.Success || !res.Synced {
			t.Fatalf("Save() = %+v, want success and synced", res)
		}
		if res.NextID != 2 {
			t.Errorf("NextID = %d, want 2", res.NextID)
		}
		if got := ids(h.remote.Records(appt)); !equalInts(got, []int{1}) {
			t.Errorf("remote ids = %v, want [1]", got)
		}
	})

	t.Run("saving the same record twice is idempotent", func(t *testing.T) {
		h := newHarness(t)
		r := h.record(1, -time.Hour, "first")

		h.engine.Save(ctx, r)
		h.engine.Save(ctx, r)

		if got := len(h.remote.Records(appt)); got != 1 {
			t.Errorf("remote count = %d, want 1", got)
		}
		if got := h.engine.Status(ctx).LocalCount; got != 1 {
			t.Errorf("LocalCount = %d, want 1", got)
		}
		if got := h.engine.NextID(); got != 2 {
			t.Errorf("NextID() = %d, want 2", got)
		}
	})

	t.Run("offline save is kept locally", func(t *testing.T) {
		h := newHarness(t)
		h.remote.SetOffline(true)

		res := h.engine.Save(ctx, h.record(1, -time.Hour, "first"))
		if !res.Success {
			t.Error("Success = false, want true")
		}
		if res.Synced {
			t.Error("Synced = true, want false")
		}
		if res.NextID != 2 {
			t.Errorf("NextID = %d, want 2", res.NextID)
		}

		st := h.engine.Status(ctx)
		if st.LocalCount != 1 || st.UnsyncedCount != 1 || st.ServerReachable {
			t.Errorf("Status() = %+v, want 1 local, 1 unsynced, unreachable", st)
		}
	})

	t.Run("save after load is not overwritten by the background resync", func(t *testing.T) {
		h := newHarness(t)
		gated := newGatedRemote(h.remote)
		engine := notesync.NewEngine(appt, h.store, gated, nil, h.clock)
		t.Cleanup(engine.Wait)

		h.remote.Seed(appt, h.record(1, -2*time.Hour, "srv"))
		h.remote.SetOffline(true)
		engine.Save(ctx, h.record(1, -time.Hour, "v1"))
		h.remote.SetOffline(false)

		gated.arm()
		engine.Load(ctx)

		done := make(chan notesync.SaveResult, 1)
		go func() { done <- engine.Save(ctx, h.record(1, -time.Hour, "v2")) }()
		gated.release()
		res := <-done
		engine.Wait()

		if !res.Synced {
			t.Errorf("Save() = %+v, want synced", res)
		}
		recs := h.remote.Records(appt)
		if len(recs) != 1 || recs[0].Summary != "v2" {
			t.Errorf("remote = %+v, want v2", recs)
		}
		got := engine.Load(ctx)
		if len(got) != 1 || got[0].Summary != "v2" {
			t.Errorf("Load() = %+v, want v2", got)
		}
	})

	t.Run("local failure with server success still succeeds", func(t *testing.T) {
		h := newHarness(t)
		engine := notesync.NewEngine(appt, failingStore{}, h.remote, nil, h.clock)

		res := engine.Save(ctx, h.record(1, -time.Hour, "first"))
		if !res.Success || !res.Synced {
			t.Errorf("Save() = %+v, want success and synced", res)
		}
	})

	t.Run("local and server failure still reports success", func(t *testing.T) {
		h := newHarness(t)
		h.remote.SetOffline(true)
		engine := notesync.NewEngine(appt, failingStore{}, h.remote, nil, h.clock)

		res := engine.Save(ctx, h.record(1, -time.Hour, "first"))
		if !res.Success || res.Synced {
			t.Errorf("Save() = %+v, want success without sync", res)
		}
	})
}

func TestEngine_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("disjoint sets are merged in id order", func(t *testing.T) {
		h := newHarness(t)
		h.remote.Seed(appt, h.record(1, -2*time.Hour, "r1"), h.record(3, -2*time.Hour, "r3"))
		h.remote.SetOffline(true)
		h.engine.Save(ctx, h.record(2, -time.Hour, "l2"))
		h.remote.SetOffline(false)

		got := h.engine.Load(ctx)
		if !equalInts(ids(got), []int{1, 2, 3}) {
			t.Fatalf("Load() ids = %v, want [1 2 3]", ids(got))
		}
		if got[0].Source != model.SourceServer || got[1].Source != model.SourceLocal {
			t.Errorf("sources = %q %q, want server local", got[0].Source, got[1].Source)
		}

		h.engine.Wait()
		if got := ids(h.remote.Records(appt)); !equalInts(got, []int{1, 2, 3}) {
			t.Errorf("remote ids = %v, want [1 2 3]", got)
		}
		if got := h.engine.Status(ctx).UnsyncedCount; got != 0 {
			t.Errorf("UnsyncedCount = %d, want 0", got)
		}
		if got := h.engine.NextID(); got != 4 {
			t.Errorf("NextID() = %d, want 4", got)
		}
	})

	t.Run("newer local copy wins and is pushed", func(t *testing.T) {
		h := newHarness(t)
		h.remote.Seed(appt, h.record(1, -2*time.Hour, "server"))
		h.remote.SetOffline(true)
		h.engine.Save(ctx, h.record(1, -time.Hour, "local"))
		h.remote.SetOffline(false)

		got := h.engine.Load(ctx)
		if len(got) != 1 || got[0].Summary != "local" || got[0].Source != model.SourceLocalNewer {
			t.Fatalf("Load() = %+v, want local-newer copy", got)
		}

		h.engine.Wait()
		recs := h.remote.Records(appt)
		if len(recs) != 1 || recs[0].Summary != "local" {
			t.Errorf("remote = %+v, want the local copy", recs)
		}
	})

	t.Run("newer server copy replaces local", func(t *testing.T) {
		h := newHarness(t)
		h.remote.SetOffline(true)
		h.engine.Save(ctx, h.record(1, -2*time.Hour, "local"))
		h.remote.SetOffline(false)
		h.remote.Seed(appt, h.record(1, -time.Hour, "server"))

		got := h.engine.Load(ctx)
		if len(got) != 1 || got[0].Summary != "server" || got[0].Source != model.SourceServer {
			t.Fatalf("Load() = %+v, want server copy", got)
		}
		h.engine.Wait()
		if calls := h.remote.Calls(remote.OpPut); calls != 1 {
			t.Errorf("put calls = %d, want 1", calls)
		}
	})

	t.Run("offline load returns local copies", func(t *testing.T) {
		h := newHarness(t)
		h.engine.Save(ctx, h.record(1, -time.Hour, "a"))
		h.remote.SetOffline(true)

		got := h.engine.Load(ctx)
		if !equalInts(ids(got), []int{1}) {
			t.Errorf("Load() ids = %v, want [1]", ids(got))
		}
		if got[0].Source != model.SourceLocal {
			t.Errorf("Source = %q, want %q", got[0].Source, model.SourceLocal)
		}
	})

	t.Run("offline writes replay once online", func(t *testing.T) {
		h := newHarness(t)
		h.remote.SetOffline(true)
		h.engine.Save(ctx, h.record(1, -2*time.Hour, "a"))
		h.engine.Save(ctx, h.record(2, -time.Hour, "b"))
		h.engine.Load(ctx)
		h.engine.Wait()
		if got := h.engine.Status(ctx).UnsyncedCount; got != 2 {
			t.Fatalf("UnsyncedCount = %d, want 2", got)
		}

		h.remote.SetOffline(false)
		h.engine.Load(ctx)
		h.engine.Wait()

		if got := ids(h.remote.Records(appt)); !equalInts(got, []int{1, 2}) {
			t.Errorf("remote ids = %v, want [1 2]", got)
		}
		if got := h.engine.Status(ctx).UnsyncedCount; got != 0 {
			t.Errorf("UnsyncedCount = %d, want 0", got)
		}

		got := h.engine.Load(ctx)
		for _, rec := range got {
			if rec.Source != model.SourceServer {
				t.Errorf("record %d Source = %q, want %q", rec.ID, rec.Source, model.SourceServer)
			}
		}
	})

	t.Run("records last sync time", func(t *testing.T) {
		h := newHarness(t)
		h.engine.Load(ctx)

		st := h.engine.Status(ctx)
		if st.LastSync == nil || !st.LastSync.Equal(h.clock.Now()) {
			t.Errorf("LastSync = %v, want %v", st.LastSync, h.clock.Now())
		}
	})

	t.Run("background results are reported", func(t *testing.T) {
		h := newHarness(t)
		var mu sync.Mutex
		var results []notesync.TaskResult
		h.engine.OnTaskResult(func(r notesync.TaskResult) {
			mu.Lock()
			defer mu.Unlock()
			results = append(results, r)
		})

		h.remote.SetOffline(true)
		h.engine.Save(ctx, h.record(1, -time.Hour, "a"))
		h.remote.SetOffline(false)
		h.engine.Load(ctx)
		h.engine.Wait()

		mu.Lock()
		defer mu.Unlock()
		if len(results) != 1 {
			t.Fatalf("len(results) = %d, want 1", len(results))
		}
		r := results[0]
		if r.Kind != notesync.TaskPush || r.RecordID != 1 || r.AppointmentID != appt || r.Err != nil {
			t.Errorf("result = %+v, want successful push of 1", r)
		}
	})
}

func TestEngine_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("delete reaches the server", func(t *testing.T) {
		h := newHarness(t)
		h.engine.Save(ctx, h.record(1, -time.Hour, "a"))

		if !h.engine.Delete(ctx, 1) {
			t.Fatal("Delete() = false, want true")
		}
		if got := len(h.remote.Records(appt)); got != 0 {
			t.Errorf("remote count = %d, want 0", got)
		}
		if got := h.engine.Load(ctx); len(got) != 0 {
			t.Errorf("Load() = %v, want empty", ids(got))
		}
		if got := h.engine.Status(ctx).PendingDeletes; got != 0 {
			t.Errorf("PendingDeletes = %d, want 0", got)
		}
	})

	t.Run("failed delete does not resurrect the record", func(t *testing.T) {
		h := newHarness(t)
		h.engine.Save(ctx, h.record(1, -time.Hour, "a"))
		h.remote.FailNext(remote.OpDelete, 1)

		if h.engine.Delete(ctx, 1) {
			t.Fatal("Delete() = true, want false")
		}
		if got := h.engine.Status(ctx).PendingDeletes; got != 1 {
			t.Errorf("PendingDeletes = %d, want 1", got)
		}

		if got := h.engine.Load(ctx); len(got) != 0 {
			t.Fatalf("Load() = %v, want empty", ids(got))
		}
		h.engine.Wait()

		if got := len(h.remote.Records(appt)); got != 0 {
			t.Errorf("remote count = %d, want 0", got)
		}
		if got := h.engine.Load(ctx); len(got) != 0 {
			t.Errorf("second Load() = %v, want empty", ids(got))
		}
		if got := h.engine.Status(ctx).PendingDeletes; got != 0 {
			t.Errorf("PendingDeletes = %d, want 0", got)
		}
	})

	t.Run("offline delete is retried", func(t *testing.T) {
		h := newHarness(t)
		h.engine.Save(ctx, h.record(1, -time.Hour, "a"))
		h.remote.SetOffline(true)

		h.engine.Delete(ctx, 1)
		h.engine.Load(ctx)
		h.engine.Wait()
		if got := h.engine.Status(ctx).PendingDeletes; got != 1 {
			t.Fatalf("PendingDeletes = %d, want 1", got)
		}

		h.remote.SetOffline(false)
		h.engine.Load(ctx)
		h.engine.Wait()
		if got := len(h.remote.Records(appt)); got != 0 {
			t.Errorf("remote count = %d, want 0", got)
		}
	})

	t.Run("record recreated after the delete is kept", func(t *testing.T) {
		h := newHarness(t)
		h.engine.Save(ctx, h.record(1, -time.Hour, "a"))
		h.remote.SetOffline(true)
		h.engine.Delete(ctx, 1)
		h.remote.SetOffline(false)
		h.remote.Seed(appt, h.record(1, time.Hour, "recreated"))

		got := h.engine.Load(ctx)
		if len(got) != 1 || got[0].Summary != "recreated" {
			t.Errorf("Load() = %+v, want recreated copy", got)
		}
	})
}

func TestEngine_ClearAll(t *testing.T) {
	ctx := context.Background()

	t.Run("clears local and server", func(t *testing.T) {
		h := newHarness(t)
		h.engine.Save(ctx, h.record(1, -2*time.Hour, "a"))
		h.engine.Save(ctx, h.record(2, -time.Hour, "b"))

		h.engine.ClearAll(ctx)

		if got := len(h.remote.Records(appt)); got != 0 {
			t.Errorf("remote count = %d, want 0", got)
		}
		for _, k := range h.store.Keys() {
			if strings.HasSuffix(k, appt) {
				t.Errorf("local key %q still present", k)
			}
		}
		if got := h.engine.Load(ctx); len(got) != 0 {
			t.Errorf("Load() = %v, want empty", ids(got))
		}
	})

	t.Run("other appointments are untouched", func(t *testing.T) {
		h := newHarness(t)
		other := notesync.NewEngine("appt-2", h.store, h.remote, nil, h.clock)
		other.Save(ctx, h.record(1, -time.Hour, "other"))
		h.engine.Save(ctx, h.record(1, -time.Hour, "mine"))

		h.engine.ClearAll(ctx)

		if got := len(h.remote.Records("appt-2")); got != 1 {
			t.Errorf("appt-2 remote count = %d, want 1", got)
		}
		if got := other.Status(ctx).LocalCount; got != 1 {
			t.Errorf("appt-2 LocalCount = %d, want 1", got)
		}
	})

	t.Run("unlisted server copies are suppressed then purged", func(t *testing.T) {
		h := newHarness(t)
		h.engine.Save(ctx, h.record(1, -2*time.Hour, "a"))
		h.engine.Save(ctx, h.record(2, -time.Hour, "b"))
		h.remote.FailNext(remote.OpList, 1)

		h.engine.ClearAll(ctx)
		if got := len(h.remote.Records(appt)); got != 2 {
			t.Fatalf("remote count = %d, want 2", got)
		}

		if got := h.engine.Load(ctx); len(got) != 0 {
			t.Fatalf("Load() = %v, want empty", ids(got))
		}
		h.engine.Wait()

		if got := len(h.remote.Records(appt)); got != 0 {
			t.Errorf("remote count = %d, want 0", got)
		}
		for _, k := range h.store.Keys() {
			if strings.HasPrefix(k, "cleared_") {
				t.Errorf("clear marker %q still present", k)
			}
		}
	})

	t.Run("unconfirmed deletes are tombstoned", func(t *testing.T) {
		h := newHarness(t)
		h.engine.Save(ctx, h.record(1, -2*time.Hour, "a"))
		h.engine.Save(ctx, h.record(2, -time.Hour, "b"))
		h.remote.FailNext(remote.OpDelete, 1)

		h.engine.ClearAll(ctx)
		if got := h.engine.Status(ctx).PendingDeletes; got != 1 {
			t.Fatalf("PendingDeletes = %d, want 1", got)
		}

		if got := h.engine.Load(ctx); len(got) != 0 {
			t.Fatalf("Load() = %v, want empty", ids(got))
		}
		h.engine.Wait()
		if got := len(h.remote.Records(appt)); got != 0 {
			t.Errorf("remote count = %d, want 0", got)
		}
	})
}

func TestEngine_Status(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	h.engine.Save(ctx, h.record(1, -3*time.Hour, "a"))
	h.engine.Save(ctx, h.record(2, -2*time.Hour, "b"))
	h.remote.SetOffline(true)
	h.engine.Save(ctx, h.record(3, -time.Hour, "c"))
	h.engine.Delete(ctx, 1)

	st := h.engine.Status(ctx)
	if st.LocalCount != 2 {
		t.Errorf("LocalCount = %d, want 2", st.LocalCount)
	}
	if st.UnsyncedCount != 1 {
		t.Errorf("UnsyncedCount = %d, want 1", st.UnsyncedCount)
	}
	if st.PendingDeletes != 1 {
		t.Errorf("PendingDeletes = %d, want 1", st.PendingDeletes)
	}
	if st.ServerReachable {
		t.Error("ServerReachable = true, want false")
	}
}

var errDisk = errors.New("disk full")

// gatedRemote holds the first PutAnalysis after arm until release.
type gatedRemote struct {
	*remote.MemoryStore
	armed atomic.Bool
	gate  chan struct{}
}

func newGatedRemote(m *remote.MemoryStore) *gatedRemote {
	return &gatedRemote{MemoryStore: m, gate: make(chan struct{})}
}

func (g *gatedRemote) arm()     { g.armed.Store(true) }
func (g *gatedRemote) release() { close(g.gate) }

func (g *gatedRemote) PutAnalysis(ctx context.Context, appointmentID string, rec model.AnalysisRecord) error {
	if g.armed.CompareAndSwap(true, false) {
		<-g.gate
	}
	return g.MemoryStore.PutAnalysis(ctx, appointmentID, rec)
}

type failingStore struct{}

func (failingStore) Get(string) ([]byte, bool, error) { return nil, false, errDisk }
func (failingStore) Set(string, []byte) error         { return errDisk }
func (failingStore) Remove(string) error              { return errDisk }
