package cache

import (
	"testing"

	"github.com/spf13/afero"
)

func newTestTiered(t *testing.T, fs afero.Fs) *Tiered {
	t.Helper()
	return NewTiered(NewMemory(1<<20), newTestStore(t, fs, 3))
}

func TestTiered_PromotesDiskHits(t *testing.T) {
	tiered := newTestTiered(t, afero.NewMemMapFs())
	key := testKey("a.mp4")
	want := sineEnvelope(100)
	tiered.Store().Put(key, want)

	got, ok := tiered.Get(key)
	if !ok || !got.Equal(want) {
		t.Fatalf("expected disk hit, got %d points (hit=%v)", len(got), ok)
	}
	if n := tiered.Memory().Stats().Entries; n != 1 {
		t.Fatalf("disk hit not promoted: %d memory entries", n)
	}

	if _, ok := tiered.Get(key); !ok {
		t.Fatal("expected memory hit")
	}
	if hits := tiered.Memory().Stats().Hits; hits != 1 {
		t.Errorf("memory hits: got %d, want 1", hits)
	}
}

func TestTiered_PutWritesThrough(t *testing.T) {
	fs := afero.NewMemMapFs()
	tiered := newTestTiered(t, fs)
	key := testKey("a.mp4")

	if !tiered.Put(key, sineEnvelope(10)) {
		t.Fatal("Put reported failure on a writable cache")
	}
	if ok, _ := afero.Exists(fs, tiered.Store().Path(key)); !ok {
		t.Error("entry not written to disk")
	}
	if n := tiered.Memory().Stats().Entries; n != 1 {
		t.Errorf("memory entries: got %d, want 1", n)
	}
}

func TestTiered_UnwritableCacheAlwaysMisses(t *testing.T) {
	tiered := newTestTiered(t, afero.NewReadOnlyFs(afero.NewMemMapFs()))
	key := testKey("a.mp4")

	if tiered.Put(key, sineEnvelope(10)) {
		t.Error("Put reported success on a read-only cache")
	}
	if _, ok := tiered.Get(key); ok {
		t.Error("expected miss after failed write")
	}
	if n := tiered.Memory().Stats().Entries; n != 0 {
		t.Errorf("memory populated despite failed write: %d entries", n)
	}
}

func TestTiered_ClearAll(t *testing.T) {
	tiered := newTestTiered(t, afero.NewMemMapFs())
	a, b := testKey("a.mp4"), testKey("b.mp4")
	tiered.Put(a, sineEnvelope(10))
	tiered.Put(b, sineEnvelope(10))

	if removed := tiered.ClearAll(); removed != 2 {
		t.Errorf("removed %d files, want 2", removed)
	}
	if n := tiered.Memory().Stats().Entries; n != 0 {
		t.Errorf("memory not cleared: %d entries", n)
	}
	if _, ok := tiered.Get(a); ok {
		t.Error("entry survived ClearAll")
	}
	if got := tiered.TotalSizeHuman(); got != SizeZero {
		t.Errorf("got %q, want %q", got, SizeZero)
	}
}

func TestTiered_EntryRemovedOnDisk(t *testing.T) {
	tiered := newTestTiered(t, afero.NewMemMapFs())
	key := testKey("a.mp4")
	tiered.Put(key, sineEnvelope(10))

	// Another process clearing the cache leaves the memory copy stale.
	tiered.Store().Delete(key)

	if _, ok := tiered.Get(key); ok {
		t.Error("expected miss once the entry is gone from disk")
	}
	if n := tiered.Memory().Stats().Entries; n != 0 {
		t.Errorf("stale memory entry kept: %d entries", n)
	}
}
