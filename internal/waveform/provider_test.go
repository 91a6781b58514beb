package waveform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fastplayer/fastplayer/internal/cache"
	"github.com/fastplayer/fastplayer/internal/envelope"
	"github.com/spf13/afero"
)

const testCacheRoot = "/data/WaveformCache"

// stubGenerator returns env for every path, optionally blocking on gate.
type stubGenerator struct {
	env  envelope.Envelope
	err  error
	gate chan struct{}

	calls   atomic.Int32
	running atomic.Int32
	peak    atomic.Int32
}

func (g *stubGenerator) Generate(ctx context.Context, _ string) (envelope.Envelope, error) {
	g.calls.Add(1)
	n := g.running.Add(1)
	defer g.running.Add(-1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if g.gate != nil {
		select {
		case <-g.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g.env, g.err
}

func newTestStore(t *testing.T, fs afero.Fs) *cache.Store {
	t.Helper()
	s, err := cache.NewStore(cache.Config{Dir: testCacheRoot, Fs: fs, Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestProvider(t *testing.T, store Cache, gen Generator, workers int) *Provider {
	t.Helper()
	return NewProvider(store, gen, Config{Workers: workers, Timeout: time.Minute, Logger: quietLogger()})
}

// mediaFile creates a file of size bytes with a fixed modification time.
func mediaFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
	mtime := time.Date(2026, 2, 10, 8, 30, 15, 0, time.UTC)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
	return path
}

func keyOf(t *testing.T, path string) cache.Key {
	t.Helper()
	k, err := cache.KeyFor(path)
	if err != nil {
		t.Fatal(err)
	}
	return k
}

func wait(t *testing.T, tk *Ticket) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r, err := tk.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	return r
}

var testEnvelope = envelope.Envelope{0, 0.25, -0.5, 1, -1}

func TestProviderHit(t *testing.T) {
	store := newTestStore(t, afero.NewMemMapFs())
	path := mediaFile(t, t.TempDir(), "a.mp4", 1000)
	store.Put(keyOf(t, path), testEnvelope)

	gen := &stubGenerator{env: envelope.Envelope{0.9}}
	p := newTestProvider(t, store, gen, 2)

	tk := p.Request(context.Background(), path)
	if !tk.Hit || tk.Generating() {
		t.Fatalf("Request() hit=%v generating=%v, want a hit", tk.Hit, tk.Generating())
	}
	if !tk.Cached.Equal(testEnvelope) {
		t.Errorf("Cached = %v, want %v", tk.Cached, testEnvelope)
	}
	select {
	case <-tk.Done():
	default:
		t.Error("Done() not closed for a hit")
	}
	if gen.calls.Load() != 0 {
		t.Errorf("generator called %d times on a hit", gen.calls.Load())
	}
	if s := p.Stats(); s.Hits != 1 || s.Misses != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestProviderMissWritesThrough(t *testing.T) {
	store := newTestStore(t, afero.NewMemMapFs())
	path := mediaFile(t, t.TempDir(), "a.mp4", 1000)
	gen := &stubGenerator{env: testEnvelope}
	p := newTestProvider(t, store, gen, 2)

	tk := p.Request(context.Background(), path)
	if tk.Hit {
		t.Fatal("Request() on an empty cache reported a hit")
	}

	r := wait(t, tk)
	if r.Err != nil {
		t.Fatalf("Result.Err = %v", r.Err)
	}
	if !r.Envelope.Equal(testEnvelope) {
		t.Errorf("Envelope = %v, want %v", r.Envelope, testEnvelope)
	}

	// Delivery happens after the write, so the entry is visible now.
	got, ok := store.Get(r.Key)
	if !ok || !got.Equal(testEnvelope) {
		t.Errorf("store.Get() = %v, %v after delivery", got, ok)
	}

	again := p.Request(context.Background(), path)
	if !again.Hit {
		t.Error("second Request() missed")
	}
	if gen.calls.Load() != 1 {
		t.Errorf("generator called %d times, want 1", gen.calls.Load())
	}
}

func TestTicketGeneratingClearsOnCompletion(t *testing.T) {
	store := newTestStore(t, afero.NewMemMapFs())
	path := mediaFile(t, t.TempDir(), "a.mp4", 1000)
	gen := &stubGenerator{env: testEnvelope, gate: make(chan struct{})}
	p := newTestProvider(t, store, gen, 2)

	tk := p.Request(context.Background(), path)
	if !tk.Generating() {
		t.Fatal("Generating() = false while the generation is blocked")
	}

	close(gen.gate)
	wait(t, tk)
	if tk.Generating() {
		t.Error("Generating() = true after Done was closed")
	}
}

func TestProviderDeduplicatesInFlight(t *testing.T) {
	store := newTestStore(t, afero.NewMemMapFs())
	path := mediaFile(t, t.TempDir(), "a.mp4", 1000)
	gen := &stubGenerator{env: testEnvelope, gate: make(chan struct{})}
	p := newTestProvider(t, store, gen, 2)

	first := p.Request(context.Background(), path)
	second := p.Request(context.Background(), path)

	// Let the first generation reach the gate before releasing it.
	deadline := time.Now().Add(5 * time.Second)
	for gen.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(gen.gate)

	r1, r2 := wait(t, first), wait(t, second)
	if !r1.Envelope.Equal(testEnvelope) || !r2.Envelope.Equal(testEnvelope) {
		t.Errorf("envelopes = %v, %v", r1.Envelope, r2.Envelope)
	}
	if n := gen.calls.Load(); n != 1 {
		t.Errorf("generator called %d times, want 1", n)
	}
	if s := p.Stats(); s.Shared == 0 {
		t.Errorf("Stats().Shared = 0, want shared generation")
	}
}

func TestProviderAbandonedRequestStillCommits(t *testing.T) {
	store := newTestStore(t, afero.NewMemMapFs())
	path := mediaFile(t, t.TempDir(), "a.mp4", 1000)
	gen := &stubGenerator{env: testEnvelope, gate: make(chan struct{})}
	p := newTestProvider(t, store, gen, 2)

	ctx, cancel := context.WithCancel(context.Background())
	tk := p.Request(ctx, path)
	cancel()

	if _, err := tk.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait() error = %v, want context.Canceled", err)
	}

	close(gen.gate)
	r := wait(t, tk)
	if r.Err != nil {
		t.Fatalf("Result.Err = %v", r.Err)
	}
	if _, ok := store.Get(keyOf(t, path)); !ok {
		t.Error("abandoned generation was not cached")
	}
}

func TestProviderGenerationFailure(t *testing.T) {
	store := newTestStore(t, afero.NewMemMapFs())
	path := mediaFile(t, t.TempDir(), "broken.mp4", 1000)
	boom := errors.New("corrupt media")
	p := newTestProvider(t, store, &stubGenerator{err: boom}, 2)

	r := wait(t, p.Request(context.Background(), path))
	if !errors.Is(r.Err, ErrGenerationFailed) || !errors.Is(r.Err, boom) {
		t.Errorf("Result.Err = %v, want ErrGenerationFailed wrapping the cause", r.Err)
	}
	if r.Envelope != nil {
		t.Errorf("Envelope = %v, want nil", r.Envelope)
	}
	if _, ok := store.Get(keyOf(t, path)); ok {
		t.Error("failed generation was cached")
	}
	if s := p.Stats(); s.Failed != 1 || s.Generated != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestProviderEmptyEnvelopeIsCached(t *testing.T) {
	store := newTestStore(t, afero.NewMemMapFs())
	path := mediaFile(t, t.TempDir(), "video-only.mp4", 1000)
	p := newTestProvider(t, store, &stubGenerator{env: envelope.Envelope{}}, 2)

	r := wait(t, p.Request(context.Background(), path))
	if r.Err != nil || !r.Envelope.Empty() {
		t.Fatalf("Result = %+v", r)
	}
	if tk := p.Request(context.Background(), path); !tk.Hit || !tk.Cached.Empty() {
		t.Errorf("second Request() hit=%v cached=%v", tk.Hit, tk.Cached)
	}
}

func TestProviderUnreadableIdentity(t *testing.T) {
	store := newTestStore(t, afero.NewMemMapFs())
	gen := &stubGenerator{env: testEnvelope}
	p := newTestProvider(t, store, gen, 2)

	r := wait(t, p.Request(context.Background(), filepath.Join(t.TempDir(), "gone.mp4")))
	if r.Err != nil || !r.Envelope.Equal(testEnvelope) {
		t.Fatalf("Result = %+v", r)
	}
	if r.Key != "" {
		t.Errorf("Key = %q, want empty", r.Key)
	}
	if u, err := store.Usage(); err != nil || u.Entries != 0 {
		t.Errorf("Usage() = %+v, %v, want nothing cached", u, err)
	}
}

func TestProviderFileReplacedOrphansOldEntry(t *testing.T) {
	store := newTestStore(t, afero.NewMemMapFs())
	dir := t.TempDir()
	path := mediaFile(t, dir, "a.mp4", 1000)
	gen := &stubGenerator{env: testEnvelope}
	p := newTestProvider(t, store, gen, 2)

	first := wait(t, p.Request(context.Background(), path))

	mediaFile(t, dir, "a.mp4", 2000)
	tk := p.Request(context.Background(), path)
	if tk.Hit {
		t.Fatal("Request() hit after the file changed size")
	}
	second := wait(t, tk)

	if first.Key == second.Key {
		t.Fatal("key did not change with the file size")
	}
	if gen.calls.Load() != 2 {
		t.Errorf("generator called %d times, want 2", gen.calls.Load())
	}
	if _, ok := store.Get(first.Key); !ok {
		t.Error("entry for the old identity was removed")
	}
	if u, _ := store.Usage(); u.Entries != 2 {
		t.Errorf("Usage().Entries = %d, want 2", u.Entries)
	}
}

func TestProviderUnwritableCache(t *testing.T) {
	base := afero.NewMemMapFs()
	if err := base.MkdirAll(testCacheRoot, 0o755); err != nil {
		t.Fatal(err)
	}
	store := newTestStore(t, afero.NewReadOnlyFs(base))
	path := mediaFile(t, t.TempDir(), "a.mp4", 1000)
	gen := &stubGenerator{env: testEnvelope}
	p := newTestProvider(t, store, gen, 2)

	for i := range 2 {
		tk := p.Request(context.Background(), path)
		if tk.Hit {
			t.Fatalf("request %d hit an unwritable cache", i)
		}
		r := wait(t, tk)
		if r.Err != nil || !r.Envelope.Equal(testEnvelope) {
			t.Fatalf("request %d: Result = %+v", i, r)
		}
	}
	if gen.calls.Load() != 2 {
		t.Errorf("generator called %d times, want 2", gen.calls.Load())
	}
}

func TestProviderBoundsWorkers(t *testing.T) {
	store := newTestStore(t, afero.NewMemMapFs())
	dir := t.TempDir()
	gen := &stubGenerator{env: testEnvelope, gate: make(chan struct{})}
	p := newTestProvider(t, store, gen, 1)

	var tickets []*Ticket
	for _, name := range []string{"a.mp3", "b.mp3", "c.mp3"} {
		tickets = append(tickets, p.Request(context.Background(), mediaFile(t, dir, name, 100)))
	}

	var once sync.Once
	time.AfterFunc(50*time.Millisecond, func() { once.Do(func() { close(gen.gate) }) })
	for _, tk := range tickets {
		if r := wait(t, tk); r.Err != nil {
			t.Fatalf("Result.Err = %v", r.Err)
		}
	}

	if peak := gen.peak.Load(); peak != 1 {
		t.Errorf("peak concurrent generations = %d, want 1", peak)
	}
	if n := gen.calls.Load(); n != 3 {
		t.Errorf("generator called %d times, want 3", n)
	}
}

func TestProviderTimeout(t *testing.T) {
	store := newTestStore(t, afero.NewMemMapFs())
	path := mediaFile(t, t.TempDir(), "slow.mp4", 1000)
	gen := &stubGenerator{env: testEnvelope, gate: make(chan struct{})}
	p := NewProvider(store, gen, Config{Workers: 1, Timeout: 10 * time.Millisecond, Logger: quietLogger()})

	r := wait(t, p.Request(context.Background(), path))
	if !errors.Is(r.Err, context.DeadlineExceeded) {
		t.Errorf("Result.Err = %v, want deadline exceeded", r.Err)
	}
}

func TestProviderWithMemoryTier(t *testing.T) {
	fs := afero.NewMemMapFs()
	tiered := cache.NewTiered(cache.NewMemory(1<<20), newTestStore(t, fs))
	path := mediaFile(t, t.TempDir(), "a.mp4", 1000)
	gen := &stubGenerator{env: testEnvelope}
	p := newTestProvider(t, tiered, gen, 2)

	if r := wait(t, p.Request(context.Background(), path)); r.Err != nil {
		t.Fatalf("Result.Err = %v", r.Err)
	}

	again := p.Request(context.Background(), path)
	if !again.Hit || !again.Cached.Equal(testEnvelope) {
		t.Fatalf("second Request() hit=%v cached=%v", again.Hit, again.Cached)
	}
	if hits := tiered.Memory().Stats().Hits; hits != 1 {
		t.Errorf("memory hits = %d, want 1", hits)
	}

	// Clearing the disk behind the memory tier must not leave stale hits.
	if n := tiered.Store().ClearAll(); n != 1 {
		t.Fatalf("ClearAll() removed %d files, want 1", n)
	}
	if tk := p.Request(context.Background(), path); tk.Hit {
		t.Error("Request() hit after the disk entry was removed")
	} else {
		wait(t, tk)
	}
	if gen.calls.Load() != 2 {
		t.Errorf("generator called %d times, want 2", gen.calls.Load())
	}
}
