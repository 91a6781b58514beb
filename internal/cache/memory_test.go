package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/fastplayer/fastplayer/internal/envelope"
)

// entrySize is what one envelope of n points costs in a Memory cache.
func entrySize(n int) int64 { return int64(n*pointSize) + 1 }

func TestMemory_BasicOperations(t *testing.T) {
	cache := NewMemory(1024)
	key := testKey("a.mp4")
	want := sineEnvelope(10)

	cache.Put(key, want)

	got, ok := cache.Get(key)
	if !ok {
		t.Fatal("Get failed: key not found")
	}
	if !got.Equal(want) {
		t.Errorf("envelope mismatch: got %v, want %v", got, want)
	}
	if s := cache.Stats(); s.Size != entrySize(10) || s.Entries != 1 {
		t.Errorf("unexpected stats after put: %+v", s)
	}

	cache.Delete(key)
	if _, ok := cache.Get(key); ok {
		t.Error("key still present after delete")
	}
	if s := cache.Stats(); s.Size != 0 || s.Entries != 0 {
		t.Errorf("size not zero after delete: %+v", s)
	}
}

func TestMemory_LRUEviction(t *testing.T) {
	cache := NewMemory(3 * entrySize(10))
	keys := []Key{testKey("a.mp4"), testKey("b.mp4"), testKey("c.mp4")}
	for _, k := range keys {
		cache.Put(k, sineEnvelope(10))
	}

	// Touch a so b becomes the oldest.
	cache.Get(keys[0])
	cache.Put(testKey("d.mp4"), sineEnvelope(10))

	if _, ok := cache.Get(keys[1]); ok {
		t.Error("b should have been evicted")
	}
	for _, k := range []Key{keys[0], keys[2], testKey("d.mp4")} {
		if _, ok := cache.Get(k); !ok {
			t.Errorf("%s should not have been evicted", k.Short())
		}
	}
	if s := cache.Stats(); s.Evictions != 1 || s.Size > s.Capacity {
		t.Errorf("unexpected stats: %+v", s)
	}
}

func TestMemory_ItemTooLarge(t *testing.T) {
	cache := NewMemory(entrySize(10) - 1)
	key := testKey("big.mp4")

	cache.Put(key, sineEnvelope(10))

	if _, ok := cache.Get(key); ok {
		t.Error("envelope larger than the cache should not be stored")
	}
	if s := cache.Stats(); s.Entries != 0 || s.Size != 0 {
		t.Errorf("unexpected stats: %+v", s)
	}
}

func TestMemory_UpdateExisting(t *testing.T) {
	cache := NewMemory(1024)
	key := testKey("a.mp4")

	cache.Put(key, sineEnvelope(10))
	cache.Put(key, sineEnvelope(20))

	got, ok := cache.Get(key)
	if !ok || len(got) != 20 {
		t.Fatalf("expected updated envelope, got %d points (hit=%v)", len(got), ok)
	}
	if s := cache.Stats(); s.Entries != 1 || s.Size != entrySize(20) {
		t.Errorf("unexpected stats after update: %+v", s)
	}
}

func TestMemory_UpdateEvictsOthers(t *testing.T) {
	cache := NewMemory(2 * entrySize(10))
	a, b := testKey("a.mp4"), testKey("b.mp4")
	cache.Put(a, sineEnvelope(10))
	cache.Put(b, sineEnvelope(10))

	// Growing b pushes a out.
	cache.Put(b, sineEnvelope(15))

	if _, ok := cache.Get(a); ok {
		t.Error("a should have been evicted")
	}
	if _, ok := cache.Get(b); !ok {
		t.Error("b should still be cached")
	}
}

func TestMemory_EmptyEnvelope(t *testing.T) {
	cache := NewMemory(16)
	key := testKey("silent.mp4")

	cache.Put(key, envelope.Envelope{})

	got, ok := cache.Get(key)
	if !ok {
		t.Fatal("empty envelope should be cached")
	}
	if len(got) != 0 {
		t.Errorf("expected empty envelope, got %d points", len(got))
	}
}

func TestMemory_CopiesOnPut(t *testing.T) {
	cache := NewMemory(1024)
	key := testKey("a.mp4")
	env := envelope.Envelope{0.1, 0.2, 0.3}

	cache.Put(key, env)
	env[0] = 1

	got, _ := cache.Get(key)
	if got[0] != 0.1 {
		t.Errorf("cached envelope changed with caller's slice: %v", got)
	}
}

func TestMemory_Clear(t *testing.T) {
	cache := NewMemory(1024)
	for i := 0; i < 5; i++ {
		cache.Put(testKey(fmt.Sprintf("%d.mp4", i)), sineEnvelope(5))
	}

	cache.Clear()

	if s := cache.Stats(); s.Entries != 0 || s.Size != 0 {
		t.Errorf("cache not empty after clear: %+v", s)
	}
	if _, ok := cache.Get(testKey("0.mp4")); ok {
		t.Error("entry survived clear")
	}
}

func TestMemory_Stats(t *testing.T) {
	cache := NewMemory(1024)
	key := testKey("a.mp4")

	if rate := cache.Stats().HitRate(); rate != 0 {
		t.Errorf("hit rate with no lookups: got %v, want 0", rate)
	}

	cache.Put(key, sineEnvelope(3))
	cache.Get(key)
	cache.Get(key)
	cache.Get(key)
	cache.Get(testKey("missing.mp4"))

	s := cache.Stats()
	if s.Hits != 3 || s.Misses != 1 {
		t.Errorf("got hits=%d misses=%d, want 3/1", s.Hits, s.Misses)
	}
	if s.HitRate() != 0.75 {
		t.Errorf("hit rate: got %v, want 0.75", s.HitRate())
	}
	if s.Capacity != 1024 {
		t.Errorf("capacity: got %d, want 1024", s.Capacity)
	}
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	cache := NewMemory(50 * entrySize(10))

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := testKey(fmt.Sprintf("%d-%d.mp4", g, i%20))
				cache.Put(key, sineEnvelope(10))
				cache.Get(key)
			}
		}(g)
	}
	wg.Wait()

	if s := cache.Stats(); s.Size > s.Capacity {
		t.Errorf("size %d exceeds capacity %d", s.Size, s.Capacity)
	}
}
