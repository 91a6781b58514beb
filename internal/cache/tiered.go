package cache

import "github.com/fastplayer/fastplayer/internal/envelope"

// Tiered fronts a Store with a Memory cache. Disk hits are promoted to
// memory; an entry only enters memory once it is safely on disk, so an
// unwritable cache still misses every time.
type Tiered struct {
	mem  *Memory
	disk *Store
}

// NewTiered combines mem and disk.
func NewTiered(mem *Memory, disk *Store) *Tiered {
	return &Tiered{mem: mem, disk: disk}
}

// Get checks memory, then disk.
func (t *Tiered) Get(key Key) (envelope.Envelope, bool) {
	if env, ok := t.mem.Get(key); ok {
		// The memory copy was written through; confirm the entry still
		// exists so ClearAll from another process is honored.
		if t.disk.exists(key) {
			return env, true
		}
		t.mem.Delete(key)
	}

	env, ok := t.disk.Get(key)
	if ok {
		t.mem.Put(key, env)
	}
	return env, ok
}

// Put writes through to disk and keeps a memory copy on success.
func (t *Tiered) Put(key Key, env envelope.Envelope) bool {
	if !t.disk.Put(key, env) {
		return false
	}
	t.mem.Put(key, env)
	return true
}

// ClearAll empties both tiers.
func (t *Tiered) ClearAll() int {
	t.mem.Clear()
	return t.disk.ClearAll()
}

// TotalSizeHuman reports the on-disk size.
func (t *Tiered) TotalSizeHuman() string {
	return t.disk.TotalSizeHuman()
}

// Memory returns the memory tier.
func (t *Tiered) Memory() *Memory { return t.mem }

// Store returns the disk tier.
func (t *Tiered) Store() *Store { return t.disk }
