package ui

import (
	"sync"
	"time"
)

// Transport is the playback engine as seen by the UI. Position is polled
// from the interactive loop and must be cheap.
type Transport interface {
	Load(duration time.Duration)
	Play()
	Pause()
	Stop()
	Seek(to time.Duration)
	Playing() bool
	Position() time.Duration
	Duration() time.Duration
}

// ClockTransport is a Transport that advances with the wall clock without
// producing any sound.
type ClockTransport struct {
	mu       sync.Mutex
	now      func() time.Time
	duration time.Duration
	offset   time.Duration // position when last paused or seeked
	started  time.Time     // zero when paused
}

// NewClockTransport returns a stopped transport.
func NewClockTransport() *ClockTransport {
	return &ClockTransport{now: time.Now}
}

// Load resets the transport for a new file of the given length.
func (t *ClockTransport) Load(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.duration = duration
	t.offset = 0
	t.started = time.Time{}
}

// Play starts or resumes. Playing from the end starts over.
func (t *ClockTransport) Play() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started.IsZero() {
		return
	}
	if t.duration > 0 && t.offset >= t.duration {
		t.offset = 0
	}
	t.started = t.now()
}

// Pause holds the current position.
func (t *ClockTransport) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.offset = t.position()
	t.started = time.Time{}
}

// Stop pauses and rewinds to the start.
func (t *ClockTransport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.offset = 0
	t.started = time.Time{}
}

// Seek moves to the given position, clamped to the file.
func (t *ClockTransport) Seek(to time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if to < 0 {
		to = 0
	}
	if t.duration > 0 && to > t.duration {
		to = t.duration
	}
	t.offset = to
	if !t.started.IsZero() {
		t.started = t.now()
	}
}

// Playing reports whether the clock is running. It stops by itself at the end.
func (t *ClockTransport) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started.IsZero() {
		return false
	}
	if t.duration > 0 && t.position() >= t.duration {
		t.offset = t.duration
		t.started = time.Time{}
		return false
	}
	return true
}

// Position returns the current playback position.
func (t *ClockTransport) Position() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.position()
}

// Duration returns the length of the loaded file, zero if unknown.
func (t *ClockTransport) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.duration
}

func (t *ClockTransport) position() time.Duration {
	pos := t.offset
	if !t.started.IsZero() {
		pos += t.now().Sub(t.started)
	}
	if t.duration > 0 && pos > t.duration {
		pos = t.duration
	}
	return pos
}
