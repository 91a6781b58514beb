package ui

import (
	"context"
	"time"

	"github.com/fastplayer/fastplayer/internal/media"
	"github.com/fastplayer/fastplayer/internal/waveform"
)

// Config contains TUI-specific configuration.
type Config struct {
	// How often the playback position is polled.
	PollInterval time.Duration `env:"FASTPLAYER_POLL_INTERVAL" envDefault:"100ms"`
	// Regenerate the waveform when the open file changes on disk.
	Watch bool `env:"FASTPLAYER_WATCH" envDefault:"true"`

	// File to open
	Path string

	Waveform  EnvelopeSource
	Cache     CacheAdmin
	Opener    media.Opener
	Transport Transport
}

// EnvelopeSource provides envelopes for files. *waveform.Provider satisfies it.
type EnvelopeSource interface {
	Request(ctx context.Context, path string) *waveform.Ticket
}

// CacheAdmin exposes the user-facing cache actions. *cache.Store and
// *cache.Tiered satisfy it.
type CacheAdmin interface {
	TotalSizeHuman() string
	ClearAll() int
}
