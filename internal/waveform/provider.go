package waveform

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fastplayer/fastplayer/internal/cache"
	"github.com/fastplayer/fastplayer/internal/envelope"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// Cache is the part of cache.Store the provider uses. Put reports whether
// the entry was written; *cache.Store and *cache.Tiered satisfy it.
type Cache interface {
	Get(key cache.Key) (envelope.Envelope, bool)
	Put(key cache.Key, env envelope.Envelope) bool
}

// Config holds provider tuning.
type Config struct {
	Workers int           // Concurrent generations; defaults to 2
	Timeout time.Duration // Per generation; 0 means no limit
	Logger  *log.Logger
}

// DefaultConfig returns the default provider configuration.
func DefaultConfig() Config {
	return Config{
		Workers: 2,
		Timeout: 10 * time.Minute,
	}
}

// Stats counts provider outcomes since creation.
type Stats struct {
	Hits      int64 // Served from cache
	Misses    int64 // Needed a generation
	Generated int64 // Generations that produced an envelope
	Failed    int64 // Generations that failed
	Shared    int64 // Requests whose generation was shared with another request
}

// Provider serves envelopes from the cache and generates missing ones in the
// background.
type Provider struct {
	cache    Cache
	gen      Generator
	identify func(path string) (cache.Identity, error)
	sem      *semaphore.Weighted
	timeout  time.Duration
	logger   *log.Logger

	flight singleflight.Group

	hits      atomic.Int64
	misses    atomic.Int64
	generated atomic.Int64
	failed    atomic.Int64
	shared    atomic.Int64
}

// NewProvider creates a provider.
func NewProvider(c Cache, gen Generator, cfg Config) *Provider {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default().WithPrefix("waveform")
	}
	return &Provider{
		cache:    c,
		gen:      gen,
		identify: cache.IdentityOf,
		sem:      semaphore.NewWeighted(int64(cfg.Workers)),
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
	}
}

// Result is the outcome of a generation.
type Result struct {
	Path     string
	Key      cache.Key // Empty when the file identity could not be read
	Envelope envelope.Envelope
	Err      error // Wraps ErrGenerationFailed
}

// Ticket is the answer to a Request. A hit carries the envelope immediately;
// otherwise a generation is running and Done is closed when it finishes.
type Ticket struct {
	Path string
	Key  cache.Key

	// Cached is the envelope found in the cache. Valid when Hit is set.
	Cached envelope.Envelope
	Hit    bool

	done   chan struct{}
	result Result
}

// Generating reports whether the envelope is still being produced.
func (t *Ticket) Generating() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// Done is closed once the result is available. It is closed already for a hit.
func (t *Ticket) Done() <-chan struct{} { return t.done }

// Result returns the outcome. It must only be called after Done is closed.
func (t *Ticket) Result() Result { return t.result }

// Wait blocks until the result is ready or ctx ends. Giving up on the wait
// does not stop the generation; it still completes and is cached.
func (t *Ticket) Wait(ctx context.Context) (Result, error) {
	select {
	case <-t.done:
		return t.result, nil
	case <-ctx.Done():
		return Result{Path: t.Path, Key: t.Key}, ctx.Err()
	}
}

// Request looks the file up in the cache and starts a generation on a miss.
// It never blocks on decoding. ctx only carries values into the generation;
// cancelling it has no effect on work already started.
func (p *Provider) Request(ctx context.Context, path string) *Ticket {
	t := &Ticket{Path: path, done: make(chan struct{})}

	id, err := p.identify(path)
	if err != nil {
		// Still generate so the file can be displayed, but there is no key
		// to cache under.
		p.logger.Warn("unable to read file identity, caching skipped", "path", path, "error", err)
	} else {
		t.Key = cache.DeriveKey(id)
		if env, ok := p.cache.Get(t.Key); ok {
			p.hits.Add(1)
			t.Cached, t.Hit = env, true
			t.result = Result{Path: path, Key: t.Key, Envelope: env}
			close(t.done)
			return t
		}
	}

	p.misses.Add(1)
	flightKey := "path:" + path
	if t.Key != "" {
		flightKey = t.Key.String()
	}

	detached := context.WithoutCancel(ctx)
	ch := p.flight.DoChan(flightKey, func() (any, error) {
		return p.generate(detached, path, t.Key)
	})

	go func() {
		r := <-ch
		if r.Shared {
			p.shared.Add(1)
		}
		t.result = Result{Path: path, Key: t.Key, Err: r.Err}
		if r.Err == nil {
			t.result.Envelope = r.Val.(envelope.Envelope)
		}
		close(t.done)
	}()
	return t
}

// Provide requests the envelope for path and waits for it.
func (p *Provider) Provide(ctx context.Context, path string) (Result, error) {
	return p.Request(ctx, path).Wait(ctx)
}

// generate runs one generation and writes the result through the cache
// before returning it.
func (p *Provider) generate(ctx context.Context, path string, key cache.Key) (envelope.Envelope, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	defer p.sem.Release(1)

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	env, err := p.gen.Generate(ctx, path)
	if err != nil {
		p.failed.Add(1)
		p.logger.Warn("unable to generate waveform", "path", path, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	p.generated.Add(1)

	if key != "" {
		p.cache.Put(key, env)
	}
	return env, nil
}

// Stats returns a snapshot of the provider counters.
func (p *Provider) Stats() Stats {
	return Stats{
		Hits:      p.hits.Load(),
		Misses:    p.misses.Load(),
		Generated: p.generated.Load(),
		Failed:    p.failed.Load(),
		Shared:    p.shared.Load(),
	}
}
