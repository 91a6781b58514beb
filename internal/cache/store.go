package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/fastplayer/fastplayer/internal/envelope"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"
)

// DirName is the name of the cache directory under the application data dir.
const DirName = "WaveformCache"

// Size readouts used when the cache cannot be measured or holds nothing.
const (
	SizeUnknown = "Unknown"
	SizeZero    = "0 MB"
)

// Config holds configuration for a Store.
type Config struct {
	Dir              string     // Cache root; created lazily
	CompressionLevel int        // Zstd level (1-22), 0 disables compression
	Fs               afero.Fs   // Defaults to the OS filesystem
	Logger           *log.Logger
}

// DefaultConfig returns the default store configuration rooted at dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:              dir,
		CompressionLevel: 3,
	}
}

// Usage summarizes the entries on disk.
type Usage struct {
	Entries int
	Bytes   int64
}

// Store maps cache keys to envelopes on disk. All failures are logged and
// swallowed: a store that cannot write behaves like an always-empty cache.
//
// Store does no per-key locking. Concurrent writers of the same key race on
// the final rename and the last one wins; entries are derived
// deterministically from the same input so the result converges.
type Store struct {
	fs     afero.Fs
	root   string
	codec  *codec
	logger *log.Logger

	mu    sync.Mutex
	ready bool

	// Throttles the warning emitted on every failed write.
	writeWarn rate.Sometimes
}

// NewStore creates a store. The directory is not touched until first use.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("cache directory not set")
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default().WithPrefix("cache")
	}

	c, err := newCodec(cfg.CompressionLevel)
	if err != nil {
		return nil, err
	}

	return &Store{
		fs:        cfg.Fs,
		root:      filepath.Clean(cfg.Dir),
		codec:     c,
		logger:    cfg.Logger,
		writeWarn: rate.Sometimes{First: 1, Interval: time.Minute},
	}, nil
}

// Dir returns the cache root.
func (s *Store) Dir() string { return s.root }

// Path returns the entry file path for key.
func (s *Store) Path(key Key) string {
	return filepath.Join(s.root, key.Filename())
}

// EnsureDirectory creates the cache root if needed. It is idempotent and
// never fails; it reports whether the directory is usable.
func (s *Store) EnsureDirectory() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		return true
	}
	if fi, err := s.fs.Stat(s.root); err == nil && fi.IsDir() {
		s.ready = true
		return true
	}
	if err := s.fs.MkdirAll(s.root, 0o755); err != nil {
		s.logger.Warn("cache directory unavailable, caching disabled", "dir", s.root, "error", err)
		return false
	}
	s.ready = true
	return true
}

// Get returns the envelope stored for key. A missing entry is a miss; an
// entry that fails to decode is deleted and reported as a miss.
func (s *Store) Get(key Key) (envelope.Envelope, bool) {
	if !s.EnsureDirectory() {
		return nil, false
	}

	path := s.Path(key)
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("unable to read cache entry", "key", key.Short(), "error", err)
		}
		return nil, false
	}

	env, err := s.codec.decode(data)
	if err != nil {
		s.logger.Warn("removing corrupted cache entry", "key", key.Short(), "error", err)
		if err := s.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Error("unable to remove corrupted cache entry", "path", path, "error", err)
		}
		return nil, false
	}

	s.logger.Debug("cache hit", "key", key.Short(), "points", len(env))
	return env, true
}

// Put stores env under key, replacing any previous entry. Failures are
// logged and swallowed; the next Get for key simply misses. It reports
// whether the entry was written.
func (s *Store) Put(key Key, env envelope.Envelope) bool {
	if err := env.Validate(); err != nil {
		s.logger.Error("refusing to cache invalid envelope", "key", key.Short(), "error", err)
		return false
	}
	if !s.EnsureDirectory() {
		return false
	}

	if err := s.writeFile(s.Path(key), s.codec.encode(env)); err != nil {
		s.writeWarn.Do(func() {
			s.logger.Warn("unable to write cache entry", "key", key.Short(), "error", err)
		})
		return false
	}

	s.logger.Debug("cache write", "key", key.Short(), "points", len(env))
	return true
}

// exists reports whether an entry file is present for key.
func (s *Store) exists(key Key) bool {
	ok, err := afero.Exists(s.fs, s.Path(key))
	return err == nil && ok
}

// Delete removes the entry for key if present.
func (s *Store) Delete(key Key) {
	if err := s.fs.Remove(s.Path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("unable to delete cache entry", "key", key.Short(), "error", err)
	}
}

// ClearAll removes every entry and leftover temp file in the cache root.
// Other files are left alone, as are individual failures, which are logged.
// It returns the number of files removed.
func (s *Store) ClearAll() int {
	infos, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Error("unable to list cache directory", "dir", s.root, "error", err)
		}
		return 0
	}

	removed := 0
	for _, fi := range infos {
		if fi.IsDir() || !owned(fi.Name()) {
			continue
		}
		path := filepath.Join(s.root, fi.Name())
		if err := s.fs.Remove(path); err != nil {
			s.logger.Warn("unable to remove cache file", "path", path, "error", err)
			continue
		}
		removed++
	}

	s.logger.Info("cache cleared", "removed", removed, "skipped", len(infos)-removed)
	return removed
}

// owned reports whether name is an entry or temp file written by a Store.
func owned(name string) bool {
	if strings.HasPrefix(name, tempPrefix) {
		return true
	}
	stem, ok := strings.CutSuffix(name, entryExt)
	return ok && Key(stem).Valid()
}

// Usage sums the size of all entries. A cache root that does not exist yet
// is empty.
func (s *Store) Usage() (Usage, error) {
	infos, err := afero.ReadDir(s.fs, s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Usage{}, nil
		}
		return Usage{}, fmt.Errorf("unable to list cache directory: %w", err)
	}

	var u Usage
	for _, fi := range infos {
		if fi.IsDir() || !owned(fi.Name()) || strings.HasPrefix(fi.Name(), tempPrefix) {
			continue
		}
		u.Entries++
		u.Bytes += fi.Size()
	}
	return u, nil
}

// TotalSizeHuman renders the cache size in megabytes (1 MB = 1024 KiB) with
// one decimal, e.g. "1.5 MB". It returns SizeUnknown if the cache root
// cannot be listed.
func (s *Store) TotalSizeHuman() string {
	u, err := s.Usage()
	if err != nil {
		s.logger.Warn("unable to measure cache", "error", err)
		return SizeUnknown
	}
	if u.Bytes == 0 {
		return SizeZero
	}
	return FormatMB(u.Bytes)
}

// FormatMB renders a byte count as megabytes with at most one decimal.
func FormatMB(bytes int64) string {
	mb := math.Round(float64(bytes)/(1024*1024)*10) / 10
	return humanize.FtoaWithDigits(mb, 1) + " MB"
}

// Close releases compression resources.
func (s *Store) Close() error {
	s.codec.close()
	return nil
}

// writeFile writes to a temp file in the cache root and renames it over path.
func (s *Store) writeFile(path string, data []byte) error {
	file, err := afero.TempFile(s.fs, s.root, tempPrefix+"*")
	if err != nil {
		return err
	}
	tempPath := file.Name()

	_, err = file.Write(data)
	closeErr := file.Close()

	if err != nil {
		_ = s.fs.Remove(tempPath)
		return err
	}
	if closeErr != nil {
		_ = s.fs.Remove(tempPath)
		return closeErr
	}

	if err := s.fs.Rename(tempPath, path); err != nil {
		_ = s.fs.Remove(tempPath)
		return err
	}
	return nil
}
