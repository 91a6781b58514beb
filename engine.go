package main

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/fastplayer/fastplayer/internal/cache"
	"github.com/fastplayer/fastplayer/internal/media"
	"github.com/fastplayer/fastplayer/internal/waveform"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
)

// engine wires the cache, decoder and provider from configuration.
type engine struct {
	store    *cache.Store
	cache    *cache.Tiered
	opener   media.Opener
	pipeline *waveform.Pipeline
	provider *waveform.Provider
}

func newEngine() (*engine, error) {
	dir, err := cacheDir()
	if err != nil {
		return nil, err
	}

	storeCfg := cache.DefaultConfig(dir)
	storeCfg.CompressionLevel = viper.GetInt("cache.compression_level")
	storeCfg.Logger = log.Default().WithPrefix("cache")
	store, err := cache.NewStore(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create cache: %w", err)
	}

	mediaCfg := media.DefaultConfig()
	mediaCfg.Backend = viper.GetString("decoder.backend")
	mediaCfg.FFmpeg = viper.GetString("decoder.ffmpeg")
	opener, err := media.NewOpener(mediaCfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	memory := cache.NewMemory(viper.GetInt64("cache.memory_mb") << 20)
	tiered := cache.NewTiered(memory, store)

	pipeline := waveform.NewPipeline(opener, log.Default().WithPrefix("waveform"))

	provCfg := waveform.DefaultConfig()
	provCfg.Workers = viper.GetInt("waveform.workers")
	provCfg.Timeout = viper.GetDuration("decoder.timeout")
	provCfg.Logger = log.Default().WithPrefix("waveform")

	log.Debug("engine ready",
		"cache", store.Dir(),
		"memory", humanize.IBytes(uint64(memory.Stats().Capacity)),
		"decoder", opener.Name(),
		"workers", provCfg.Workers,
		"timeout", provCfg.Timeout)

	return &engine{
		store:    store,
		cache:    tiered,
		opener:   opener,
		pipeline: pipeline,
		provider: waveform.NewProvider(tiered, pipeline, provCfg),
	}, nil
}

func (e *engine) Close() error {
	return e.store.Close()
}

// cacheDir resolves cache.dir, defaulting to the per-user data directory.
func cacheDir() (string, error) {
	if dir := viper.GetString("cache.dir"); dir != "" {
		expanded, err := homedir.Expand(dir)
		if err != nil {
			return "", fmt.Errorf("unable to expand cache dir: %w", err)
		}
		return filepath.Abs(expanded)
	}

	dir, err := gap.NewScope(gap.User, "fastplayer").DataPath(cache.DirName)
	if err != nil {
		return "", fmt.Errorf("unable to find data directory: %w", err)
	}
	return dir, nil
}
