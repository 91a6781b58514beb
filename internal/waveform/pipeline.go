package waveform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fastplayer/fastplayer/internal/envelope"
	"github.com/fastplayer/fastplayer/internal/media"
)

// Generator produces the envelope for a media file.
type Generator interface {
	Generate(ctx context.Context, path string) (envelope.Envelope, error)
}

// Pipeline decodes a file's audio track to 16-bit mono PCM and downsamples
// it by nearest-index selection. The whole track is held in memory before
// downsampling.
type Pipeline struct {
	opener media.Opener
	logger *log.Logger
}

// NewPipeline creates a pipeline reading media through opener.
func NewPipeline(opener media.Opener, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Default().WithPrefix("waveform")
	}
	return &Pipeline{opener: opener, logger: logger}
}

// Generate implements Generator. A file without an audio track yields an
// empty envelope and no error.
func (p *Pipeline) Generate(ctx context.Context, path string) (envelope.Envelope, error) {
	start := time.Now()

	asset, err := p.opener.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer asset.Close()

	track, err := asset.AudioTrack(ctx)
	if errors.Is(err, media.ErrNoAudioTrack) {
		p.logger.Debug("no audio track", "path", path)
		return envelope.Envelope{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load audio track: %w", err)
	}

	pcm, err := media.DecodeAll(ctx, track)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", track.Info(), err)
	}

	samples := envelope.Normalize(pcm)
	env := envelope.Downsample(samples, envelope.Points)

	p.logger.Debug("envelope generated",
		"path", path,
		"track", track.Info().String(),
		"samples", len(samples),
		"points", len(env),
		"took", time.Since(start).Round(time.Millisecond))
	return env, nil
}
