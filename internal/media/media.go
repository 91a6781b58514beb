package media

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Opener opens media files. It is the entry point of the decoding
// collaborator.
type Opener interface {
	// Open opens the file at path as a media asset.
	Open(ctx context.Context, path string) (Asset, error)
	// Name identifies the backend in logs.
	Name() string
}

// Asset is an opened media file.
type Asset interface {
	// AudioTrack returns the first audio track, or ErrNoAudioTrack.
	AudioTrack(ctx context.Context) (Track, error)
	// Close releases the file.
	Close() error
}

// Track is a decodable audio track.
type Track interface {
	// Info describes the track as stored.
	Info() TrackInfo
	// DecodePCM16Mono returns the whole track as signed 16-bit little-endian
	// mono PCM at the track's native sample rate. The stream ends with io.EOF;
	// a failure part way surfaces as a read error wrapping ErrDecode.
	DecodePCM16Mono(ctx context.Context) (io.ReadCloser, error)
}

// TrackInfo describes an audio track.
type TrackInfo struct {
	Codec      string
	SampleRate int
	Channels   int
	Duration   time.Duration // Zero when the container does not say
}

// String implements fmt.Stringer.
func (i TrackInfo) String() string {
	return fmt.Sprintf("%s %dHz %dch", i.Codec, i.SampleRate, i.Channels)
}

// Backend names accepted by NewOpener.
const (
	BackendAuto   = "auto"
	BackendNative = "native"
	BackendFFmpeg = "ffmpeg"
)

// Config selects and configures a decoding backend.
type Config struct {
	Backend string // auto, native or ffmpeg
	FFmpeg  string // ffmpeg binary name or path
}

// DefaultConfig returns the default decoder configuration.
func DefaultConfig() Config {
	return Config{
		Backend: BackendAuto,
		FFmpeg:  "ffmpeg",
	}
}

// NewOpener builds the opener selected by cfg.
func NewOpener(cfg Config) (Opener, error) {
	switch cfg.Backend {
	case "", BackendAuto:
		return NewAutoOpener(NewNativeOpener(), NewFFmpegOpener(cfg.FFmpeg)), nil
	case BackendNative:
		return NewNativeOpener(), nil
	case BackendFFmpeg:
		return NewFFmpegOpener(cfg.FFmpeg), nil
	default:
		return nil, fmt.Errorf("unknown decoder backend %q (want %s, %s or %s)",
			cfg.Backend, BackendAuto, BackendNative, BackendFFmpeg)
	}
}

// DecodeAll reads the whole track as 16-bit mono PCM.
func DecodeAll(ctx context.Context, t Track) ([]byte, error) {
	rc, err := t.DecodePCM16Mono(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Probe describes the first audio track of path without decoding it.
func Probe(ctx context.Context, o Opener, path string) (TrackInfo, error) {
	asset, err := o.Open(ctx, path)
	if err != nil {
		return TrackInfo{}, err
	}
	defer asset.Close()

	track, err := asset.AudioTrack(ctx)
	if err != nil {
		return TrackInfo{}, err
	}
	return track.Info(), nil
}
