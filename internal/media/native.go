package media

import (
	"context"
	"fmt"
	"io"
	"os"
)

// NativeOpener decodes with pure Go codecs. It handles PCM WAV and AIFF, MP3
// and Ogg Vorbis. MP4 and MOV files are probed for a sound track but their
// audio cannot be decoded natively.
type NativeOpener struct{}

// NewNativeOpener returns a native opener.
func NewNativeOpener() *NativeOpener {
	return &NativeOpener{}
}

// Name implements Opener.
func (*NativeOpener) Name() string { return BackendNative }

// Open implements Opener.
func (*NativeOpener) Open(_ context.Context, path string) (Asset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	kind, err := sniff(f, path)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("unable to read %s: %w", path, err)
	}
	if kind == containerUnknown {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return &nativeAsset{file: f, kind: kind}, nil
}

type nativeAsset struct {
	file *os.File
	kind container
}

func (a *nativeAsset) AudioTrack(_ context.Context) (Track, error) {
	if _, err := a.file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	if a.kind == containerMP4 {
		info, ok, err := probeMP4(a.file)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNoAudioTrack
		}
		return nil, fmt.Errorf("%w: %s in %s", ErrUnsupportedCodec, info.Codec, a.kind)
	}

	_, info, err := a.source()
	if err != nil {
		return nil, err
	}
	return &nativeTrack{asset: a, info: info}, nil
}

// source opens a fresh decoder at the start of the file.
func (a *nativeAsset) source() (source, TrackInfo, error) {
	if _, err := a.file.Seek(0, io.SeekStart); err != nil {
		return nil, TrackInfo{}, err
	}
	switch a.kind {
	case containerWAV:
		return openWAV(a.file)
	case containerAIFF:
		return openAIFF(a.file)
	case containerMP3:
		return openMP3(a.file)
	case containerOgg:
		return openVorbis(a.file)
	default:
		return nil, TrackInfo{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, a.kind)
	}
}

func (a *nativeAsset) Close() error {
	return a.file.Close()
}

type nativeTrack struct {
	asset *nativeAsset
	info  TrackInfo
}

func (t *nativeTrack) Info() TrackInfo { return t.info }

func (t *nativeTrack) DecodePCM16Mono(ctx context.Context) (io.ReadCloser, error) {
	src, _, err := t.asset.source()
	if err != nil {
		return nil, err
	}
	// The asset owns the file.
	return newPCMReader(ctx, src, nil), nil
}
