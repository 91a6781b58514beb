package media

import "errors"

var (
	// ErrNoAudioTrack is returned by Asset.AudioTrack when the file has no audio.
	ErrNoAudioTrack = errors.New("no audio track")

	// ErrUnsupportedFormat is returned when no decoder recognizes the container.
	ErrUnsupportedFormat = errors.New("unsupported media format")

	// ErrUnsupportedCodec is returned when the audio track's codec cannot be decoded.
	ErrUnsupportedCodec = errors.New("unsupported audio codec")

	// ErrFFmpegUnavailable is returned when the ffmpeg binary cannot be found.
	ErrFFmpegUnavailable = errors.New("ffmpeg not available")

	// ErrDecode is returned when decoding fails part way.
	ErrDecode = errors.New("audio decode failed")
)
