package media

import (
	"path/filepath"
	"strings"
)

// Type classifies a media file by extension.
type Type int

const (
	TypeUnknown Type = iota
	TypeVideo
	TypeAudio
)

// String returns the string representation of the media type.
func (t Type) String() string {
	switch t {
	case TypeVideo:
		return "video"
	case TypeAudio:
		return "audio"
	default:
		return "unknown"
	}
}

var (
	videoExtensions = []string{"mp4", "m4v", "mov", "avi", "mkv", "wmv", "flv", "webm"}
	audioExtensions = []string{"mp3", "aac", "wav", "flac", "m4a", "ogg", "wma", "aiff"}
)

// TypeOf classifies path by its extension.
func TypeOf(path string) Type {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, v := range videoExtensions {
		if ext == v {
			return TypeVideo
		}
	}
	for _, a := range audioExtensions {
		if ext == a {
			return TypeAudio
		}
	}
	return TypeUnknown
}

// IsSupported reports whether path has a media extension the player opens.
func IsSupported(path string) bool {
	return TypeOf(path) != TypeUnknown
}

// Patterns returns glob patterns matching every supported extension.
func Patterns() []string {
	patterns := make([]string, 0, len(videoExtensions)+len(audioExtensions))
	for _, ext := range videoExtensions {
		patterns = append(patterns, "*."+ext)
	}
	for _, ext := range audioExtensions {
		patterns = append(patterns, "*."+ext)
	}
	return patterns
}
