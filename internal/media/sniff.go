package media

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// sniffLen covers every matcher filetype ships.
const sniffLen = 262

// container is the decoder family a file is routed to.
type container int

const (
	containerUnknown container = iota
	containerWAV
	containerAIFF
	containerMP3
	containerOgg
	containerMP4
)

func (c container) String() string {
	switch c {
	case containerWAV:
		return "wav"
	case containerAIFF:
		return "aiff"
	case containerMP3:
		return "mp3"
	case containerOgg:
		return "ogg"
	case containerMP4:
		return "mp4"
	default:
		return "unknown"
	}
}

// sniff identifies the container from the file header, falling back to the
// extension when the header is not conclusive. r is rewound afterwards.
func sniff(r io.ReadSeeker, path string) (container, error) {
	header := make([]byte, sniffLen)
	n, err := io.ReadFull(r, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return containerUnknown, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return containerUnknown, err
	}

	kind, _ := filetype.Match(header[:n])
	if c := containerFor(kind.Extension); c != containerUnknown {
		return c, nil
	}
	return containerFor(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")), nil
}

func containerFor(ext string) container {
	switch ext {
	case "wav":
		return containerWAV
	case "aif", "aiff":
		return containerAIFF
	case "mp3":
		return containerMP3
	case "ogg", "oga":
		return containerOgg
	case "mp4", "m4a", "m4v", "mov":
		return containerMP4
	default:
		return containerUnknown
	}
}
