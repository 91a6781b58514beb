package media

import (
	"os"

	"github.com/dhowden/tag"
)

// Tags is the descriptive metadata shown next to the waveform.
type Tags struct {
	Title  string
	Artist string
	Album  string
	Format string
}

// ReadTags reads ID3, MP4 or Vorbis comment metadata from path. Files without
// recognizable metadata return tag.ErrNoTagsFound.
func ReadTags(path string) (Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tags{}, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return Tags{}, err
	}
	return Tags{
		Title:  m.Title(),
		Artist: m.Artist(),
		Album:  m.Album(),
		Format: string(m.FileType()),
	}, nil
}
