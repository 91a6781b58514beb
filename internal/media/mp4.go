package media

import (
	"fmt"
	"io"
	"time"

	mp4 "github.com/abema/go-mp4"
)

var soundHandler = [4]byte{'s', 'o', 'u', 'n'}

// probeMP4 reports whether an ISO BMFF file carries a sound track and, when it
// does, a best effort codec name.
func probeMP4(r io.ReadSeeker) (TrackInfo, bool, error) {
	boxes, err := mp4.ExtractBoxWithPayload(r, nil, mp4.BoxPath{
		mp4.BoxTypeMoov(), mp4.BoxTypeTrak(), mp4.BoxTypeMdia(), mp4.BoxTypeHdlr(),
	})
	if err != nil {
		return TrackInfo{}, false, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}

	found := false
	for _, box := range boxes {
		if hdlr, ok := box.Payload.(*mp4.Hdlr); ok && hdlr.HandlerType == soundHandler {
			found = true
			break
		}
	}
	if !found {
		return TrackInfo{}, false, nil
	}

	info := TrackInfo{Codec: "unknown"}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return info, true, nil
	}
	if probe, err := mp4.Probe(r); err == nil {
		if probe.Timescale > 0 {
			info.Duration = time.Duration(probe.Duration) * time.Second / time.Duration(probe.Timescale)
		}
		for _, track := range probe.Tracks {
			if track.Codec == mp4.CodecMP4A {
				info.Codec = "aac"
				info.SampleRate = int(track.Timescale)
				break
			}
		}
	}
	return info, true, nil
}
