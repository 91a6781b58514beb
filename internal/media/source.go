package media

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
)

// source yields interleaved float32 samples in [-1, 1].
type source interface {
	SampleRate() int
	Channels() int
	// ReadSamples fills dst and returns the number of values written.
	// It returns 0, io.EOF once the stream is finished.
	ReadSamples(dst []float32) (int, error)
}

// monoMixer averages interleaved channels into one.
type monoMixer struct {
	src source
	tmp []float32
}

func newMonoMixer(src source) *monoMixer {
	return &monoMixer{src: src}
}

func (m *monoMixer) SampleRate() int { return m.src.SampleRate() }
func (m *monoMixer) Channels() int   { return 1 }

func (m *monoMixer) ReadSamples(dst []float32) (int, error) {
	channels := m.src.Channels()
	if len(dst) == 0 {
		return 0, nil
	}
	if channels <= 1 {
		return m.src.ReadSamples(dst)
	}

	need := len(dst) * channels
	if cap(m.tmp) < need {
		m.tmp = make([]float32, need)
	}
	m.tmp = m.tmp[:need]

	n, err := m.src.ReadSamples(m.tmp)
	frames := n / channels

	inv := float32(1) / float32(channels)
	switch channels {
	case 2:
		for f := range frames {
			dst[f] = (m.tmp[2*f] + m.tmp[2*f+1]) * 0.5
		}
	default:
		for f := range frames {
			var sum float32
			base := f * channels
			for c := range channels {
				sum += m.tmp[base+c]
			}
			dst[f] = sum * inv
		}
	}

	if frames == 0 && err == nil {
		// A partial frame can only mean the stream ended mid-frame.
		return 0, io.EOF
	}
	return frames, err
}

// pcmReader serializes a mono source as signed 16-bit little-endian PCM.
type pcmReader struct {
	ctx     context.Context
	src     source
	closer  io.Closer
	samples []float32
	pending []byte
	err     error
}

func newPCMReader(ctx context.Context, src source, closer io.Closer) *pcmReader {
	return &pcmReader{
		ctx:     ctx,
		src:     newMonoMixer(src),
		closer:  closer,
		samples: make([]float32, 4096),
	}
}

func (r *pcmReader) Read(p []byte) (int, error) {
	for len(r.pending) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		if err := r.ctx.Err(); err != nil {
			r.err = err
			return 0, err
		}
		r.fill()
	}

	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

func (r *pcmReader) fill() {
	n, err := r.src.ReadSamples(r.samples)

	buf := make([]byte, 2*n)
	for i, v := range r.samples[:n] {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(floatToInt16(v)))
	}
	r.pending = buf

	switch {
	case err == io.EOF:
		r.err = io.EOF
	case err != nil:
		r.err = fmt.Errorf("%w: %w", ErrDecode, err)
	case n == 0:
		// Decoders that signal the end with a short read and no error.
		r.err = io.EOF
	}
}

func (r *pcmReader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// floatToInt16 scales by 32768 so 16-bit sources survive the round trip
// through float32 unchanged.
func floatToInt16(x float32) int16 {
	v := x * 32768
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
