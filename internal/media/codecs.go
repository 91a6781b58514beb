package media

import (
	"fmt"
	"io"
	"time"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xfffe
)

// pcmBufferReader is the part of the go-audio decoders a source needs.
type pcmBufferReader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// intSource adapts go-audio integer PCM to float samples.
type intSource struct {
	dec        pcmBufferReader
	sampleRate int
	channels   int
	scale      float32
	offset     int // 8-bit WAV samples are unsigned
	buf        *goaudio.IntBuffer
}

func newIntSource(dec pcmBufferReader, format *goaudio.Format, bitDepth int, unsigned8 bool) (*intSource, error) {
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-bit PCM", ErrUnsupportedCodec, bitDepth)
	}

	s := &intSource{
		dec:        dec,
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		scale:      1 / float32(int64(1)<<(bitDepth-1)),
	}
	if bitDepth == 8 && unsigned8 {
		s.offset = 128
	}
	s.buf = &goaudio.IntBuffer{Format: format, SourceBitDepth: bitDepth}
	return s, nil
}

func (s *intSource) SampleRate() int { return s.sampleRate }
func (s *intSource) Channels() int   { return s.channels }

func (s *intSource) ReadSamples(dst []float32) (int, error) {
	if cap(s.buf.Data) < len(dst) {
		s.buf.Data = make([]int, len(dst))
	}
	s.buf.Data = s.buf.Data[:len(dst)]

	n, err := s.dec.PCMBuffer(s.buf)
	for i := range n {
		dst[i] = float32(s.buf.Data[i]-s.offset) * s.scale
	}
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	return n, err
}

func openWAV(r io.ReadSeeker) (source, TrackInfo, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, TrackInfo{}, fmt.Errorf("%w: invalid WAV header", ErrUnsupportedFormat)
	}
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, TrackInfo{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	info := TrackInfo{Codec: "pcm", SampleRate: int(dec.SampleRate), Channels: int(dec.NumChans)}
	if d, err := dec.Duration(); err == nil {
		info.Duration = d
	}
	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		info.Codec = fmt.Sprintf("wav-0x%04x", dec.WavAudioFormat)
		return nil, info, fmt.Errorf("%w: WAV format 0x%04x", ErrUnsupportedCodec, dec.WavAudioFormat)
	}
	if info.Channels == 0 {
		return nil, TrackInfo{}, ErrNoAudioTrack
	}

	src, err := newIntSource(dec, dec.Format(), int(dec.BitDepth), true)
	if err != nil {
		return nil, info, err
	}
	return src, info, nil
}

func openAIFF(r io.ReadSeeker) (source, TrackInfo, error) {
	dec := aiff.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, TrackInfo{}, fmt.Errorf("%w: invalid AIFF header", ErrUnsupportedFormat)
	}
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, TrackInfo{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	format := dec.Format()
	if format == nil || format.NumChannels == 0 {
		return nil, TrackInfo{}, ErrNoAudioTrack
	}
	info := TrackInfo{Codec: "pcm", SampleRate: format.SampleRate, Channels: format.NumChannels}
	if d, err := dec.Duration(); err == nil {
		info.Duration = d
	}

	src, err := newIntSource(dec, format, int(dec.BitDepth), false)
	if err != nil {
		return nil, info, err
	}
	return src, info, nil
}

// mp3Source reads go-mp3 output, which is always 16-bit stereo.
type mp3Source struct {
	dec *gomp3.Decoder
	buf []byte
}

func openMP3(r io.Reader) (source, TrackInfo, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, TrackInfo{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	info := TrackInfo{Codec: "mp3", SampleRate: dec.SampleRate(), Channels: 2}
	if n := dec.Length(); n > 0 && info.SampleRate > 0 {
		// Length counts bytes of 16-bit stereo output.
		info.Duration = samplesDuration(n/4, info.SampleRate)
	}
	return &mp3Source{dec: dec}, info, nil
}

func (s *mp3Source) SampleRate() int { return s.dec.SampleRate() }
func (s *mp3Source) Channels() int   { return 2 }

func (s *mp3Source) ReadSamples(dst []float32) (int, error) {
	need := len(dst) * 2
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	s.buf = s.buf[:need]

	n, err := io.ReadFull(s.dec, s.buf)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	samples := n / 2
	for i := range samples {
		v := int16(uint16(s.buf[2*i]) | uint16(s.buf[2*i+1])<<8)
		dst[i] = float32(v) / 32768
	}
	if samples > 0 && err == io.EOF {
		return samples, nil
	}
	return samples, err
}

// vorbisSource reads interleaved float samples from an Ogg Vorbis stream.
type vorbisSource struct {
	dec *oggvorbis.Reader
}

func openVorbis(r io.Reader) (source, TrackInfo, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, TrackInfo{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	info := TrackInfo{Codec: "vorbis", SampleRate: dec.SampleRate(), Channels: dec.Channels()}
	if n := dec.Length(); n > 0 && info.SampleRate > 0 {
		info.Duration = samplesDuration(n, info.SampleRate)
	}
	if info.Channels == 0 {
		return nil, info, ErrNoAudioTrack
	}
	return &vorbisSource{dec: dec}, info, nil
}

func (s *vorbisSource) SampleRate() int { return s.dec.SampleRate() }
func (s *vorbisSource) Channels() int   { return s.dec.Channels() }

func (s *vorbisSource) ReadSamples(dst []float32) (int, error) {
	// Keep reads frame aligned.
	ch := s.dec.Channels()
	dst = dst[:len(dst)/ch*ch]
	return s.dec.Read(dst)
}

func samplesDuration(frames int64, rate int) time.Duration {
	return time.Duration(frames) * time.Second / time.Duration(rate)
}
