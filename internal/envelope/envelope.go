package envelope

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Points is the display length of an envelope. Shorter sources produce
// shorter envelopes; nothing is ever padded.
const Points = 1000

// FullScale is the magnitude of a signed 16-bit sample.
const FullScale = 32768.0

// ErrOutOfRange is returned by Validate for values outside [-1, 1] or non-finite values.
var ErrOutOfRange = errors.New("envelope value out of range")

// ErrTooLong is returned by Validate for envelopes longer than Points.
var ErrTooLong = errors.New("envelope longer than display length")

// Envelope is an ordered sequence of normalized amplitudes in [-1, 1].
// An envelope is replaced wholesale and never mutated after it is built.
type Envelope []float32

// Len returns the number of points.
func (e Envelope) Len() int { return len(e) }

// Empty reports whether there is nothing to draw.
func (e Envelope) Empty() bool { return len(e) == 0 }

// Equal reports whether two envelopes hold the same values.
func (e Envelope) Equal(o Envelope) bool {
	if len(e) != len(o) {
		return false
	}
	for i := range e {
		if e[i] != o[i] {
			return false
		}
	}
	return true
}

// Peak returns the largest absolute amplitude.
func (e Envelope) Peak() float32 {
	var peak float32
	for _, v := range e {
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}

// Validate checks the length and value invariants.
func (e Envelope) Validate() error {
	if len(e) > Points {
		return fmt.Errorf("%w: %d points", ErrTooLong, len(e))
	}
	for i, v := range e {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) || v < -1 || v > 1 {
			return fmt.Errorf("%w: index %d = %v", ErrOutOfRange, i, v)
		}
	}
	return nil
}

// Normalize converts little-endian signed 16-bit PCM to floats in [-1, 1)
// by dividing by FullScale. A trailing odd byte is ignored.
func Normalize(pcm []byte) []float32 {
	out := make([]float32, len(pcm)/2)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(pcm[2*i:]))
		out[i] = float32(v) / FullScale
	}
	return out
}

// Downsample reduces samples to n points by nearest-index selection:
// out[i] = samples[floor(i*len(samples)/n)]. Inputs of n or fewer samples
// are returned unchanged.
func Downsample(samples []float32, n int) Envelope {
	l := len(samples)
	if n <= 0 || l <= n {
		return Envelope(samples)
	}
	out := make(Envelope, n)
	for i := range out {
		out[i] = samples[int(int64(i)*int64(l)/int64(n))]
	}
	return out
}
