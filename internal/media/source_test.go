package media

import (
	"context"
	"errors"
	"io"
	"testing"
)

// sliceSource serves interleaved samples in chunks of at most step values.
type sliceSource struct {
	rate     int
	channels int
	data     []float32
	step     int
	err      error // returned once data is exhausted, io.EOF if nil
}

func (s *sliceSource) SampleRate() int { return s.rate }
func (s *sliceSource) Channels() int   { return s.channels }

func (s *sliceSource) ReadSamples(dst []float32) (int, error) {
	if len(s.data) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		return 0, io.EOF
	}
	n := len(dst)
	if s.step > 0 && n > s.step {
		n = s.step
	}
	n = copy(dst[:n], s.data)
	s.data = s.data[n:]
	return n, nil
}

func TestMonoMixer(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		in       []float32
		want     []float32
	}{
		{"mono passthrough", 1, []float32{0.5, -0.5}, []float32{0.5, -0.5}},
		{"stereo", 2, []float32{0.5, 0.25, -1, 1}, []float32{0.375, 0}},
		{"three channels", 3, []float32{0.3, 0.3, 0.3, -0.6, 0, 0}, []float32{0.3, -0.2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMonoMixer(&sliceSource{rate: 8000, channels: tt.channels, data: tt.in})
			if m.Channels() != 1 || m.SampleRate() != 8000 {
				t.Fatalf("mixer reports %d Hz %d ch", m.SampleRate(), m.Channels())
			}

			var got []float32
			buf := make([]float32, 16)
			for {
				n, err := m.ReadSamples(buf)
				got = append(got, buf[:n]...)
				if err == io.EOF {
					break
				}
				if err != nil {
					t.Fatalf("ReadSamples() error = %v", err)
				}
			}

			if len(got) != len(tt.want) {
				t.Fatalf("got %d samples, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if d := got[i] - tt.want[i]; d > 1e-6 || d < -1e-6 {
					t.Errorf("sample %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPCMReader(t *testing.T) {
	src := &sliceSource{rate: 8000, channels: 1, data: []float32{0, 0.5, -0.5, 1, -1}, step: 2}
	r := newPCMReader(context.Background(), src, nil)

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	got := pcmSamples(data)
	want := []int16{0, 16384, -16384, 32767, -32768}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestPCMReaderDecodeError(t *testing.T) {
	boom := errors.New("bad frame")
	src := &sliceSource{rate: 8000, channels: 1, data: []float32{0.1}, err: boom}
	r := newPCMReader(context.Background(), src, nil)

	_, err := io.ReadAll(r)
	if !errors.Is(err, ErrDecode) || !errors.Is(err, boom) {
		t.Errorf("ReadAll() error = %v, want ErrDecode wrapping the cause", err)
	}
}

func TestPCMReaderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newPCMReader(ctx, &sliceSource{rate: 8000, channels: 1, data: []float32{0.1}}, nil)
	if _, err := r.Read(make([]byte, 8)); !errors.Is(err, context.Canceled) {
		t.Errorf("Read() error = %v, want context.Canceled", err)
	}
}

type closeCounter struct{ n int }

func (c *closeCounter) Close() error { c.n++; return nil }

func TestPCMReaderClose(t *testing.T) {
	c := &closeCounter{}
	r := newPCMReader(context.Background(), &sliceSource{rate: 1, channels: 1}, c)
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if c.n != 1 {
		t.Errorf("closer called %d times, want 1", c.n)
	}
}

func TestFloatToInt16(t *testing.T) {
	tests := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{1, 32767},
		{-1, -32768},
		{2, 32767},
		{-2, -32768},
		{100.0 / 32768, 100},
	}
	for _, tt := range tests {
		if got := floatToInt16(tt.in); got != tt.want {
			t.Errorf("floatToInt16(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
