package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FFmpegOpener decodes anything ffmpeg can read by streaming raw PCM from a
// subprocess.
type FFmpegOpener struct {
	bin string
}

// NewFFmpegOpener returns an opener that runs bin, looked up in PATH.
func NewFFmpegOpener(bin string) *FFmpegOpener {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpegOpener{bin: bin}
}

// Name implements Opener.
func (*FFmpegOpener) Name() string { return BackendFFmpeg }

// Open implements Opener. The file is not read until AudioTrack.
func (o *FFmpegOpener) Open(_ context.Context, path string) (Asset, error) {
	bin, err := exec.LookPath(o.bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFFmpegUnavailable, err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnsupportedFormat, path)
	}
	return &ffmpegAsset{bin: bin, path: path}, nil
}

type ffmpegAsset struct {
	bin  string
	path string
}

// AudioTrack probes the file by asking ffmpeg to describe its streams.
func (a *ffmpegAsset) AudioTrack(ctx context.Context) (Track, error) {
	cmd := exec.CommandContext(ctx, a.bin, "-hide_banner", "-nostdin", "-i", a.path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// With no output file ffmpeg always exits non-zero; the stream listing
	// is what matters.
	_ = cmd.Run()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := parseProbe(stderr.String())
	if err != nil {
		return nil, err
	}
	return &ffmpegTrack{bin: a.bin, path: a.path, info: info}, nil
}

func (a *ffmpegAsset) Close() error { return nil }

var (
	inputLine   = regexp.MustCompile(`(?m)^Input #0`)
	audioStream = regexp.MustCompile(`(?m)Stream #\d+:\d+\S*: Audio: (\w+)[^\n]*?, (\d+) Hz, ([^,\n]+)`)
	channelsN   = regexp.MustCompile(`^(\d+) channels`)
	durationRe  = regexp.MustCompile(`Duration: (\d+):(\d\d):(\d\d(?:\.\d+)?)`)
)

// parseProbe extracts the first audio stream from ffmpeg's input listing.
func parseProbe(out string) (TrackInfo, error) {
	if !inputLine.MatchString(out) {
		return TrackInfo{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, lastLine(out))
	}
	m := audioStream.FindStringSubmatch(out)
	if m == nil {
		return TrackInfo{}, ErrNoAudioTrack
	}
	rate, _ := strconv.Atoi(m[2])
	return TrackInfo{
		Codec:      m[1],
		SampleRate: rate,
		Channels:   parseLayout(m[3]),
		Duration:   parseDuration(out),
	}, nil
}

func parseDuration(out string) time.Duration {
	m := durationRe.FindStringSubmatch(out)
	if m == nil {
		return 0
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	sec, _ := strconv.ParseFloat(m[3], 64)
	return time.Duration(h)*time.Hour + time.Duration(mins)*time.Minute +
		time.Duration(sec*float64(time.Second))
}

func parseLayout(layout string) int {
	layout = strings.TrimSpace(layout)
	switch {
	case layout == "mono":
		return 1
	case layout == "stereo":
		return 2
	case strings.HasPrefix(layout, "5.1"):
		return 6
	case strings.HasPrefix(layout, "7.1"):
		return 8
	}
	if m := channelsN.FindStringSubmatch(layout); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

type ffmpegTrack struct {
	bin  string
	path string
	info TrackInfo
}

func (t *ffmpegTrack) Info() TrackInfo { return t.info }

// DecodePCM16Mono streams the first audio stream downmixed to mono.
func (t *ffmpegTrack) DecodePCM16Mono(ctx context.Context) (io.ReadCloser, error) {
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, t.bin,
		"-v", "error", "-nostdin",
		"-i", t.path,
		"-map", "0:a:0", "-vn",
		"-ac", "1",
		"-f", "s16le", "-acodec", "pcm_s16le",
		"-",
	)

	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start %s: %w", t.bin, err)
	}

	return &processReader{
		reader: stdout,
		cmd:    cmd,
		ctx:    ctx,
		cancel: cancel,
		stderr: stderr,
	}, nil
}

// processReader wraps a process stdout. At end of stream it reaps the
// process so a failed decode surfaces as a read error instead of a short
// but clean stream.
type processReader struct {
	reader io.ReadCloser
	cmd    *exec.Cmd
	ctx    context.Context
	cancel context.CancelFunc
	stderr *bytes.Buffer

	once    sync.Once
	waitErr error
}

// Read implements io.Reader.
func (pr *processReader) Read(p []byte) (int, error) {
	if err := pr.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := pr.reader.Read(p)
	if err == io.EOF {
		if werr := pr.wait(); werr != nil {
			return n, werr
		}
	}
	return n, err
}

func (pr *processReader) wait() error {
	pr.once.Do(func() {
		err := pr.cmd.Wait()
		switch {
		case err == nil:
		case pr.ctx.Err() != nil:
			pr.waitErr = pr.ctx.Err()
		default:
			if msg := strings.TrimSpace(pr.stderr.String()); msg != "" {
				pr.waitErr = fmt.Errorf("%w: %w: %s", ErrDecode, err, lastLine(msg))
			} else {
				pr.waitErr = fmt.Errorf("%w: %w", ErrDecode, err)
			}
		}
	})
	return pr.waitErr
}

// Close implements io.Closer. It kills the process if it is still running.
func (pr *processReader) Close() error {
	pr.cancel()
	err := pr.reader.Close()
	if errors.Is(err, os.ErrClosed) {
		err = nil
	}
	werr := pr.wait()
	if errors.Is(werr, context.Canceled) {
		werr = nil
	}
	return errors.Join(err, werr)
}
