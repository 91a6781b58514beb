package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/fastplayer/fastplayer/internal/envelope"
)

var bars = []rune("▁▂▃▄▅▆▇█")

// columns reduces env to width bar heights in [0, len(bars)), using the peak
// absolute amplitude of each column and scaling to the loudest point.
func columns(env envelope.Envelope, width int) []int {
	if width <= 0 || env.Empty() {
		return nil
	}
	peak := env.Peak()
	out := make([]int, width)
	if peak == 0 {
		return out
	}

	n := env.Len()
	for c := range out {
		lo := c * n / width
		hi := (c + 1) * n / width
		if hi <= lo {
			hi = lo + 1
		}
		var amp float32
		for _, v := range env[lo:hi] {
			if v < 0 {
				v = -v
			}
			if v > amp {
				amp = v
			}
		}
		level := int(amp/peak*float32(len(bars)-1) + 0.5)
		out[c] = min(level, len(bars)-1)
	}
	return out
}

// Sparkline renders env as a single line of block characters.
func Sparkline(env envelope.Envelope, width int) string {
	var b strings.Builder
	for _, level := range columns(env, width) {
		b.WriteRune(bars[level])
	}
	return b.String()
}

// renderWaveform renders env with the part before progress (0 to 1)
// highlighted.
func renderWaveform(env envelope.Envelope, width int, progress float64) string {
	cols := columns(env, width)
	if cols == nil {
		return ""
	}
	played := int(progress * float64(len(cols)))
	played = max(0, min(played, len(cols)))

	var head, tail strings.Builder
	for i, level := range cols {
		if i < played {
			head.WriteRune(bars[level])
		} else {
			tail.WriteRune(bars[level])
		}
	}
	return playedStyle.Render(head.String()) + waveStyle.Render(tail.String())
}

// formatTime renders d as m:ss, or h:mm:ss from one hour up.
func formatTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	h, m, s := total/3600, total/60%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
