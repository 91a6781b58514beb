package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fastplayer/fastplayer/internal/envelope"
	"github.com/fastplayer/fastplayer/ui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	waveformJSON  bool
	waveformWidth uint

	waveformCmd = &cobra.Command{
		Use:   "waveform FILE",
		Short: "Print the waveform of a media file",
		Long: paragraph(fmt.Sprintf("\nPrint the %s of FILE as a sparkline or a JSON array. "+
			"The envelope is read from the cache, or generated and cached first.", keyword("amplitude envelope"))),
		Example: paragraph("fastplayer waveform song.mp3\nfastplayer waveform --json movie.mp4"),
		Args:    cobra.ExactArgs(1),
		RunE:    runWaveform,
	}
)

func runWaveform(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.Close() //nolint:errcheck

	res, err := e.provider.Provide(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if res.Err != nil {
		return res.Err
	}

	out := cmd.OutOrStdout()
	if waveformJSON {
		env := res.Envelope
		if env == nil {
			env = envelope.Envelope{}
		}
		return json.NewEncoder(out).Encode(env)
	}

	if res.Envelope.Empty() {
		return errors.New("no audio to draw")
	}
	fmt.Fprintln(out, ui.Sparkline(res.Envelope, sparklineWidth()))
	return nil
}

// sparklineWidth picks the flag value, else the terminal width capped at
// one column per envelope point.
func sparklineWidth() int {
	if waveformWidth > 0 {
		return int(waveformWidth) //nolint:gosec
	}
	width := 80
	if term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 { //nolint:gosec
			width = w
		}
	}
	return min(width, envelope.Points)
}

func init() {
	waveformCmd.Flags().BoolVar(&waveformJSON, "json", false, "print the envelope as a JSON array")
	waveformCmd.Flags().UintVarP(&waveformWidth, "width", "w", 0, "sparkline width (default: terminal width)")
}
