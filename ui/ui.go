// Package ui provides the interactive player for fastplayer.
package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/fastplayer/fastplayer/internal/envelope"
	"github.com/fastplayer/fastplayer/internal/media"
	"github.com/fsnotify/fsnotify"
	"github.com/muesli/reflow/truncate"
)

const (
	statusMessageTimeout = 3 * time.Second
	seekStep             = 5 * time.Second
	defaultWidth         = 80
	ellipsis             = "…"
)

// NewProgram returns a new Tea program playing cfg.Path.
func NewProgram(cfg Config) *tea.Program {
	log.Debug("Starting fastplayer",
		"path", cfg.Path,
		"poll", cfg.PollInterval,
		"watch", cfg.Watch)
	return tea.NewProgram(newModel(cfg), tea.WithAltScreen())
}

type model struct {
	cfg      Config
	width    int
	fatalErr error

	// gen identifies the current open. Results tagged with an older
	// generation belong to a file that is no longer shown.
	gen       int
	path      string
	mediaType media.Type
	tags      media.Tags
	track     media.TrackInfo

	env        envelope.Envelope
	generating bool
	spinning   bool // a spinner tick loop is running
	genErr     error

	position time.Duration
	duration time.Duration
	playing  bool

	cacheSize    string
	confirmClear bool
	status       string
	statusSeq    int

	spinner   spinner.Model
	watcher   *fsnotify.Watcher
	reloadSeq int

	// Commands produced while building the model, run by Init.
	pending tea.Cmd
}

func newModel(cfg Config) model {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.Transport == nil {
		cfg.Transport = NewClockTransport()
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle))
	m := model{
		cfg:       cfg,
		width:     defaultWidth,
		spinner:   sp,
		cacheSize: "…",
	}

	path, err := filepath.Abs(cfg.Path)
	if err == nil {
		_, err = os.Stat(path)
	}
	if err != nil {
		log.Error("unable to open file", "file", cfg.Path, "error", err)
		m.fatalErr = err
		return m
	}

	if cfg.Watch {
		m.watcher = newWatcher(path)
	}
	m.pending = m.open(path)
	return m
}

func newWatcher(path string) *fsnotify.Watcher {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("file watching unavailable", "error", err)
		return nil
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		log.Warn("unable to watch file", "path", path, "error", err)
		_ = w.Close()
		return nil
	}
	return w
}

// open starts showing path under a new generation. A cached envelope is
// shown immediately; otherwise the returned command waits for generation.
func (m *model) open(path string) tea.Cmd {
	m.gen++
	m.path = path
	m.mediaType = media.TypeOf(path)
	m.tags = media.Tags{}
	m.track = media.TrackInfo{}
	m.env, m.genErr = nil, nil
	m.duration, m.position, m.playing = 0, 0, false
	m.cfg.Transport.Load(0)

	cmds := []tea.Cmd{
		probeTrack(m.gen, m.cfg.Opener, path),
		readTags(m.gen, path),
	}

	if m.cfg.Waveform != nil {
		t := m.cfg.Waveform.Request(context.Background(), path)
		if t.Hit {
			m.env, m.generating = t.Cached, false
		} else {
			m.generating = true
			cmds = append(cmds, waitForEnvelope(m.gen, t), m.startSpinner())
		}
	}

	log.Debug("opened file", "path", path, "gen", m.gen, "generating", m.generating)
	return tea.Batch(cmds...)
}

// startSpinner starts the spinner tick loop unless one is already running.
func (m *model) startSpinner() tea.Cmd {
	if m.spinning {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

func (m model) Init() tea.Cmd {
	if m.fatalErr != nil {
		return nil
	}
	return tea.Batch(
		m.pending,
		tick(m.cfg.PollInterval),
		cacheSize(m.cfg.Cache),
		watchFile(m.watcher, m.path),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// If there's been an error, any key exits
	if m.fatalErr != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tickMsg:
		m.position = m.cfg.Transport.Position()
		m.playing = m.cfg.Transport.Playing()
		return m, tick(m.cfg.PollInterval)

	case spinner.TickMsg:
		// Let the spinner loop die out when nothing is generating.
		if !m.generating {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case envelopeMsg:
		if msg.gen != m.gen {
			log.Debug("discarding stale waveform", "path", msg.result.Path, "gen", msg.gen, "current", m.gen)
			return m, nil
		}
		m.generating = false
		m.env, m.genErr = msg.result.Envelope, msg.result.Err
		return m, cacheSize(m.cfg.Cache)

	case trackMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.track = msg.info
		m.duration = msg.info.Duration
		m.cfg.Transport.Load(m.duration)

	case tagsMsg:
		if msg.gen == m.gen {
			m.tags = msg.tags
		}

	case fileChangedMsg:
		m.reloadSeq++
		return m, tea.Batch(reloadAfter(m.reloadSeq), watchFile(m.watcher, m.path))

	case reloadMsg:
		if msg.seq != m.reloadSeq {
			return m, nil
		}
		log.Info("file changed on disk, reloading", "path", m.path)
		cmd := m.open(m.path)
		return m, cmd

	case watchErrMsg:
		log.Warn("file watch error", "error", msg.err)
		return m, watchFile(m.watcher, m.path)

	case cacheSizeMsg:
		m.cacheSize = string(msg)

	case cacheClearedMsg:
		return m, tea.Batch(
			m.setStatus(fmt.Sprintf("Removed %d cache %s", int(msg), plural(int(msg), "file", "files"))),
			cacheSize(m.cfg.Cache),
		)

	case statusTimeoutMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.confirmClear {
		m.confirmClear = false
		if key == "y" || key == "Y" {
			return m, clearCache(m.cfg.Cache)
		}
		return m, m.setStatus("Cache left alone")
	}

	t := m.cfg.Transport
	switch key {
	case "q", "ctrl+c":
		if m.watcher != nil {
			_ = m.watcher.Close()
		}
		return m, tea.Quit

	case "ctrl+z":
		return m, tea.Suspend

	case " ", "p":
		if t.Playing() {
			t.Pause()
		} else {
			t.Play()
		}

	case "s":
		t.Stop()

	case "home", "g":
		t.Seek(0)

	case "left", "h":
		t.Seek(t.Position() - seekStep)

	case "right", "l":
		t.Seek(t.Position() + seekStep)

	case "0", "1", "2", "3", "4", "5", "6", "7", "8", "9":
		if d := t.Duration(); d > 0 {
			frac := float64(key[0]-'0') / 10
			t.Seek(time.Duration(frac * float64(d)))
		}

	case "c":
		if m.cfg.Cache != nil {
			m.confirmClear = true
		}
		return m, nil

	default:
		return m, nil
	}

	m.position = t.Position()
	m.playing = t.Playing()
	return m, nil
}

func (m *model) setStatus(s string) tea.Cmd {
	m.statusSeq++
	m.status = s
	return statusTimeout(m.statusSeq)
}

func (m model) View() string {
	if m.fatalErr != nil {
		return appStyle.Render(warnStyle.Render("Error: "+m.fatalErr.Error()) + "\n\n" + subtleStyle.Render("Press any key to exit"))
	}

	inner := max(m.width-appStyle.GetHorizontalPadding(), 10)
	var b strings.Builder

	b.WriteString(truncate.StringWithTail(m.header(), uint(inner), ellipsis)) //nolint:gosec
	b.WriteString("\n")
	if sub := m.subheader(); sub != "" {
		b.WriteString(subtleStyle.Render(truncate.StringWithTail(sub, uint(inner), ellipsis))) //nolint:gosec
	}
	b.WriteString("\n\n")

	switch {
	case m.generating:
		b.WriteString(m.spinner.View() + " Generating waveform" + ellipsis)
	case m.genErr != nil:
		b.WriteString(subtleStyle.Render("No waveform available"))
	case m.env.Empty():
		b.WriteString(subtleStyle.Render("No audio"))
	default:
		b.WriteString(renderWaveform(m.env, inner, m.progress()))
	}
	b.WriteString("\n\n")

	icon := "■"
	if m.playing {
		icon = "▶"
	} else if m.position > 0 {
		icon = "‖"
	}
	b.WriteString(fmt.Sprintf("%s %s / %s", icon, formatTime(m.position), formatTime(m.duration)))
	b.WriteString("\n\n")

	switch {
	case m.confirmClear:
		b.WriteString(warnStyle.Render(fmt.Sprintf("Clear all cached waveforms (%s)? y/N", m.cacheSize)))
	case m.status != "":
		b.WriteString(m.status)
	}
	b.WriteString("\n")

	help := "space play/pause · s stop · g start · ←/→ 5s · 0-9 seek · c clear cache · q quit"
	b.WriteString(subtleStyle.Render(truncate.StringWithTail(help+" · cache "+m.cacheSize, uint(inner), ellipsis))) //nolint:gosec

	return appStyle.Render(b.String())
}

func (m model) header() string {
	title := m.tags.Title
	if title == "" {
		title = filepath.Base(m.path)
	}
	return badgeStyle.Render("fastplayer") + " " + titleStyle.Render(title)
}

func (m model) subheader() string {
	var parts []string
	if m.tags.Artist != "" {
		parts = append(parts, m.tags.Artist)
	}
	if m.tags.Album != "" {
		parts = append(parts, m.tags.Album)
	}
	if m.mediaType != media.TypeUnknown {
		parts = append(parts, m.mediaType.String())
	}
	if m.track.Codec != "" {
		parts = append(parts, m.track.String())
	}
	return strings.Join(parts, " · ")
}

func (m model) progress() float64 {
	if m.duration <= 0 {
		return 0
	}
	return float64(m.position) / float64(m.duration)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
