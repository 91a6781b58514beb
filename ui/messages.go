package ui

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/fastplayer/fastplayer/internal/media"
	"github.com/fastplayer/fastplayer/internal/waveform"
	"github.com/fsnotify/fsnotify"
)

const reloadDelay = 250 * time.Millisecond

// Messages about an open file carry the generation of the open that asked
// for them.
type (
	envelopeMsg struct {
		gen    int
		result waveform.Result
	}
	trackMsg struct {
		gen  int
		info media.TrackInfo
		err  error
	}
	tagsMsg struct {
		gen  int
		tags media.Tags
	}
)

type (
	tickMsg          time.Time
	fileChangedMsg   struct{}
	reloadMsg        struct{ seq int }
	watchErrMsg      struct{ err error }
	cacheSizeMsg     string
	cacheClearedMsg  int
	statusTimeoutMsg struct{ seq int }
)

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForEnvelope blocks off the interactive loop until the generation
// behind t finishes.
func waitForEnvelope(gen int, t *waveform.Ticket) tea.Cmd {
	return func() tea.Msg {
		<-t.Done()
		return envelopeMsg{gen: gen, result: t.Result()}
	}
}

func probeTrack(gen int, opener media.Opener, path string) tea.Cmd {
	if opener == nil {
		return nil
	}
	return func() tea.Msg {
		info, err := media.Probe(context.Background(), opener, path)
		if err != nil && !errors.Is(err, media.ErrNoAudioTrack) {
			log.Debug("unable to probe track", "path", path, "error", err)
		}
		return trackMsg{gen: gen, info: info, err: err}
	}
}

func readTags(gen int, path string) tea.Cmd {
	return func() tea.Msg {
		tags, err := media.ReadTags(path)
		if err != nil {
			log.Debug("no tags", "path", path, "error", err)
		}
		return tagsMsg{gen: gen, tags: tags}
	}
}

func cacheSize(c CacheAdmin) tea.Cmd {
	if c == nil {
		return nil
	}
	return func() tea.Msg {
		return cacheSizeMsg(c.TotalSizeHuman())
	}
}

func clearCache(c CacheAdmin) tea.Cmd {
	return func() tea.Msg {
		return cacheClearedMsg(c.ClearAll())
	}
}

// watchFile waits for the next write to path. The parent directory is
// watched because editors and downloaders often replace files by rename.
func watchFile(w *fsnotify.Watcher, path string) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return nil
				}
				if filepath.Clean(ev.Name) != path {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					return fileChangedMsg{}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return nil
				}
				return watchErrMsg{err}
			}
		}
	}
}

func reloadAfter(seq int) tea.Cmd {
	return tea.Tick(reloadDelay, func(time.Time) tea.Msg {
		return reloadMsg{seq: seq}
	})
}

func statusTimeout(seq int) tea.Cmd {
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusTimeoutMsg{seq: seq}
	})
}
