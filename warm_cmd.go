package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fastplayer/fastplayer/internal/media"
	"github.com/muesli/gitcha"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var (
	warmAll bool

	warmCmd = &cobra.Command{
		Use:   "warm [DIR]",
		Short: "Generate waveforms for every media file in a directory",
		Long: paragraph(fmt.Sprintf("\n%s the waveform cache for every media file under DIR "+
			"(default: the current directory), so opening them later is instant. "+
			"Files ignored by .gitignore are skipped unless --all is given.", keyword("Warm"))),
		Args: cobra.MaximumNArgs(1),
		RunE: runWarm,
	}
)

func ignorePatterns() []string {
	return []string{
		"node_modules",
		".*",
	}
}

func runWarm(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("unable to open directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	if dir, err = filepath.Abs(dir); err != nil {
		return err
	}

	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.Close() //nolint:errcheck

	// Switch between FindFiles and FindAllFiles to bypass .gitignore rules
	var ch chan gitcha.SearchResult
	if warmAll {
		ch, err = gitcha.FindAllFilesExcept(dir, media.Patterns(), nil)
	} else {
		ch, err = gitcha.FindFilesExcept(dir, media.Patterns(), ignorePatterns())
	}
	if err != nil {
		return fmt.Errorf("unable to search %s: %w", dir, err)
	}

	start := time.Now()
	out := cmd.OutOrStdout()
	var (
		failed atomic.Int64
		mu     sync.Mutex
	)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(viper.GetInt("waveform.workers"))
	for res := range ch {
		path := res.Path
		g.Go(func() error {
			r, err := e.provider.Provide(ctx, path)
			if err != nil {
				return err
			}
			rel, _ := filepath.Rel(dir, path)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case r.Err != nil:
				failed.Add(1)
				fmt.Fprintf(out, "%s %s\n", keyword("✗"), rel)
				log.Warn("unable to warm", "path", path, "error", r.Err)
			case r.Envelope.Empty():
				fmt.Fprintf(out, "- %s (no audio)\n", rel)
			default:
				fmt.Fprintf(out, "%s %s\n", keyword("✓"), rel)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s := e.provider.Stats()
	fmt.Fprintf(out, "\n%d cached, %d generated, %d failed in %s (cache now %s)\n",
		s.Hits, s.Generated, failed.Load(), time.Since(start).Round(time.Millisecond), e.store.TotalSizeHuman())
	return nil
}

func init() {
	warmCmd.Flags().BoolVarP(&warmAll, "all", "a", false, "include hidden and git-ignored files")
}
