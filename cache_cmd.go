package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	sizeInBytes bool
	assumeYes   bool

	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the waveform cache",
		Args:  cobra.NoArgs,
	}

	cacheSizeCmd = &cobra.Command{
		Use:   "size",
		Short: "Show how much space cached waveforms use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			defer e.Close() //nolint:errcheck

			out := cmd.OutOrStdout()
			if !sizeInBytes {
				fmt.Fprintln(out, e.store.TotalSizeHuman())
				return nil
			}
			u, err := e.store.Usage()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s bytes in %s %s\n",
				humanize.Comma(u.Bytes), humanize.Comma(int64(u.Entries)), pluralize(u.Entries, "entry", "entries"))
			return nil
		},
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached waveform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			defer e.Close() //nolint:errcheck

			if !assumeYes {
				if !term.IsTerminal(int(os.Stdin.Fd())) { //nolint:gosec
					return errors.New("refusing to clear the cache without confirmation: pass --yes")
				}
				ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
					fmt.Sprintf("Clear all cached waveforms (%s)?", e.store.TotalSizeHuman()))
				if err != nil || !ok {
					return err
				}
			}

			n := e.cache.ClearAll()
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache %s\n", n, pluralize(n, "file", "files"))
			return nil
		},
	}

	cachePathCmd = &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := cacheDir()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
)

// confirm asks a yes/no question, defaulting to no.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("unable to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func init() {
	cacheSizeCmd.Flags().BoolVar(&sizeInBytes, "bytes", false, "print the exact size in bytes and the entry count")
	cacheClearCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
	cacheCmd.AddCommand(cacheSizeCmd, cacheClearCmd, cachePathCmd)
}
