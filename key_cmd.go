package main

import (
	"fmt"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"
	"github.com/fastplayer/fastplayer/internal/cache"
	"github.com/spf13/cobra"
)

var (
	copyKey     bool
	showDetails bool

	keyCmd = &cobra.Command{
		Use:   "key FILE",
		Short: "Print the cache key of a media file",
		Long: paragraph(fmt.Sprintf("\nPrint the %s derived from the name, size and modification time of FILE.",
			keyword("cache key"))),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cache.IdentityOf(args[0])
			if err != nil {
				return err
			}
			key := cache.DeriveKey(id)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, key)
			if showDetails {
				fmt.Fprintln(out, "identity:", id.Canonical())
				if dir, err := cacheDir(); err == nil {
					fmt.Fprintln(out, "entry:   ", filepath.Join(dir, key.Filename()))
				}
			}

			if copyKey {
				if err := clipboard.WriteAll(key.String()); err != nil {
					log.Warn("unable to copy to clipboard", "error", err)
					return fmt.Errorf("unable to copy to clipboard: %w", err)
				}
			}
			return nil
		},
	}
)

func init() {
	keyCmd.Flags().BoolVarP(&copyKey, "copy", "c", false, "copy the key to the clipboard")
	keyCmd.Flags().BoolVarP(&showDetails, "verbose", "v", false, "also print the identity string and entry path")
}
