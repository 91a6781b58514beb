package main

import (
	"fmt"

	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/spf13/cobra"
)

var manCmd = &cobra.Command{
	Use:                   "man",
	Short:                 "Generates manpages",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Hidden:                true,
	Args:                  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		page, err := mcobra.NewManPage(1, rootCmd)
		if err != nil {
			return err
		}

		page = page.WithSection("Files", "Waveform cache entries live in the WaveformCache directory "+
			"under the user data directory, one <key>.waveform file per media file.\n"+
			"Configuration is read from fastplayer.yml.")
		fmt.Println(page.Build(roff.NewDocument()))
		return nil
	},
}
