// Package main provides the entry point for the fastplayer CLI application.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/fastplayer/fastplayer/ui"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	debug      bool

	// Maps nested keys such as cache.dir to FASTPLAYER_CACHE_DIR.
	envKeyReplacer = strings.NewReplacer(".", "_")

	rootCmd = &cobra.Command{
		Use:   "fastplayer FILE",
		Short: "Play media files with an instant waveform",
		Long: paragraph(
			fmt.Sprintf("\nPlay media files in the terminal with a %s that is cached for instant reopening.", keyword("waveform")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.ExactArgs(1),
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return validateOptions()
		},
		RunE: execute,
	}
)

func validateOptions() error {
	debug = viper.GetBool("debug")
	if debug {
		log.SetLevel(log.DebugLevel)
	}

	switch b := viper.GetString("decoder.backend"); b {
	case "auto", "native", "ffmpeg":
	default:
		return fmt.Errorf("unknown decoder backend %q: use auto, native or ffmpeg", b)
	}

	level := viper.GetInt("cache.compression_level")
	if level < 0 || level > 22 {
		return fmt.Errorf("cache compression_level must be between 0 and 22, got %d", level)
	}
	if viper.GetInt("cache.memory_mb") < 0 {
		return errors.New("cache memory_mb must not be negative")
	}
	if viper.GetInt("waveform.workers") < 1 {
		return errors.New("waveform workers must be at least 1")
	}
	if viper.GetDuration("decoder.timeout") < 0 {
		return errors.New("decoder timeout must not be negative")
	}
	return nil
}

func execute(_ *cobra.Command, args []string) error {
	info, err := os.Stat(args[0])
	if err != nil {
		return fmt.Errorf("unable to open file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory: use 'fastplayer warm' to cache a directory", args[0])
	}
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("unable to get absolute path: %w", err)
	}
	return runTUI(path)
}

func runTUI(path string) error {
	// Read environment to get UI tunables
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	e, err := newEngine()
	if err != nil {
		return err
	}
	defer e.Close() //nolint:errcheck

	cfg.Path = path
	cfg.Waveform = e.provider
	cfg.Cache = e.cache
	cfg.Opener = e.opener
	cfg.Transport = ui.NewClockTransport()

	// Run Bubble Tea program
	if _, err := ui.NewProgram(cfg).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "write debug output to the log file")
	rootCmd.PersistentFlags().String("cache-dir", "", "waveform cache directory")
	rootCmd.PersistentFlags().String("decoder", "", "decoder backend (auto, native or ffmpeg)")

	// Config bindings
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("cache.dir", rootCmd.PersistentFlags().Lookup("cache-dir"))
	_ = viper.BindPFlag("decoder.backend", rootCmd.PersistentFlags().Lookup("decoder"))

	setDefaults()

	rootCmd.AddCommand(configCmd, manCmd, cacheCmd, waveformCmd, keyCmd, warmCmd)
}

func setDefaults() {
	viper.SetDefault("cache.dir", "")
	viper.SetDefault("cache.compression_level", 3)
	viper.SetDefault("cache.memory_mb", 4)
	viper.SetDefault("decoder.backend", "auto")
	viper.SetDefault("decoder.ffmpeg", "ffmpeg")
	viper.SetDefault("decoder.timeout", "10m")
	viper.SetDefault("waveform.workers", 2)
	viper.SetDefault("debug", false)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "fastplayer")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "fastplayer")}, dirs...)
	}

	if c := os.Getenv("FASTPLAYER_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("fastplayer")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("fastplayer")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "fastplayer.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
