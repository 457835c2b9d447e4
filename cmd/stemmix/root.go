package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stemmix/stemmix/internal/config"
	"github.com/stemmix/stemmix/internal/logger"
)

var (
	cfg      config.Config
	songsDir string
)

var rootCmd = &cobra.Command{
	Use:   "stemmix",
	Short: "Split songs into stems and mix them live in the terminal.",
	Long: `stemmix downloads a song, separates it into vocal, drum, bass and
residual stems, and plays everything back in sync with per-stem mute
and volume controls.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		if songsDir != "" {
			cfg.SongsDir = songsDir
		}
		logger.Init(logger.Config{
			Level:      logger.Level(cfg.LogLevel),
			FilePath:   cfg.LogFile,
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 30,
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&songsDir, "songs-dir", "",
		"directory holding song folders (overrides STEMMIX_SONGS_DIR)")
}

// Execute runs the CLI.
func Execute() {
	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
