package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stemmix/stemmix/internal/song"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the songs in the songs directory.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		songs, err := song.List(cfg.SongsDir)
		if err != nil {
			return err
		}
		if len(songs) == 0 {
			fmt.Printf("No songs under %s\n", cfg.SongsDir)
			return nil
		}
		for _, s := range songs {
			line := fmt.Sprintf("  %-32s %d stems", filepath.Base(s.Dir), len(s.Stems()))
			if s.Meta != nil && s.Meta.SourceURL != "" {
				line += "  " + s.Meta.SourceURL
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
