package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/stemmix/stemmix/internal/audio"
	"github.com/stemmix/stemmix/internal/mixer"
	"github.com/stemmix/stemmix/internal/song"
	"github.com/stemmix/stemmix/internal/ui"
)

var playCmd = &cobra.Command{
	Use:   "play <title-or-directory>",
	Short: "Mix an already separated song.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := resolveSong(args[0])
		if err != nil {
			return err
		}
		return runMixer(s)
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
}

// resolveSong accepts either a song directory path or a title under the
// songs directory.
func resolveSong(arg string) (*song.Song, error) {
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		return song.FromPath(arg)
	}
	return song.FromPath(filepath.Join(cfg.SongsDir, arg))
}

func runMixer(s *song.Song) error {
	eng, err := audio.NewSpeakerEngine(cfg.SampleRate, cfg.BufferDur, cfg.ResampleQuality, cfg.FFmpegBin)
	if err != nil {
		return err
	}

	mx := mixer.New(eng)
	defer mx.Close()
	for _, part := range song.Parts() {
		path, ok := s.Files[part]
		if !ok {
			continue
		}
		clip, err := eng.LoadClip(path)
		if err != nil {
			return fmt.Errorf("load %s: %w", part, err)
		}
		if err := mx.AddTrack(part, clip); err != nil {
			return err
		}
	}

	fmt.Printf("Loaded tracks: %s\n", strings.Join(mx.Tracks(), ", "))
	mx.Play()

	p := tea.NewProgram(ui.New(mx, s.Title, cfg.VolumeStep), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("interface: %w", err)
	}
	fmt.Println("Mixer stopped. Goodbye!")
	return nil
}
