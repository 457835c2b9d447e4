package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Song library
	SongsDir string

	// Playback
	SampleRate      int           // device sample rate in Hz
	BufferDur       time.Duration // speaker buffer length
	ResampleQuality int           // beep resampler quality (1 fast .. 6 best)
	VolumeStep      float64       // per-keypress volume increment in the TUI

	// External tools
	YtdlpBin    string
	DemucsBin   string
	FFmpegBin   string
	DemucsModel string // htdemucs or htdemucs_ft
	FetchFormat string // audio format yt-dlp extracts to: wav, flac, mp3

	// Logging
	LogFile  string
	LogLevel string
}

// Load reads configuration from the environment with sane defaults. A .env
// file in the working directory is merged in first when present.
func Load() Config {
	_ = godotenv.Load()

	songsDir := envStr("STEMMIX_SONGS_DIR", "songs")
	return Config{
		SongsDir: songsDir,

		SampleRate:      envInt("STEMMIX_SAMPLE_RATE", 44100),
		BufferDur:       envDur("STEMMIX_BUFFER", 50*time.Millisecond),
		ResampleQuality: envInt("STEMMIX_RESAMPLE_QUALITY", 4),
		VolumeStep:      envFloat("STEMMIX_VOLUME_STEP", 0.1),

		YtdlpBin:    envStr("STEMMIX_YTDLP_BIN", "yt-dlp"),
		DemucsBin:   envStr("STEMMIX_DEMUCS_BIN", "demucs"),
		FFmpegBin:   envStr("STEMMIX_FFMPEG_BIN", "ffmpeg"),
		DemucsModel: envStr("STEMMIX_DEMUCS_MODEL", "htdemucs"),
		FetchFormat: envStr("STEMMIX_FETCH_FORMAT", "wav"),

		LogFile:  envStr("STEMMIX_LOG_FILE", filepath.Join(songsDir, "stemmix.log")),
		LogLevel: envStr("STEMMIX_LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
