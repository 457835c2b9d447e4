package fetch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/stemmix/stemmix/internal/logger"
)

// YTDLP shells out to yt-dlp for audio downloads.
type YTDLP struct {
	bin    string
	format string
}

// NewYTDLP resolves the yt-dlp binary up front so a missing install
// fails before any download starts. The format names the container the
// audio is converted to.
func NewYTDLP(bin, format string) (*YTDLP, error) {
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp not found: %w", err)
	}
	return &YTDLP{bin: path, format: format}, nil
}

func (y *YTDLP) args(url, destDir string) []string {
	return []string{
		"--no-playlist",
		"--format", "bestaudio/best",
		"--extract-audio",
		"--audio-format", y.format,
		"--audio-quality", "192",
		"--output", filepath.Join(destDir, "%(id)s.%(ext)s"),
		"--no-simulate",
		"--print", "title",
		"--print", "after_move:filepath",
		"--no-warnings",
		"--quiet",
		url,
	}
}

// Download fetches the URL's audio into destDir and reports the source
// title plus the converted file's path.
func (y *YTDLP) Download(ctx context.Context, url, destDir string) (string, string, error) {
	logger.Info("downloading audio", logger.String("url", url))

	cmd := exec.CommandContext(ctx, y.bin, y.args(url, destDir)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", "", fmt.Errorf("yt-dlp: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	title, path, err := parsePrintOutput(stdout.String())
	if err != nil {
		return "", "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", "", fmt.Errorf("yt-dlp reported %s: %w", path, err)
	}

	logger.Info("download complete",
		logger.String("title", title),
		logger.String("path", path))
	return title, path, nil
}

// parsePrintOutput splits yt-dlp --print output: the title comes first,
// the post-processed file path last.
func parsePrintOutput(out string) (string, string, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return "", "", fmt.Errorf("unexpected yt-dlp output: %q", strings.TrimSpace(out))
	}
	title := strings.TrimSpace(lines[0])
	path := strings.TrimSpace(lines[len(lines)-1])
	if title == "" || path == "" {
		return "", "", fmt.Errorf("unexpected yt-dlp output: %q", strings.TrimSpace(out))
	}
	return title, path, nil
}

// sourcePatterns match inputs that name a remote video even when the
// scheme is left off.
var sourcePatterns = []string{
	"youtube.com/watch",
	"youtu.be/",
	"youtube.com/embed/",
	"youtube.com/v/",
	"m.youtube.com/watch",
}

// IsURL reports whether the argument should be fetched rather than
// opened as a local song directory.
func IsURL(arg string) bool {
	lower := strings.ToLower(arg)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return true
	}
	for _, p := range sourcePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
