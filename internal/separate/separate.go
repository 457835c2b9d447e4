// Package separate drives a source-separation tool that splits a mixed
// recording into vocal, drum, bass and residual stems.
package separate

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/stemmix/stemmix/internal/logger"
	"github.com/stemmix/stemmix/internal/song"
)

// Demucs shells out to the demucs CLI.
type Demucs struct {
	bin   string
	model string
}

// NewDemucs resolves the demucs binary up front so a missing install
// fails before a long download has already run.
func NewDemucs(bin, model string) (*Demucs, error) {
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("demucs not found: %w", err)
	}
	return &Demucs{bin: path, model: model}, nil
}

// Model names the separation model in use.
func (d *Demucs) Model() string {
	return d.model
}

func (d *Demucs) args(input, outDir string) []string {
	return []string{"-n", d.model, "-o", outDir, input}
}

// Separate splits input into stems under outDir and returns the file
// written for each stem name. Separation can take minutes on CPU; the
// context cancels it.
func (d *Demucs) Separate(ctx context.Context, input, outDir string) (map[string]string, error) {
	logger.Info("separating stems",
		logger.String("input", input),
		logger.String("model", d.model))

	cmd := exec.CommandContext(ctx, d.bin, d.args(input, outDir)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("demucs: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return d.collect(input, outDir)
}

// collect resolves the stem files demucs writes for input, laid out as
// <outDir>/<model>/<input name>/<stem>.<ext>. Output keeps the input's
// container when demucs supports it and falls back to wav otherwise.
func (d *Demucs) collect(input, outDir string) (map[string]string, error) {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	stemDir := filepath.Join(outDir, d.model, base)

	exts := []string{".wav"}
	if ext := strings.ToLower(filepath.Ext(input)); ext != "" && ext != ".wav" {
		exts = append([]string{ext}, exts...)
	}

	out := make(map[string]string, len(song.StemNames))
	for _, stem := range song.StemNames {
		var found string
		for _, ext := range exts {
			path := filepath.Join(stemDir, stem+ext)
			if _, err := os.Stat(path); err == nil {
				found = path
				break
			}
		}
		if found == "" {
			return nil, fmt.Errorf("missing %s stem under %s", stem, stemDir)
		}
		out[stem] = found
	}

	logger.Info("stems separated", logger.String("dir", stemDir))
	return out, nil
}
