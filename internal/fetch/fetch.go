// Package fetch turns a source URL into a playable song directory: it
// downloads the audio, hands it to a stem separator, and assembles the
// results under the songs directory.
package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stemmix/stemmix/internal/logger"
	"github.com/stemmix/stemmix/internal/mixer"
	"github.com/stemmix/stemmix/internal/song"
)

// Stage identifies a step of the fetch pipeline.
type Stage int

const (
	StageDownload Stage = iota
	StageSeparate
	StageAssemble
)

func (s Stage) String() string {
	switch s {
	case StageDownload:
		return "download"
	case StageSeparate:
		return "separate"
	case StageAssemble:
		return "assemble"
	default:
		return "unknown"
	}
}

// Downloader turns a source URL into a local audio file, reporting the
// source's title alongside the file path.
type Downloader interface {
	Download(ctx context.Context, url, destDir string) (title, path string, err error)
}

// Separator splits an audio file into one file per stem, keyed by stem
// name.
type Separator interface {
	Separate(ctx context.Context, input, outDir string) (map[string]string, error)
	Model() string
}

// ProgressFunc receives stage transitions while a fetch runs. The
// detail string names the stage's subject (URL, file, directory).
type ProgressFunc func(stage Stage, detail string)

// Pipeline runs the download, separate and assemble stages for one URL.
type Pipeline struct {
	dl       Downloader
	sep      Separator
	songsDir string
	progress ProgressFunc
}

// NewPipeline wires a downloader and a separator to the songs directory.
func NewPipeline(dl Downloader, sep Separator, songsDir string) *Pipeline {
	return &Pipeline{dl: dl, sep: sep, songsDir: songsDir}
}

// OnProgress sets the stage callback. Pass nil to silence it.
func (p *Pipeline) OnProgress(fn ProgressFunc) {
	p.progress = fn
}

// Run fetches the URL into a fresh song directory and returns the
// assembled song. A directory created by this run is removed again when
// a later stage fails; pre-existing directories are left alone.
func (p *Pipeline) Run(ctx context.Context, url string) (s *song.Song, err error) {
	tmp, err := os.MkdirTemp("", "stemmix-")
	if err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	p.report(StageDownload, url)
	title, audioPath, err := p.dl.Download(ctx, url, tmp)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}

	name := song.SanitizeTitle(title)
	if name == "" {
		name = "untitled"
	}
	dir := filepath.Join(p.songsDir, name)
	_, statErr := os.Stat(dir)
	created := os.IsNotExist(statErr)
	defer func() {
		if err != nil && created {
			os.RemoveAll(dir)
		}
	}()

	p.report(StageSeparate, audioPath)
	stems, err := p.sep.Separate(ctx, audioPath, tmp)
	if err != nil {
		return nil, fmt.Errorf("separate: %w", err)
	}

	p.report(StageAssemble, dir)
	s, err = song.New(p.songsDir, name)
	if err != nil {
		return nil, err
	}
	if err = s.Attach(mixer.OriginalName, audioPath); err != nil {
		return nil, err
	}
	for _, stem := range song.StemNames {
		path, ok := stems[stem]
		if !ok {
			return nil, fmt.Errorf("separator returned no %s stem", stem)
		}
		if err = s.Attach(stem, path); err != nil {
			return nil, err
		}
	}
	if err = s.WriteManifest(url, p.sep.Model()); err != nil {
		return nil, err
	}

	logger.Info("song ready",
		logger.String("title", s.Title),
		logger.String("dir", s.Dir))
	return s, nil
}

func (p *Pipeline) report(st Stage, detail string) {
	if p.progress != nil {
		p.progress(st, detail)
	}
}
