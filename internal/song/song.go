// Package song manages the on-disk layout of a song: one directory per
// title holding the original mix plus its separated stems, with an
// optional manifest recording where the audio came from.
package song

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/stemmix/stemmix/internal/logger"
	"github.com/stemmix/stemmix/internal/mixer"
)

// StemNames are the separated parts a song directory may hold, in
// display order after the original mix. They match the four-source
// separation vocabulary.
var StemNames = []string{"bass", "drums", "vocals", "other"}

// exts are the clip containers we look for, in preference order.
var exts = []string{".wav", ".flac", ".mp3", ".ogg", ".opus"}

var (
	// ErrMissingOriginal is returned when a song directory has no
	// original mix; a song is unplayable without one.
	ErrMissingOriginal = errors.New("original file missing")

	// ErrInvalidPart is returned when a file is attached under a name
	// outside the stem vocabulary.
	ErrInvalidPart = errors.New("invalid part name")
)

// Song is one song directory and the resolved audio file per part.
type Song struct {
	Title string
	Dir   string
	Files map[string]string // part name -> file path
	Meta  *Manifest         // nil when the directory carries no manifest
}

// Parts lists every part name a song may carry, the original mix first.
func Parts() []string {
	return append([]string{mixer.OriginalName}, StemNames...)
}

// New creates (or reuses) the directory for title under baseDir.
func New(baseDir, title string) (*Song, error) {
	dir := filepath.Join(baseDir, title)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logger.Info("creating song directory", logger.String("dir", dir))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create song directory: %w", err)
		}
	}
	return &Song{Title: title, Dir: dir, Files: make(map[string]string)}, nil
}

// FromPath loads an existing song directory in place. Every known part
// is resolved to its first matching container; the directory must hold
// an original mix.
func FromPath(dir string) (*Song, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open song %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open song %s: not a directory", dir)
	}

	s := &Song{Title: filepath.Base(dir), Dir: dir, Files: make(map[string]string)}
	for _, part := range Parts() {
		for _, ext := range exts {
			path := filepath.Join(dir, part+ext)
			if _, err := os.Stat(path); err == nil {
				s.Files[part] = path
				break
			}
		}
	}
	if _, ok := s.Files[mixer.OriginalName]; !ok {
		return nil, fmt.Errorf("open song %s: %w", dir, ErrMissingOriginal)
	}

	if m, err := readManifest(dir); err == nil {
		s.Meta = m
		if m.Title != "" {
			s.Title = m.Title
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		logger.Warn("unreadable song manifest",
			logger.String("dir", dir), logger.ErrorField(err))
	}
	return s, nil
}

// Attach moves a file into the song directory under the part's canonical
// name, keeping the source's extension.
func (s *Song) Attach(part, src string) error {
	if !validPart(part) {
		return fmt.Errorf("attach %q: %w", part, ErrInvalidPart)
	}
	dst := filepath.Join(s.Dir, part+strings.ToLower(filepath.Ext(src)))
	logger.Info("attaching file",
		logger.String("part", part),
		logger.String("from", src),
		logger.String("to", dst))
	if err := moveFile(src, dst); err != nil {
		return fmt.Errorf("attach %q: %w", part, err)
	}
	s.Files[part] = dst
	return nil
}

// Stems returns the stem names present on disk, in display order.
func (s *Song) Stems() []string {
	var out []string
	for _, name := range StemNames {
		if _, ok := s.Files[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

func validPart(part string) bool {
	if part == mixer.OriginalName {
		return true
	}
	for _, name := range StemNames {
		if name == part {
			return true
		}
	}
	return false
}

// moveFile renames src to dst, falling back to copy-and-remove when the
// two live on different filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

// SanitizeTitle makes a source title filesystem safe: letters, digits,
// spaces, underscores and hyphens survive; runs of whitespace collapse;
// spaces become underscores.
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), "_")
}

// List loads every song directory under baseDir, skipping entries that
// do not resolve to a playable song.
func List(baseDir string) ([]*Song, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list songs: %w", err)
	}

	var songs []*Song
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		s, err := FromPath(filepath.Join(baseDir, e.Name()))
		if err != nil {
			logger.Debug("skipping directory",
				logger.String("dir", e.Name()), logger.ErrorField(err))
			continue
		}
		songs = append(songs, s)
	}
	return songs, nil
}
