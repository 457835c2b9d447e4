package song

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const manifestName = "song.yaml"

// Manifest records how a song directory was produced. It is advisory:
// directories without one still load via the extension scan.
type Manifest struct {
	ID        string            `yaml:"id"`
	Title     string            `yaml:"title"`
	SourceURL string            `yaml:"source_url,omitempty"`
	Model     string            `yaml:"model,omitempty"`
	CreatedAt time.Time         `yaml:"created_at"`
	Files     map[string]string `yaml:"files"`
}

// WriteManifest stores a fresh manifest next to the song's audio files,
// recording the source URL and separation model that produced them.
func (s *Song) WriteManifest(sourceURL, model string) error {
	files := make(map[string]string, len(s.Files))
	for part, path := range s.Files {
		files[part] = filepath.Base(path)
	}
	m := &Manifest{
		ID:        uuid.NewString(),
		Title:     s.Title,
		SourceURL: sourceURL,
		Model:     model,
		CreatedAt: time.Now().UTC(),
		Files:     files,
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir, manifestName), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	s.Meta = m
	return nil
}

func readManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}
