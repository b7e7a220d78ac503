// Package output writes the article envelope consumed by the display side.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/scipunch/ainews/article"
)

// Envelope is the top-level JSON document.
type Envelope struct {
	LastUpdated   string            `json:"last_updated"`
	TotalArticles int               `json:"total_articles"`
	SourcesCount  int               `json:"sources_count"`
	Articles      []article.Article `json:"articles"`
}

func NewEnvelope(articles []article.Article, sourcesCount int, now time.Time) Envelope {
	if articles == nil {
		articles = []article.Article{}
	}
	return Envelope{
		LastUpdated:   article.FormatTime(now),
		TotalArticles: len(articles),
		SourcesCount:  sourcesCount,
		Articles:      articles,
	}
}

// Write replaces the file at path with env, indented by two spaces and
// without escaping HTML or non-ASCII characters. The document is written to
// a temporary file first so readers never see a partial file.
func Write(path string, env Envelope) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory at '%s': %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode articles: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set output permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move output into '%s': %w", path, err)
	}
	return nil
}

// Read loads a previously written envelope.
func Read(path string) (Envelope, error) {
	var env Envelope
	data, err := os.ReadFile(path)
	if err != nil {
		return env, err
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("failed to decode articles at %s: %w", path, err)
	}
	return env, nil
}
