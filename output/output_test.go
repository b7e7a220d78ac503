package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/scipunch/ainews/article"
)

var now = time.Date(2025, 6, 10, 12, 0, 0, 123456000, time.UTC)

func sample() []article.Article {
	return []article.Article{
		{
			Title:         "OpenAI ships <b>agents</b> & tools",
			Summary:       "Ünïcode summary — with “quotes”",
			URL:           "https://example.com/a?x=1&y=2",
			Date:          "2 hours ago",
			Source:        "TechCrunch AI",
			Category:      "🤖 AI News",
			PublishedDate: "Tue, 10 Jun 2025 10:00:00 +0000",
			CollectedAt:   "2025-06-10T12:00:00.123456Z",
		},
		{
			Title:       "Second",
			URL:         "https://example.com/b",
			Date:        "recently",
			Source:      "Wired",
			Category:    "🔬 Research",
			CollectedAt: "2025-06-10T11:59:59.000000Z",
		},
	}
}

func TestNewEnvelope(t *testing.T) {
	env := NewEnvelope(sample(), 5, now)

	if env.TotalArticles != 2 {
		t.Errorf("expected 2 total articles, got %d", env.TotalArticles)
	}
	if env.SourcesCount != 5 {
		t.Errorf("expected 5 sources, got %d", env.SourcesCount)
	}
	if env.LastUpdated != "2025-06-10T12:00:00.123456Z" {
		t.Errorf("unexpected last_updated %q", env.LastUpdated)
	}
}

func TestNewEnvelope_NilArticles(t *testing.T) {
	env := NewEnvelope(nil, 5, now)
	if env.Articles == nil || env.TotalArticles != 0 {
		t.Errorf("expected empty non-nil articles, got %#v", env.Articles)
	}
}

func TestWriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "articles.json")
	env := NewEnvelope(sample(), 5, now)

	if err := Write(path, env); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	read, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if diff := cmp.Diff(env, read); diff != "" {
		t.Errorf("envelope mismatch (-want +got):\n%s", diff)
	}
	if read.TotalArticles != len(read.Articles) {
		t.Errorf("total_articles %d != len(articles) %d", read.TotalArticles, len(read.Articles))
	}
}

func TestWrite_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.json")
	if err := Write(path, NewEnvelope(sample(), 5, now)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)

	for _, want := range []string{
		"Ünïcode summary — with “quotes”",
		"🤖 AI News",
		"<b>agents</b> & tools",
		"https://example.com/a?x=1&y=2",
		"\n  \"last_updated\": ",
		"\n    {\n      \"title\": ",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output does not contain %q", want)
		}
	}
	if strings.Contains(text, `\u`) {
		t.Error("output should not contain unicode escapes")
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"last_updated", "total_articles", "sources_count", "articles"} {
		if _, ok := keys[k]; !ok {
			t.Errorf("missing key %q", k)
		}
	}
}

func TestWrite_Overwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "articles.json")

	if err := Write(path, NewEnvelope(sample(), 5, now)); err != nil {
		t.Fatal(err)
	}
	if err := Write(path, NewEnvelope(sample()[:1], 5, now)); err != nil {
		t.Fatal(err)
	}

	read, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if read.TotalArticles != 1 || len(read.Articles) != 1 {
		t.Errorf("expected the second write to replace the first, got %d articles", len(read.Articles))
	}

	// No temporary files are left behind
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the output file, found %d entries", len(entries))
	}
}

func TestWrite_UnwritableDirectory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Write(filepath.Join(blocker, "articles.json"), NewEnvelope(sample(), 5, now)); err == nil {
		t.Error("expected error when parent is a file")
	}
}

func TestPrintTable(t *testing.T) {
	articles := sample()
	articles[1].Title = strings.Repeat("長", 80)

	var buf bytes.Buffer
	if err := PrintTable(&buf, articles); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], " 1  2 hours ago") {
		t.Errorf("unexpected first line %q", lines[0])
	}
	if !strings.Contains(lines[0], "TechCrunch AI") {
		t.Errorf("source missing from %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "…") {
		t.Errorf("long title should be truncated: %q", lines[1])
	}
}
