package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/scipunch/ainews/config"
	"github.com/scipunch/ainews/history"
	"github.com/scipunch/ainews/output"
)

const feed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Local</title>
<item><title>OpenAI releases a model</title><link>https://example.com/1</link>
<description>&lt;p&gt;Details&lt;/p&gt;</description><pubDate>Tue, 10 Jun 2025 10:00:00 +0000</pubDate></item>
<item><title>Gardening tips</title><link>https://example.com/2</link>
<description>Tomatoes</description></item>
</channel></rss>`

func setup(t *testing.T, keyword string) (cfgPath, outPath string) {
	t.Helper()
	dir := t.TempDir()
	feedPath := filepath.Join(dir, "feed.xml")
	if err := os.WriteFile(feedPath, []byte(feed), 0644); err != nil {
		t.Fatal(err)
	}

	outPath = filepath.Join(dir, "data", "articles.json")
	cfgPath = filepath.Join(dir, "config.toml")
	cfg := fmt.Sprintf(`
keywords = [%q]
output_path = %q

[fetch]
delay = "0s"

[[sources]]
name = "Local"
file = %q
category = "🤖 AI News"

[[sources]]
name = "Off"
url = "https://example.invalid/feed"
category = "Tech"
enabled = false
`, keyword, outPath, feedPath)
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	return cfgPath, outPath
}

func TestRun_WritesEnvelope(t *testing.T) {
	cfgPath, outPath := setup(t, "OpenAI")
	var stdout bytes.Buffer

	err := run(context.Background(), []string{"-config", cfgPath}, &stdout, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	env, err := output.Read(outPath)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if env.TotalArticles != 1 || env.Articles[0].Title != "OpenAI releases a model" {
		t.Errorf("unexpected articles %+v", env.Articles)
	}
	if env.SourcesCount != 2 {
		t.Errorf("expected both configured sources counted, got %d", env.SourcesCount)
	}
	if env.Articles[0].Summary != "Details" || env.Articles[0].Category != "🤖 AI News" {
		t.Errorf("unexpected article %+v", env.Articles[0])
	}
}

func TestRun_OutFlag(t *testing.T) {
	cfgPath, outPath := setup(t, "openai")
	other := filepath.Join(t.TempDir(), "other.json")

	err := run(context.Background(), []string{"-config", cfgPath, "-out", other}, &bytes.Buffer{}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if _, err := os.Stat(other); err != nil {
		t.Errorf("-out path not written: %v", err)
	}
	if _, err := os.Stat(outPath); !os.IsNotExist(err) {
		t.Error("config output_path should not be written when -out is set")
	}
}

func TestRun_NoMatchesSkipsWrite(t *testing.T) {
	cfgPath, outPath := setup(t, "quantum")

	err := run(context.Background(), []string{"-config", cfgPath}, &bytes.Buffer{}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if _, err := os.Stat(outPath); !os.IsNotExist(err) {
		t.Error("output should not be written without articles")
	}
}

func TestRun_KeepsPreviousOutputOnEmptyRun(t *testing.T) {
	cfgPath, outPath := setup(t, "openai")
	logger := zaptest.NewLogger(t)
	if err := run(context.Background(), []string{"-config", cfgPath}, &bytes.Buffer{}, logger); err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(outPath)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if err := run(cancelled, []string{"-config", cfgPath}, &bytes.Buffer{}, logger); err == nil {
		t.Error("expected the cancelled run to report an error")
	}

	after, _ := os.ReadFile(outPath)
	if !bytes.Equal(before, after) {
		t.Error("cancelled run must not touch the previous output")
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[fetch]\ntimeout = \"0s\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	err := run(context.Background(), []string{"-config", path}, &bytes.Buffer{}, zaptest.NewLogger(t))
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("expected invalid config error, got %v", err)
	}
}

func TestRun_List(t *testing.T) {
	cfgPath, _ := setup(t, "openai")
	logger := zaptest.NewLogger(t)
	if err := run(context.Background(), []string{"-config", cfgPath}, &bytes.Buffer{}, logger); err != nil {
		t.Fatal(err)
	}

	var stdout bytes.Buffer
	if err := run(context.Background(), []string{"-config", cfgPath, "-list"}, &stdout, logger); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "1 articles from 2 sources") {
		t.Errorf("missing header in %q", stdout.String())
	}
	if !strings.Contains(stdout.String(), "OpenAI releases a model") {
		t.Errorf("missing article in %q", stdout.String())
	}
}

func TestRun_History(t *testing.T) {
	cfgPath, _ := setup(t, "openai")
	dbPath := filepath.Join(t.TempDir(), "history.db")
	logger := zaptest.NewLogger(t)

	args := []string{"-config", cfgPath, "-history", dbPath}
	if err := run(context.Background(), args, &bytes.Buffer{}, logger); err != nil {
		t.Fatal(err)
	}

	h, err := history.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	runs, err := h.Recent(5)
	h.Close()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || !runs[0].Written || runs[0].Articles != 1 {
		t.Errorf("unexpected history %+v", runs)
	}

	var stdout bytes.Buffer
	if err := run(context.Background(), append(args, "-stats"), &stdout, logger); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout.String(), "1 runs") {
		t.Errorf("unexpected stats output %q", stdout.String())
	}

	if err := run(context.Background(), append(args, "-clean"), &bytes.Buffer{}, logger); err != nil {
		t.Fatal(err)
	}
	h, _ = history.Open(dbPath)
	defer h.Close()
	stats, _ := h.Stats()
	if stats.Runs != 0 {
		t.Errorf("expected history cleared, got %d runs", stats.Runs)
	}
}

func TestLoadConfig_WritesDefaultOnFirstRun(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := config.DefaultPath()

	conf, err := loadConfig(path, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if len(conf.Sources) != len(config.Default().Sources) {
		t.Errorf("expected default sources, got %d", len(conf.Sources))
	}

	written, err := config.Read(path)
	if err != nil {
		t.Fatalf("default config was not written: %v", err)
	}
	if len(written.Keywords) != len(config.Default().Keywords) {
		t.Errorf("written config lost keywords: %v", written.Keywords)
	}
}

func TestLoadConfig_MissingExplicitPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "missing.toml")

	if _, err := loadConfig(path, zaptest.NewLogger(t)); err == nil {
		t.Error("expected error for a missing explicit config")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("explicit path must not be created")
	}
}
