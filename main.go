package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/scipunch/ainews/collector"
	"github.com/scipunch/ainews/config"
	"github.com/scipunch/ainews/fetcher"
	"github.com/scipunch/ainews/history"
	"github.com/scipunch/ainews/output"
)

type options struct {
	cfgPath     string
	outPath     string
	historyPath string
	stats       bool
	clean       bool
	list        bool
}

func main() {
	logger := newLogger()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Failures never change the exit status.
	if err := run(ctx, os.Args[1:], os.Stdout, logger); err != nil {
		logger.Error("run failed, nothing was written", zap.Error(err))
	}
}

func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if os.Getenv("DEBUG") != "" {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.OutputPaths = []string{"stdout"}
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("ainews", flag.ContinueOnError)
	fs.StringVar(&opts.cfgPath, "config", config.DefaultPath(), "path to a TOML or YAML config")
	fs.StringVar(&opts.outPath, "out", "", "output JSON path, overrides output_path")
	fs.StringVar(&opts.historyPath, "history", "", "sqlite run history path, overrides history_path")
	fs.BoolVar(&opts.stats, "stats", false, "print run history statistics and exit")
	fs.BoolVar(&opts.clean, "clean", false, "remove all run history and exit")
	fs.BoolVar(&opts.list, "list", false, "print the articles of the current output file and exit")
	err := fs.Parse(args)
	return opts, err
}

func loadConfig(path string, logger *zap.Logger) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	conf, err := config.Read(path)
	if errors.Is(err, os.ErrNotExist) && path == config.DefaultPath() {
		// First run: leave an editable copy of the defaults behind
		conf = config.Default()
		if err := config.Write(path, conf); err != nil {
			logger.Warn("failed to write default config", zap.String("path", path), zap.Error(err))
		} else {
			logger.Info("default config written", zap.String("path", path))
		}
		return conf, nil
	}
	if err != nil {
		return conf, fmt.Errorf("failed to read config: %w", err)
	}
	logger.Info("config loaded", zap.String("path", path))
	return conf, nil
}

func run(ctx context.Context, args []string, stdout io.Writer, logger *zap.Logger) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	conf, err := loadConfig(opts.cfgPath, logger)
	if err != nil {
		return err
	}
	if opts.outPath != "" {
		conf.OutputPath = opts.outPath
	}
	if opts.historyPath != "" {
		conf.HistoryPath = opts.historyPath
	}

	if opts.list {
		env, err := output.Read(conf.OutputPath)
		if err != nil {
			return fmt.Errorf("failed to read articles: %w", err)
		}
		fmt.Fprintf(stdout, "%d articles from %d sources, updated %s\n",
			env.TotalArticles, env.SourcesCount, env.LastUpdated)
		return output.PrintTable(stdout, env.Articles)
	}

	if opts.stats || opts.clean {
		return maintainHistory(stdout, conf.HistoryPath, opts.clean, logger)
	}

	if err := conf.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	fetchers, err := fetcher.GetFetchers(conf.SourceTypes(), conf.Fetch, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize fetchers: %w", err)
	}

	report := collector.New(conf, fetchers, logger).Collect(ctx)

	written := false
	defer func() {
		if conf.HistoryPath != "" {
			recordHistory(conf.HistoryPath, report, written, logger)
		}
	}()

	if report.Err != nil {
		return report.Err
	}
	if len(report.Articles) == 0 {
		logger.Warn("nothing to save", zap.Error(collector.ErrNoArticles))
		return nil
	}

	env := output.NewEnvelope(report.Articles, len(conf.Sources), report.FinishedAt)
	if err := output.Write(conf.OutputPath, env); err != nil {
		return fmt.Errorf("failed to save articles: %w", err)
	}
	written = true

	logger.Info("articles saved",
		zap.String("path", conf.OutputPath),
		zap.Int("count", env.TotalArticles))
	return nil
}

func maintainHistory(stdout io.Writer, path string, clean bool, logger *zap.Logger) error {
	if path == "" {
		path = history.DefaultPath()
	}
	h, err := history.Open(path)
	if err != nil {
		return err
	}
	defer h.Close()

	if clean {
		if err := h.Clear(); err != nil {
			return err
		}
		logger.Info("history cleared", zap.String("path", path))
		return nil
	}

	stats, err := h.Stats()
	if err != nil {
		return fmt.Errorf("failed to read history stats: %w", err)
	}
	fmt.Fprintln(stdout, stats)

	runs, err := h.Recent(10)
	if err != nil {
		return err
	}
	for _, r := range runs {
		status := "written"
		if !r.Written {
			status = "not written"
		}
		fmt.Fprintf(stdout, "%4d  %s  %2d articles  %d failed  %s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04"), r.Articles, r.FailedSources, status)
	}
	return nil
}

func recordHistory(path string, report collector.Report, written bool, logger *zap.Logger) {
	h, err := history.Open(path)
	if err != nil {
		logger.Warn("failed to open history", zap.Error(err))
		return
	}
	defer h.Close()

	// The run context may already be cancelled, the record is still wanted.
	if _, err := h.RecordRun(context.Background(), report, written); err != nil {
		logger.Warn("failed to record run", zap.Error(err))
	}
}
