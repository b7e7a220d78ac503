// Package collector runs the fetch, parse, classify and aggregate pipeline
// over the configured sources.
package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/scipunch/ainews/article"
	"github.com/scipunch/ainews/config"
	"github.com/scipunch/ainews/fetcher/types"
	"github.com/scipunch/ainews/filter"
	"github.com/scipunch/ainews/parser"
)

// Collector processes sources one at a time. It keeps no state between
// sources; every stage returns its results to the caller.
type Collector struct {
	conf     config.Config
	fetchers map[config.SourceType]types.FeedFetcher
	keywords *filter.KeywordFilter
	rules    *filter.FilterPipeline
	limiter  *rate.Limiter
	now      func() time.Time
	logger   *zap.Logger
}

type Option func(*Collector)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		c.now = now
	}
}

// WithLimiter replaces the limiter that paces the pause between sources.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Collector) {
		c.limiter = l
	}
}

// New creates a collector for conf. Each fetch is followed by a pause of
// conf.Fetch.Delay before the next source.
func New(conf config.Config, fetchers map[config.SourceType]types.FeedFetcher, logger *zap.Logger, opts ...Option) *Collector {
	limit := rate.Inf
	if conf.Fetch.Delay > 0 {
		limit = rate.Every(conf.Fetch.Delay)
	}

	c := &Collector{
		conf:     conf,
		fetchers: fetchers,
		keywords: filter.NewKeywordFilter(conf.Keywords),
		rules:    filter.NewFilterPipeline(conf.Filters, logger),
		limiter:  rate.NewLimiter(limit, 1),
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect visits every enabled source in order and aggregates the results.
// A failing source contributes nothing; cancellation stops the run between
// sources and is reported in Report.Err.
func (c *Collector) Collect(ctx context.Context) Report {
	report := Report{StartedAt: c.now()}
	c.logger.Info("collecting AI articles", zap.Int("sources", len(c.conf.Sources)))

	for _, src := range c.conf.Sources {
		if !src.IsEnabled() {
			c.logger.Debug("skipping disabled source", zap.String("source", src.Name))
			continue
		}

		if len(report.Sources) > 0 {
			if err := c.pause(ctx); err != nil {
				report.Err = fmt.Errorf("interrupted before %s: %w", src.Name, err)
				break
			}
		}
		if err := ctx.Err(); err != nil {
			report.Err = fmt.Errorf("interrupted before %s: %w", src.Name, err)
			break
		}

		report.Sources = append(report.Sources, c.CollectSource(ctx, src))
	}

	report.Aggregation = Aggregate(report.Sources, c.conf.Limits.MaxArticles)
	if report.SortErr != nil {
		c.logger.Warn("could not rank articles, keeping collection order", zap.Error(report.SortErr))
	}
	report.FinishedAt = c.now()

	c.logger.Info("collection finished",
		zap.Int("articles", len(report.Articles)),
		zap.Int("collected", report.Collected),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("failed_sources", report.Failed()),
		zap.Int("malformed_sources", report.Malformed()))
	return report
}

// pause waits one full delay from now. The limiter's bucket is emptied
// first, so a slow fetch does not use up the delay that follows it.
func (c *Collector) pause(ctx context.Context) error {
	if c.limiter.Limit() == rate.Inf {
		return ctx.Err()
	}
	now := time.Now()
	c.limiter.SetBurstAt(now, 0)
	c.limiter.SetBurstAt(now, 1)
	return c.limiter.Wait(ctx)
}

// CollectSource fetches, parses and classifies a single source.
func (c *Collector) CollectSource(ctx context.Context, src config.Source) SourceResult {
	start := c.now()
	res := SourceResult{Source: src}
	log := c.logger.With(zap.String("source", src.Name))

	log.Info("fetching feed", zap.String("location", src.Location()))

	f, ok := c.fetchers[src.Type()]
	if !ok {
		res.Err = fmt.Errorf("no fetcher for source type %q", src.Type())
		log.Warn("fetch failed", zap.Error(res.Err))
		return res
	}

	body, err := f.Fetch(ctx, src)
	if err != nil {
		res.Err = err
		log.Warn("fetch failed", zap.Error(err))
		return res
	}

	parsed := parser.Parse(body, c.conf.Limits.EntriesPerFeed)
	if parsed.Malformed {
		res.Malformed = true
		res.ParseErr = parsed.Err
		log.Warn("feed is malformed, using what could be read",
			zap.Int("entries", len(parsed.Entries)), zap.Error(parsed.Err))
	}

	res.Entries = len(parsed.Entries)
	for _, raw := range parsed.Entries {
		item, err := parser.Normalize(raw)
		if err != nil {
			res.Invalid++
			log.Debug("skipping entry", zap.String("link", raw.Link), zap.Error(err))
			continue
		}

		matched, keyword := c.keywords.MatchItem(item)
		if !matched {
			res.Rejected++
			continue
		}

		if len(src.FilterNames) > 0 {
			if ok, reason := c.rules.ShouldInclude(item, src.FilterNames); !ok {
				res.Filtered++
				log.Debug("entry filtered out", zap.String("title", item.Title), zap.String("reason", reason))
				continue
			}
		}

		log.Debug("entry matched", zap.String("title", item.Title), zap.String("keyword", keyword))
		res.Articles = append(res.Articles, article.New(item, src, c.conf.Limits.SummaryLength, c.now()))
	}

	res.Duration = c.now().Sub(start)
	log.Info("source collected",
		zap.Int("articles", res.Accepted()),
		zap.Int("entries", res.Entries),
		zap.Int("invalid", res.Invalid))
	return res
}
