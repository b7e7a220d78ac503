package collector

import (
	"errors"
	"time"

	"github.com/scipunch/ainews/article"
	"github.com/scipunch/ainews/config"
)

// ErrNoArticles is reported when no source contributed a single article.
var ErrNoArticles = errors.New("no articles collected from any source")

// SourceResult is the outcome of processing one source. A failed fetch sets
// Err and leaves Articles empty; every other problem only shows up in the
// counters.
type SourceResult struct {
	Source    config.Source
	Articles  []article.Article
	Entries   int // Entries examined, at most limits.entries_per_feed
	Rejected  int // No keyword matched
	Filtered  int // Dropped by a named rule filter
	Invalid   int // Missing title or link after cleaning
	Malformed bool
	ParseErr  error // Decoder error behind Malformed
	Err       error
	Duration  time.Duration
}

func (r SourceResult) Accepted() int {
	return len(r.Articles)
}

func (r SourceResult) Failed() bool {
	return r.Err != nil
}

// Aggregation is the merged, deduplicated and ranked article list.
type Aggregation struct {
	Articles   []article.Article
	Collected  int   // Articles across all sources before deduplication
	Duplicates int   // Articles dropped because their URL was already seen
	SortErr    error // Set when ranking failed and accumulation order was kept
}

// Report describes one collection run.
type Report struct {
	Aggregation
	Sources    []SourceResult
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error // Set when the run was interrupted before all sources were visited
}

// Failed counts sources whose fetch failed.
func (r Report) Failed() int {
	n := 0
	for _, s := range r.Sources {
		if s.Failed() {
			n++
		}
	}
	return n
}

// Malformed counts sources whose feed only decoded partially or not at all.
func (r Report) Malformed() int {
	n := 0
	for _, s := range r.Sources {
		if s.Malformed {
			n++
		}
	}
	return n
}
