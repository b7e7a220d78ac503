package collector

import (
	"fmt"
	"slices"
	"time"

	"github.com/scipunch/ainews/article"
)

// Aggregate merges source results in order, keeps the first article seen for
// each URL, ranks newest first by collection time and keeps at most limit.
// If any collection timestamp fails to parse the accumulated order is kept
// and SortErr is set.
func Aggregate(results []SourceResult, limit int) Aggregation {
	var agg Aggregation

	seen := make(map[string]struct{})
	var unique []article.Article
	for _, r := range results {
		agg.Collected += len(r.Articles)
		for _, a := range r.Articles {
			if _, ok := seen[a.URL]; ok {
				agg.Duplicates++
				continue
			}
			seen[a.URL] = struct{}{}
			unique = append(unique, a)
		}
	}

	agg.SortErr = sortNewestFirst(unique)

	if limit >= 0 && len(unique) > limit {
		unique = unique[:limit]
	}
	agg.Articles = unique
	return agg
}

func sortNewestFirst(articles []article.Article) error {
	type ranked struct {
		a article.Article
		t time.Time
	}

	items := make([]ranked, len(articles))
	for i, a := range articles {
		t, err := article.ParseTime(a.CollectedAt)
		if err != nil {
			return fmt.Errorf("article %s: bad collected_at: %w", a.URL, err)
		}
		items[i] = ranked{a: a, t: t}
	}

	slices.SortStableFunc(items, func(x, y ranked) int {
		return y.t.Compare(x.t)
	})
	for i := range items {
		articles[i] = items[i].a
	}
	return nil
}
