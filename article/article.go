// Package article holds the persisted unit of the collector output.
package article

import (
	"time"

	"github.com/scipunch/ainews/config"
	"github.com/scipunch/ainews/datefmt"
	"github.com/scipunch/ainews/fetcher/types"
)

// TimeLayout is the ISO-8601 layout of CollectedAt and of the envelope's
// last_updated field.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Ellipsis marks a truncated summary.
const Ellipsis = "..."

// Article is an entry that matched a keyword, cleaned and tagged with its
// source's category. URL identifies it within one run.
type Article struct {
	Title         string `json:"title"`
	Summary       string `json:"summary"`
	URL           string `json:"url"`
	Date          string `json:"date"`
	Source        string `json:"source"`
	Category      string `json:"category"`
	PublishedDate string `json:"published_date"`
	CollectedAt   string `json:"collected_at"`
}

// New builds an article from a normalized entry. The relative date label is
// rendered once, here.
func New(item types.FeedItem, src config.Source, summaryLength int, now time.Time) Article {
	return Article{
		Title:         item.Title,
		Summary:       Summarize(item.Description, summaryLength),
		URL:           item.Link,
		Date:          datefmt.Label(item.Published, now),
		Source:        src.Name,
		Category:      src.Category,
		PublishedDate: item.Published,
		CollectedAt:   FormatTime(now),
	}
}

// Summarize keeps the first limit characters of text and appends Ellipsis
// when anything was cut.
func Summarize(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + Ellipsis
}

func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// ParseTime reads timestamps written by FormatTime, or any RFC 3339 value.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
