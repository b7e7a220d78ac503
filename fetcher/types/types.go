package types

import (
	"context"
	"time"

	"github.com/scipunch/ainews/config"
)

// Feed represents the entries decoded from one source
type Feed struct {
	Title string
	Items []FeedItem
}

// FeedItem represents a single entry in a feed, before cleaning and filtering
type FeedItem struct {
	Title           string
	Link            string
	Description     string
	Published       string    // Raw date string as provided by the feed
	PublishedParsed time.Time // Zero when the feed date could not be parsed
	GUID            string
}

// FeedFetcher retrieves the raw bytes of a source's feed
type FeedFetcher interface {
	Fetch(ctx context.Context, src config.Source) ([]byte, error)
}
