// Package parser decodes syndication feeds into entries and normalizes their
// free-text fields.
package parser

import (
	"bytes"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"

	"github.com/scipunch/ainews/fetcher/types"
)

var (
	ErrMissingTitle = errors.New("entry has no title")
	ErrMissingLink  = errors.New("entry has no link")
)

// Result is the outcome of decoding one feed document.
// Malformed is a soft failure: Entries holds whatever could still be read.
type Result struct {
	Title     string
	Entries   []types.FeedItem
	Total     int // Entries in the document before the limit was applied
	Malformed bool
	Err       error
}

// Parse decodes body and returns at most limit entries in feed order.
// A document that fails to decode is sanitized and decoded once more; if
// that fails too, it is cut after its last complete entry and closed. Only
// when nothing can be read are zero entries returned.
func Parse(body []byte, limit int) Result {
	var res Result

	feed, err := decode(body)
	if err != nil {
		res.Malformed = true
		res.Err = err

		clean := sanitize(body)
		feed, err = decode(clean)
		if err != nil {
			cut := truncateToLastEntry(clean)
			if cut == nil {
				return res
			}
			if feed, err = decode(cut); err != nil {
				return res
			}
		}
	}

	res.Title = feed.Title
	res.Total = len(feed.Items)
	items := feed.Items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	res.Entries = make([]types.FeedItem, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entry := types.FeedItem{
			Title:       item.Title,
			Link:        item.Link,
			Description: firstNonEmpty(item.Description, item.Content),
			Published:   item.Published,
			GUID:        item.GUID,
		}
		if item.PublishedParsed != nil {
			entry.PublishedParsed = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			entry.PublishedParsed = *item.UpdatedParsed
		}
		res.Entries = append(res.Entries, entry)
	}

	return res
}

// Normalize cleans the title and description of item and rejects it when the
// title or link ends up empty.
func Normalize(item types.FeedItem) (types.FeedItem, error) {
	item.Title = CleanText(item.Title)
	item.Description = CleanText(item.Description)
	item.Link = strings.TrimSpace(item.Link)

	if item.Title == "" {
		return item, ErrMissingTitle
	}
	if item.Link == "" {
		return item, ErrMissingLink
	}
	return item, nil
}

func decode(body []byte) (*gofeed.Feed, error) {
	return gofeed.NewParser().Parse(bytes.NewReader(body))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// sanitize drops a byte order mark, invalid UTF-8 and control characters
// that XML 1.0 does not allow.
func sanitize(body []byte) []byte {
	body = bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(body) {
		body = bytes.ToValidUTF8(body, []byte("\uFFFD"))
	}
	return bytes.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, body)
}

// truncateToLastEntry drops whatever follows the last complete RSS item or
// Atom entry and closes the document. It returns nil when there is no
// complete entry.
func truncateToLastEntry(body []byte) []byte {
	closing := func(tag string) []byte {
		i := bytes.LastIndex(body, []byte(tag))
		if i < 0 {
			return nil
		}
		return bytes.Clone(body[:i+len(tag)])
	}

	if head := closing("</item>"); head != nil {
		// RSS 1.0 lists items after the closed channel element
		if bytes.Contains(head, []byte("<rdf:RDF")) {
			return append(head, "</rdf:RDF>"...)
		}
		return append(head, "</channel></rss>"...)
	}
	if head := closing("</entry>"); head != nil {
		return append(head, "</feed>"...)
	}
	return nil
}
