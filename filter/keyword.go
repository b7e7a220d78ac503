package filter

import (
	"strings"

	"github.com/scipunch/ainews/fetcher/types"
)

// KeywordFilter classifies entries by plain substring containment of any
// keyword in the lowercased title and description. There is no word-boundary
// check, so "ai" also matches inside "said".
type KeywordFilter struct {
	keywords []string
}

// NewKeywordFilter lowercases keywords once and drops blanks
func NewKeywordFilter(keywords []string) *KeywordFilter {
	kf := &KeywordFilter{keywords: make([]string, 0, len(keywords))}
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		kf.keywords = append(kf.keywords, k)
	}
	return kf
}

// Match returns the first keyword found in title + " " + description
func (kf *KeywordFilter) Match(title, description string) (bool, string) {
	content := strings.ToLower(title + " " + description)
	for _, k := range kf.keywords {
		if strings.Contains(content, k) {
			return true, k
		}
	}
	return false, ""
}

// MatchItem is Match over a feed entry
func (kf *KeywordFilter) MatchItem(item types.FeedItem) (bool, string) {
	return kf.Match(item.Title, item.Description)
}
