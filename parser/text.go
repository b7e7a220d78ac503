package parser

import (
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<.*?>`)

// entities are unescaped one after another in this order, so "&amp;lt;"
// ends up as "<".
var entities = [][2]string{
	{"&amp;", "&"},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&quot;", `"`},
	{"&#39;", "'"},
}

// CleanText strips markup tags, unescapes the common HTML entities and trims
// surrounding whitespace.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = tagPattern.ReplaceAllString(text, "")
	for _, e := range entities {
		text = strings.ReplaceAll(text, e[0], e[1])
	}
	return strings.TrimSpace(text)
}
