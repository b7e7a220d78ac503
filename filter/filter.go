package filter

import (
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/scipunch/ainews/config"
	"github.com/scipunch/ainews/fetcher/types"
)

// FilterPipeline applies named rule filters to entries that already matched a keyword
type FilterPipeline struct {
	filters map[string]*CompiledFilter
	logger  *zap.Logger
}

// CompiledFilter contains compiled regex patterns for efficient matching
type CompiledFilter struct {
	config          config.Filter
	patterns        []string
	excludePatterns []*regexp.Regexp
}

// NewFilterPipeline compiles the configured filters. Invalid patterns are
// logged and skipped.
func NewFilterPipeline(filtersConfig map[string]config.Filter, logger *zap.Logger) *FilterPipeline {
	compiled := make(map[string]*CompiledFilter, len(filtersConfig))

	for name, filterCfg := range filtersConfig {
		cf := &CompiledFilter{config: filterCfg}

		for _, pattern := range filterCfg.ExcludePatterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				logger.Warn("invalid regex pattern in filter",
					zap.String("filter", name), zap.String("pattern", pattern), zap.Error(err))
				continue
			}
			cf.patterns = append(cf.patterns, pattern)
			cf.excludePatterns = append(cf.excludePatterns, re)
		}

		compiled[name] = cf
	}

	return &FilterPipeline{filters: compiled, logger: logger}
}

// ShouldInclude returns true if the item passes every named filter in order.
// The reason names the filter and rule that rejected it.
func (fp *FilterPipeline) ShouldInclude(item types.FeedItem, filterNames []string) (bool, string) {
	for _, filterName := range filterNames {
		filter, exists := fp.filters[filterName]
		if !exists {
			fp.logger.Warn("filter not found, skipping", zap.String("filter", filterName))
			continue
		}

		if ok, reason := filter.apply(item, filterName); !ok {
			return false, reason
		}
	}

	return true, ""
}

func (cf *CompiledFilter) apply(item types.FeedItem, filterName string) (bool, string) {
	text := item.Title + " " + item.Description

	if cf.config.MinLength > 0 && len([]rune(text)) < cf.config.MinLength {
		return false, filterName + ":min_length"
	}

	if cf.config.MinWords > 0 && countWords(text) < cf.config.MinWords {
		return false, filterName + ":min_words"
	}

	for i, re := range cf.excludePatterns {
		if re.MatchString(text) {
			return false, filterName + ":exclude_pattern[" + cf.patterns[i] + "]"
		}
	}

	if cf.config.RequireParagraphs && !hasMultipleParagraphs(item.Description) {
		return false, filterName + ":require_paragraphs"
	}

	return true, ""
}

func countWords(text string) int {
	words := 0
	inWord := false

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if !inWord {
				words++
				inWord = true
			}
		} else {
			inWord = false
		}
	}

	return words
}

func hasMultipleParagraphs(text string) bool {
	nonEmpty := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			nonEmpty++
		}
	}
	return nonEmpty >= 2
}
