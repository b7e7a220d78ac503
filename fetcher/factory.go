package fetcher

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/scipunch/ainews/config"
	"github.com/scipunch/ainews/fetcher/types"
)

// GetFetchers creates a map of source types to their corresponding fetchers
func GetFetchers(sourceTypes []config.SourceType, conf config.FetchConfig, logger *zap.Logger) (map[config.SourceType]types.FeedFetcher, error) {
	fetchers := make(map[config.SourceType]types.FeedFetcher)

	for _, st := range sourceTypes {
		// Skip if we already have a fetcher for this type
		if fetchers[st] != nil {
			continue
		}

		switch st {
		case config.RSS:
			fetchers[st] = NewHTTPFetcher(conf, logger)
		case config.File:
			fetchers[st] = NewFileFetcher(conf.MaxBodyBytes)
		default:
			return nil, fmt.Errorf("unknown source type: %s", st)
		}
	}

	return fetchers, nil
}
