package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/scipunch/ainews/config"
)

const defaultMaxBodyBytes = 8 << 20

// StatusError is returned when a feed server answers with a non-2xx status
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s from %s", e.Status, e.URL)
}

// HTTPFetcher downloads feeds with a single GET per source and no retries
type HTTPFetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewHTTPFetcher creates a fetcher bounded by conf.Timeout
func NewHTTPFetcher(conf config.FetchConfig, logger *zap.Logger) *HTTPFetcher {
	maxBody := conf.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &HTTPFetcher{
		client:       &http.Client{Timeout: conf.Timeout},
		userAgent:    conf.UserAgent,
		maxBodyBytes: maxBody,
		logger:       logger,
	}
}

// Fetch retrieves the raw feed document of src
func (f *HTTPFetcher) Fetch(ctx context.Context, src config.Source) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: src.URL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := readLimited(resp.Body, f.maxBodyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}

	f.logger.Debug("feed downloaded",
		zap.String("source", src.Name),
		zap.String("size", humanize.Bytes(uint64(len(body)))))
	return body, nil
}

// FileFetcher reads feeds from local files, for offline runs and fixtures
type FileFetcher struct {
	maxBodyBytes int64
}

func NewFileFetcher(maxBodyBytes int64) *FileFetcher {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &FileFetcher{maxBodyBytes: maxBodyBytes}
}

func (f *FileFetcher) Fetch(ctx context.Context, src config.Source) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(src.File)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed file: %w", err)
	}
	defer file.Close()

	body, err := readLimited(file, f.maxBodyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed file: %w", err)
	}
	return body, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("body exceeds %s", humanize.Bytes(uint64(limit)))
	}
	return body, nil
}
