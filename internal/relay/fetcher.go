package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Fetcher retrieves attachment bytes from the platform's CDN.
// An interface so tests can count calls and the dispatcher can verify that
// oversized files are rejected without any download happening.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher downloads attachments over plain HTTP with a hard size cap.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
	logger   *slog.Logger
}

// NewHTTPFetcher creates a fetcher that refuses bodies larger than maxBytes.
func NewHTTPFetcher(maxBytes int64, logger *slog.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		client:   &http.Client{Timeout: 60 * time.Second},
		maxBytes: maxBytes,
		logger:   logger,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	// +1 so an over-limit body is detectable instead of silently truncated.
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read download: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("download too large: more than %d bytes", f.maxBytes)
	}

	f.logger.Debug("attachment downloaded", "url", url, "bytes", len(data))
	return data, nil
}
