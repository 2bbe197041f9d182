package ics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	appLog "caldigest/internal/log"
)

const (
	fetchTimeout = 5 * time.Second
	maxAttempts  = 3
	retryDelay   = 500 * time.Millisecond
)

// Feed identifies a single iCalendar subscription source.
type Feed struct {
	// ID is an internal identifier used for logging and the JSON API.
	ID string
	// URL is the feed endpoint; webcal:// is accepted.
	URL string
}

// Fetcher retrieves raw iCalendar documents over HTTP(S). It holds no
// cache; any feed-content caching is the calling driver's concern.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher with a short request timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: fetchTimeout},
	}
}

// NormalizeFeedURL rewrites the webcal scheme to https.
func NormalizeFeedURL(raw string) string {
	if strings.HasPrefix(raw, "webcal://") {
		return "https://" + strings.TrimPrefix(raw, "webcal://")
	}
	return raw
}

// Fetch retrieves one feed body, retrying transient failures a fixed
// number of times before giving up with a RetrievalError.
func (f *Fetcher) Fetch(ctx context.Context, feed Feed) ([]byte, error) {
	url := NormalizeFeedURL(feed.URL)
	if url == "" {
		return nil, &RetrievalError{URL: url, Attempts: 0, Err: errors.New("feed URL is empty")}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, err := f.fetchOnce(ctx, url)
		if err == nil {
			appLog.Info("feed fetch success", "id", feed.ID, "url", redactURL(url), "attempt", attempt, "bytes", len(body))
			return body, nil
		}
		lastErr = err
		appLog.Warn("feed fetch attempt failed", "id", feed.ID, "url", redactURL(url), "attempt", attempt, "err", err)

		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, &RetrievalError{URL: url, Attempts: attempt, Err: ctx.Err()}
		case <-time.After(retryDelay):
		}
	}

	return nil, &RetrievalError{URL: url, Attempts: maxAttempts, Err: lastErr}
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// redactURL hides the path and query of a feed URL for logging; private
// feed links routinely embed access tokens.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := strings.Index(u, "://")
	if i == -1 {
		return "ics://...(redacted)"
	}

	j := strings.IndexByte(u[i+3:], '/')
	if j == -1 {
		return u + redactedSuffix
	}
	return u[:i+3+j] + redactedSuffix
}
