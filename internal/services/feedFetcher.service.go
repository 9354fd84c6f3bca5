package services

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/Larry-Schultz/FFTBViewerV3/config"
	"github.com/Larry-Schultz/FFTBViewerV3/internal/logger"
)

const (
	FEED_FETCH_ATTEMPTS   = 3
	FEED_RETRY_BASE_DELAY = 2 * time.Second
	FEED_USER_AGENT       = "FFTBViewer-PlaylistSync/3"
)

// FeedSource yields the raw playlist document, or nil when it is unavailable.
type FeedSource interface {
	Fetch(ctx context.Context) []byte
}

type FeedFetcher struct {
	url       string
	client    *http.Client
	attempts  int
	baseDelay time.Duration
	log       logger.Logger
}

func NewFeedFetcher(config config.Config) *FeedFetcher {
	connectTimeout := time.Duration(config.PlaylistConnectTimeoutSeconds) * time.Second
	readTimeout := time.Duration(config.PlaylistReadTimeoutSeconds) * time.Second

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: readTimeout,
		MaxIdleConns:          2,
		IdleConnTimeout:       90 * time.Second,
	}

	return &FeedFetcher{
		url: config.PlaylistURL,
		client: &http.Client{
			Transport: transport,
			Timeout:   connectTimeout + readTimeout,
		},
		attempts:  FEED_FETCH_ATTEMPTS,
		baseDelay: FEED_RETRY_BASE_DELAY,
		log:       logger.New("feedFetcher"),
	}
}

// Fetch downloads the feed, retrying with exponential backoff. It never
// returns an error: exhausted retries or cancellation yield nil so the
// caller degrades to a no-op sync.
func (f *FeedFetcher) Fetch(ctx context.Context) []byte {
	log := f.log.Function("Fetch").TraceFromContext(ctx)

	delay := f.baseDelay
	for attempt := 1; attempt <= f.attempts; attempt++ {
		body, err := f.fetchOnce(ctx)
		if err == nil {
			log.Debug("Fetched feed", "attempt", attempt, "bytes", len(body))
			return body
		}

		if ctx.Err() != nil {
			log.Warn("Feed fetch cancelled", "attempt", attempt, "error", ctx.Err())
			return nil
		}

		log.Warn("Feed fetch attempt failed", "attempt", attempt, "maxAttempts", f.attempts, "error", err)

		if attempt == f.attempts {
			break
		}

		select {
		case <-ctx.Done():
			log.Warn("Feed fetch cancelled during backoff", "attempt", attempt)
			return nil
		case <-time.After(delay):
		}
		delay *= 2
	}

	log.Er("Feed unavailable after retries, continuing with empty feed", errors.New("feed fetch exhausted"),
		"url", f.url, "attempts", f.attempts)
	return nil
}

func (f *FeedFetcher) fetchOnce(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", FEED_USER_AGENT)
	req.Header.Set("Accept", "application/xml, text/xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty response body")
	}

	if err := checkWellFormed(body); err != nil {
		return nil, fmt.Errorf("malformed feed: %w", err)
	}

	return body, nil
}

func checkWellFormed(body []byte) error {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	sawElement := false
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if _, ok := token.(xml.StartElement); ok {
			sawElement = true
		}
	}

	if !sawElement {
		return errors.New("no root element")
	}
	return nil
}
