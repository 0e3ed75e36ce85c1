package feed

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"framepress/internal/safeurl"
)

// Fetcher retrieves feeds through the safeurl client and caches parsed
// results so repeated previews and runs against the same feed do not hammer
// the merchant's endpoint.
type Fetcher struct {
	client   *safeurl.Client
	maxBytes int64
	ttl      time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	result Result
	until  time.Time
}

// NewFetcher creates a Fetcher. A ttl of zero disables caching.
func NewFetcher(client *safeurl.Client, maxBytes int64, ttl time.Duration) *Fetcher {
	return &Fetcher{
		client:   client,
		maxBytes: maxBytes,
		ttl:      ttl,
		cache:    make(map[string]cacheEntry),
	}
}

// FetchAndParse returns the parsed feed at feedURL, from cache when fresh.
// Transport-level failures (blocked URL, timeout, non-2xx, oversized body)
// surface as ErrUnavailable; a document that fetched but does not parse
// surfaces as ErrMalformed.
func (f *Fetcher) FetchAndParse(ctx context.Context, feedURL string) (Result, error) {
	if f.ttl > 0 {
		f.mu.Lock()
		if entry, ok := f.cache[feedURL]; ok && time.Now().Before(entry.until) {
			f.mu.Unlock()
			return entry.result, nil
		}
		f.mu.Unlock()
	}

	body, err := f.client.Fetch(ctx, feedURL, safeurl.XMLPolicy(f.maxBytes))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	result, err := Parse(bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}

	if f.ttl > 0 {
		f.mu.Lock()
		f.cache[feedURL] = cacheEntry{result: result, until: time.Now().Add(f.ttl)}
		f.mu.Unlock()
	}
	return result, nil
}

// Invalidate drops any cached result for feedURL.
func (f *Fetcher) Invalidate(feedURL string) {
	f.mu.Lock()
	delete(f.cache, feedURL)
	f.mu.Unlock()
}
