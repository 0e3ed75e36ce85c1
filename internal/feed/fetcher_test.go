package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"framepress/internal/safeurl"
)

func testClient(t *testing.T, ts *httptest.Server) *safeurl.Client {
	t.Helper()
	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("parse test server url: %v", err)
	}
	return safeurl.New(safeurl.Options{
		Timeout:       2 * time.Second,
		AllowedPorts:  []string{u.Port()},
		AllowLoopback: true,
	})
}

func TestFetchAndParseCachesResults(t *testing.T) {
	var hits atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(`<feed xmlns="http://www.w3.org/2005/Atom">
  <entry><id>sku-1</id><image_link>https://cdn.example.com/1.jpg</image_link></entry>
</feed>`))
	}))
	defer ts.Close()

	fetcher := NewFetcher(testClient(t, ts), 1<<20, time.Minute)

	for i := 0; i < 3; i++ {
		result, err := fetcher.FetchAndParse(context.Background(), ts.URL)
		if err != nil {
			t.Fatalf("FetchAndParse #%d: %v", i, err)
		}
		if len(result.Products) != 1 || result.Products[0].ID != "sku-1" {
			t.Fatalf("unexpected result: %+v", result)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("server hit %d times, want 1 (cache)", got)
	}

	fetcher.Invalidate(ts.URL)
	if _, err := fetcher.FetchAndParse(context.Background(), ts.URL); err != nil {
		t.Fatalf("FetchAndParse after invalidate: %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("server hit %d times after invalidate, want 2", got)
	}
}

func TestFetchAndParseZeroTTLDisablesCache(t *testing.T) {
	var hits atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	}))
	defer ts.Close()

	fetcher := NewFetcher(testClient(t, ts), 1<<20, 0)
	for i := 0; i < 2; i++ {
		if _, err := fetcher.FetchAndParse(context.Background(), ts.URL); err != nil {
			t.Fatalf("FetchAndParse #%d: %v", i, err)
		}
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("server hit %d times, want 2 (no cache)", got)
	}
}

func TestFetchAndParseUnreachableFeed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	fetcher := NewFetcher(testClient(t, ts), 1<<20, 0)
	_, err := fetcher.FetchAndParse(context.Background(), ts.URL)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("FetchAndParse = %v, want ErrUnavailable", err)
	}
}

func TestFetchAndParseBlockedURL(t *testing.T) {
	client := safeurl.New(safeurl.Options{Timeout: time.Second})
	fetcher := NewFetcher(client, 1<<20, 0)

	_, err := fetcher.FetchAndParse(context.Background(), "http://192.168.0.10/feed.xml")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("FetchAndParse = %v, want ErrUnavailable", err)
	}
}

func TestFetchAndParseMalformedDocument(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(`<feed><entry>`))
	}))
	defer ts.Close()

	fetcher := NewFetcher(testClient(t, ts), 1<<20, 0)
	_, err := fetcher.FetchAndParse(context.Background(), ts.URL)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("FetchAndParse = %v, want ErrMalformed", err)
	}
}
