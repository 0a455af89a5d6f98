package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	// DefaultTTL applies when the caller passes no TTL
	DefaultTTL = 5 * time.Minute
)

// ResponseToEntry converts an HTTP response to a CacheEntry that expires
// after ttl. An Expires header earlier than that shortens the lifetime. The
// response body is restored after reading.
func ResponseToEntry(resp *http.Response, ttl time.Duration) (*CacheEntry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()

	resp.Body = io.NopCloser(bytes.NewReader(body))

	now := time.Now()
	entry := &CacheEntry{
		Data:       body,
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		Expires:    now.Add(ttl),
		CachedAt:   now,
	}

	if expiresStr := resp.Header.Get("Expires"); expiresStr != "" {
		if expires, err := http.ParseTime(expiresStr); err == nil && expires.Before(entry.Expires) {
			entry.Expires = expires
		}
	}

	return entry, nil
}

// EntryToResponse rebuilds an HTTP response from a cache entry.
func EntryToResponse(entry *CacheEntry) *http.Response {
	header := entry.Headers.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set("X-Cache", "HIT")

	return &http.Response{
		Status:        strconv.Itoa(entry.StatusCode) + " " + http.StatusText(entry.StatusCode),
		StatusCode:    entry.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(entry.Data)),
		ContentLength: int64(len(entry.Data)),
	}
}
