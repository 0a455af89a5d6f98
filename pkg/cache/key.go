package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix starts every cache key.
const KeyPrefix = "shopkit:page"

// CacheKey identifies a cached page.
type CacheKey struct {
	// Host is the shop host, e.g. "example.myshopify.com"
	Host string

	// Path is the endpoint path, e.g. "/admin/api/2021-04/customers.json"
	Path string

	// QueryParams hold limit and page_info
	QueryParams url.Values
}

// KeyForURL builds the key for a request URL. User info is dropped.
func KeyForURL(u *url.URL) CacheKey {
	return CacheKey{
		Host:        strings.ToLower(u.Host),
		Path:        u.Path,
		QueryParams: u.Query(),
	}
}

// String generates a deterministic cache key string.
// Format: shopkit:page:host/path:query1=val1:query2=val2
//
// Example:
//
//	shopkit:page:shop.example/admin/api/2021-04/customers.json:limit=250:page_info=
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	endpoint := strings.TrimRight(k.Host+"/"+strings.TrimLeft(k.Path, "/"), "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.QueryParams) > 0 {
		keys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.QueryParams.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}
