// Package cache keeps fetched API pages in Redis for a short time so that a
// label run repeated shortly after a fetch does not walk every page again.
//
// Entries hold the response body together with its headers, because the
// continuation token lives in the Link header. Keys never contain the
// credentials embedded in the request URL.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient)
//	key := cache.KeyForURL(req.URL)
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch, then:
//		entry, _ = cache.ResponseToEntry(resp, 5*time.Minute)
//		_ = manager.Set(ctx, key, entry)
//	}
//	resp = cache.EntryToResponse(entry)
//
// # Metrics
//
//   - shopkit_cache_hits_total - Cache hits
//   - shopkit_cache_misses_total - Cache misses
//   - shopkit_cache_stored_bytes_total - Bytes written to Redis
//   - shopkit_cache_errors_total{operation} - Cache operation errors
//
// Cached pages contain customer addresses; keep the TTL short.
package cache
