package fetch

// cacheManager builds conditional-request headers and persists cache
// updates after each fetch, grounded on original_source's CacheManager.
type cacheManager struct {
	store CacheStore
}

func newCacheManager(store CacheStore) *cacheManager {
	return &cacheManager{store: store}
}

func (c *cacheManager) conditionalHeaders(sourceID string) map[string]string {
	headers := map[string]string{}
	entry, ok, err := c.store.GetHTTPCache(sourceID)
	if err != nil || !ok {
		return headers
	}
	if entry.ETag != "" {
		headers["If-None-Match"] = entry.ETag
	}
	if entry.LastModified != "" {
		headers["If-Modified-Since"] = entry.LastModified
	}
	return headers
}

func (c *cacheManager) updateFromResult(sourceID string, result Result) {
	if result.Error != nil && result.StatusCode != statusNotModified {
		_ = c.store.UpsertHTTPCache(HttpCacheEntry{
			SourceID:      sourceID,
			LastStatus:    result.StatusCode,
			HasLastStatus: result.StatusCode > 0,
		})
		return
	}

	etag, _ := headerValue(result.Headers, "etag")
	lastModified, _ := headerValue(result.Headers, "last-modified")

	if result.StatusCode == statusNotModified {
		if existing, ok, _ := c.store.GetHTTPCache(sourceID); ok {
			if etag == "" {
				etag = existing.ETag
			}
			if lastModified == "" {
				lastModified = existing.LastModified
			}
		}
	}

	_ = c.store.UpsertHTTPCache(HttpCacheEntry{
		SourceID:      sourceID,
		ETag:          etag,
		LastModified:  lastModified,
		LastStatus:    result.StatusCode,
		HasLastStatus: true,
	})
}
