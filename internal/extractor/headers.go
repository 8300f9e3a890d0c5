package extractor

import (
	"github.com/mamamialezatoz/go-techstack/internal/detection"
	"github.com/mamamialezatoz/go-techstack/internal/models"
)

// HeaderEntry is the header set captured for one navigation of a tab
type HeaderEntry struct {
	Epoch   uint64
	URL     string
	Headers map[string]string
}

// HeaderCache keeps the most recent top-level response headers per tab. It
// lives independently of visit records and is not safe for concurrent use;
// the coordinator goroutine owns it.
type HeaderCache struct {
	entries map[models.TabID]HeaderEntry
}

// NewHeaderCache creates an empty cache
func NewHeaderCache() *HeaderCache {
	return &HeaderCache{entries: make(map[models.TabID]HeaderEntry)}
}

// Put overwrites the entry for tab
func (c *HeaderCache) Put(tab models.TabID, entry HeaderEntry) {
	c.entries[tab] = entry
}

// Get returns the entry for tab
func (c *HeaderCache) Get(tab models.TabID) (HeaderEntry, bool) {
	e, ok := c.entries[tab]
	return e, ok
}

// Delete drops the entry for tab
func (c *HeaderCache) Delete(tab models.TabID) {
	delete(c.entries, tab)
}

// HeaderExtractor captures top-level response headers and scores them
type HeaderExtractor struct {
	cache   *HeaderCache
	matcher *detection.Matcher
}

// NewHeaderExtractor creates an extractor over its own cache
func NewHeaderExtractor(m *detection.Matcher) *HeaderExtractor {
	if m == nil {
		m = detection.NewMatcher()
	}
	return &HeaderExtractor{cache: NewHeaderCache(), matcher: m}
}

// Capture normalizes the headers of the document at url and stores them for
// tab under epoch, replacing whatever the previous navigation left. The
// normalized map is returned.
func (x *HeaderExtractor) Capture(tab models.TabID, epoch uint64, url string, headers map[string][]string) map[string]string {
	normalized := detection.NormalizeHeaders(headers)
	x.cache.Put(tab, HeaderEntry{Epoch: epoch, URL: url, Headers: normalized})
	return normalized
}

// GetHeaders returns the headers last captured for tab
func (x *HeaderExtractor) GetHeaders(tab models.TabID) (map[string]string, bool) {
	e, ok := x.cache.Get(tab)
	if !ok {
		return nil, false
	}
	return e.Headers, true
}

// Entry returns the cached headers for tab with the epoch they belong to
func (x *HeaderExtractor) Entry(tab models.TabID) (HeaderEntry, bool) {
	return x.cache.Get(tab)
}

// Forget drops the cached headers of tab
func (x *HeaderExtractor) Forget(tab models.TabID) {
	x.cache.Delete(tab)
}

// Detect scores header patterns only
func (x *HeaderExtractor) Detect(db *models.SignatureDatabase, headers map[string]string) []models.Detection {
	if len(headers) == 0 {
		return nil
	}
	return x.matcher.Score(db, models.Evidence{Headers: headers}, models.KindResponseHeader)
}
