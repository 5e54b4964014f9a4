package translation

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"babel-relay/contract"
)

var _ contract.ITranslator = (*CachedTranslator)(nil)

// sweepThreshold bounds how many expired entries can pile up before a write
// triggers a full sweep.
const sweepThreshold = 1024

type cacheKey struct {
	textHash uint64
	source   string
	target   string
}

type cacheEntry struct {
	text    string
	expires time.Time
}

// CachedTranslator memoizes successful translations for a short TTL, keyed by
// (text hash, source, target). One call per distinct language per message is
// already guaranteed upstream; the cache only absorbs re-broadcasts of the
// same text, e.g. retry paths. Failures are never cached.
type CachedTranslator struct {
	inner contract.ITranslator
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
}

func NewCachedTranslator(inner contract.ITranslator, ttl time.Duration) *CachedTranslator {
	return &CachedTranslator{
		inner:   inner,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[cacheKey]cacheEntry),
	}
}

func (c *CachedTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	key := cacheKey{textHash: xxhash.Sum64String(text), source: sourceLang, target: targetLang}

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok && c.now().Before(entry.expires) {
		c.mu.Unlock()
		return entry.text, nil
	}
	c.mu.Unlock()

	translated, err := c.inner.Translate(ctx, text, sourceLang, targetLang)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	if len(c.entries) >= sweepThreshold {
		c.sweepLocked()
	}
	c.entries[key] = cacheEntry{text: translated, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return translated, nil
}

func (c *CachedTranslator) sweepLocked() {
	now := c.now()
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}
}
