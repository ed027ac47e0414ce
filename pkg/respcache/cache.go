// Package respcache is a short-lived cache of model responses keyed by a
// request fingerprint, so identical queries skip the upstream gateway.
package respcache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"ai-chat-gateway/pkg/llm"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Entry is one cached generation.
type Entry struct {
	Content    string
	TokensUsed int
	InsertedAt time.Time
}

// Cache pairs a TTL store with an insertion-order queue that caps the
// entry count, evicting oldest-inserted first. A singleflight group
// coalesces concurrent misses on the same fingerprint into one upstream
// call.
type Cache struct {
	entries *cache.Cache

	mu    sync.Mutex
	order *list.List // fingerprints, oldest at the front
	index map[string]*list.Element
	max   int

	group singleflight.Group
}

func New(ttl time.Duration, maxEntries int) *Cache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Cache{
		entries: cache.New(ttl, time.Minute),
		order:   list.New(),
		index:   make(map[string]*list.Element),
		max:     maxEntries,
	}
}

// Fingerprint hashes the full normalized request: model id, the ordered
// message list (ingested file text included in the message contents) and
// the generation parameters. Only identical fingerprints ever match.
func Fingerprint(model string, history []llm.Message, opts llm.Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, "model=%s\n", model)
	fmt.Fprintf(&b, "temp=%g;top_p=%g;max_tokens=%d\n", opts.Temperature, opts.TopP, opts.MaxTokens)
	for _, m := range history {
		// Length prefixes keep adjacent messages from colliding.
		fmt.Fprintf(&b, "%s:%d:%s\n", m.Role, len(m.Content), m.Content)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) Lookup(fingerprint string) (*Entry, bool) {
	if x, found := c.entries.Get(fingerprint); found {
		return x.(*Entry), true
	}
	// Expired entries may still occupy a queue slot; free it lazily.
	c.mu.Lock()
	if el, ok := c.index[fingerprint]; ok {
		c.order.Remove(el)
		delete(c.index, fingerprint)
	}
	c.mu.Unlock()
	return nil, false
}

func (c *Cache) Store(fingerprint string, entry *Entry) {
	if entry.InsertedAt.IsZero() {
		entry.InsertedAt = time.Now()
	}

	c.mu.Lock()
	if el, ok := c.index[fingerprint]; ok {
		// Overwriting counts as a new insertion: the fingerprint moves to
		// the newest slot so a refreshed entry is not the next eviction.
		c.order.Remove(el)
		delete(c.index, fingerprint)
	}
	for len(c.index) >= c.max {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		fp := oldest.Value.(string)
		c.order.Remove(oldest)
		delete(c.index, fp)
		c.entries.Delete(fp)
	}
	c.index[fingerprint] = c.order.PushBack(fingerprint)
	c.mu.Unlock()

	c.entries.Set(fingerprint, entry, cache.DefaultExpiration)
}

// Do runs fn at most once per in-flight fingerprint. Concurrent callers
// with the same fingerprint share the first caller's result.
func (c *Cache) Do(fingerprint string, fn func() (*Entry, error)) (*Entry, error) {
	v, err, _ := c.group.Do(fingerprint, func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

// Len reports the live entry count (capacity accounting, not TTL-exact).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}
