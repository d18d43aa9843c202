package tools

import (
	"bytes"
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"convertmcp/internal/jsonx"
)

const (
	defaultCacheMaxSize = 256
	defaultCacheTTL     = 10 * time.Minute
)

// CacheConfig configures the result cache for read-only tools.
type CacheConfig struct {
	// MaxSize is the maximum number of entries in the LRU cache.
	MaxSize int
	// TTL is how long a cached result remains valid.
	TTL time.Duration
}

// DefaultCacheConfig returns the cache defaults.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{MaxSize: defaultCacheMaxSize, TTL: defaultCacheTTL}
}

type cacheEntry struct {
	result   Result
	storedAt time.Time
}

// cachedTool serves repeated calls to a read-only tool from an LRU keyed by
// tool name plus canonical arguments. Error results are never stored.
type cachedTool struct {
	delegate Tool
	cache    *lru.Cache[string, cacheEntry]
	ttl      time.Duration
	now      func() time.Time
}

// WithCache wraps delegate with a result cache. Tools with side effects are
// returned unchanged.
func WithCache(delegate Tool, config CacheConfig) Tool {
	if delegate == nil || !delegate.ReadOnly() {
		return delegate
	}
	if config.MaxSize <= 0 {
		config.MaxSize = defaultCacheMaxSize
	}
	if config.TTL <= 0 {
		config.TTL = defaultCacheTTL
	}
	cache, err := lru.New[string, cacheEntry](config.MaxSize)
	if err != nil {
		return delegate
	}
	return &cachedTool{delegate: delegate, cache: cache, ttl: config.TTL, now: time.Now}
}

func (c *cachedTool) Definition() Definition { return c.delegate.Definition() }

func (c *cachedTool) ReadOnly() bool { return true }

func (c *cachedTool) Execute(ctx context.Context, args Arguments) Result {
	key := c.delegate.Definition().Name + ":" + canonicalArgs(args)

	if entry, ok := c.cache.Get(key); ok {
		if c.now().Sub(entry.storedAt) < c.ttl {
			return cloneResult(entry.result)
		}
		c.cache.Remove(key)
	}

	result := c.delegate.Execute(ctx, args)
	if !result.IsError {
		c.cache.Add(key, cacheEntry{result: cloneResult(result), storedAt: c.now()})
	}
	return result
}

// canonicalArgs renders args with sorted keys and compacted values.
func canonicalArgs(args Arguments) string {
	if len(args) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		var buf bytes.Buffer
		if err := jsonx.Compact(&buf, args[k]); err != nil {
			b.Write(args[k])
			continue
		}
		b.Write(buf.Bytes())
	}
	b.WriteByte('}')
	return b.String()
}

func cloneResult(r Result) Result {
	r.Content = append([]Content(nil), r.Content...)
	return r
}
