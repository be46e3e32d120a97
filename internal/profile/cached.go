package profile

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/phobologic/abuild/internal/lang"
)

// DefaultCacheSize is the number of resolutions Cached keeps by default.
const DefaultCacheSize = 4096

type cacheKey struct {
	path string
	info lang.CompilerInfo
}

// Cached memoises another profile's resolutions. It relies on the inner
// profile being pure.
type Cached struct {
	inner Profile
	cache *lru.Cache[cacheKey, CompileOptions]
}

// NewCached wraps inner with an LRU of the given size. A size <= 0 uses
// DefaultCacheSize.
func NewCached(inner Profile, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[cacheKey, CompileOptions](size)
	if err != nil {
		return nil, fmt.Errorf("creating profile cache: %w", err)
	}
	return &Cached{inner: inner, cache: c}, nil
}

func (c *Cached) Resolve(path string, info lang.CompilerInfo) CompileOptions {
	key := cacheKey{path: path, info: info}
	if v, ok := c.cache.Get(key); ok {
		return v.Clone()
	}
	v := c.inner.Resolve(path, info)
	c.cache.Add(key, v.Clone())
	return v
}

// Unwrap returns the wrapped profile.
func (c *Cached) Unwrap() Profile {
	return c.inner
}
