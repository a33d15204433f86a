// SPDX-License-Identifier: MPL-2.0

package project

import (
	"crypto/sha256"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of parsed descriptors kept by NewCachingParser.
const DefaultCacheSize = 512

type (
	cacheKey struct {
		path string
		sum  [sha256.Size]byte
	}

	// CachingParser memoizes another Parser by path and content digest, so
	// repeated crawls of an unchanged tree skip XML decoding.
	CachingParser struct {
		inner Parser
		cache *lru.Cache[cacheKey, Descriptor]
	}
)

// NewCachingParser wraps inner with an LRU cache holding size entries.
// A non-positive size selects DefaultCacheSize.
func NewCachingParser(inner Parser, size int) (*CachingParser, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, Descriptor](size)
	if err != nil {
		return nil, err
	}
	return &CachingParser{inner: inner, cache: cache}, nil
}

// Parse returns the cached descriptor when path and content are unchanged.
// Errors are never cached.
func (c *CachingParser) Parse(path string, content []byte) (*Descriptor, error) {
	key := cacheKey{path: path, sum: sha256.Sum256(content)}
	if d, ok := c.cache.Get(key); ok {
		return cloneDescriptor(d), nil
	}

	d, err := c.inner.Parse(path, content)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, *cloneDescriptor(*d))
	return d, nil
}

// Len reports the number of cached descriptors.
func (c *CachingParser) Len() int {
	return c.cache.Len()
}

// Purge drops every cached descriptor.
func (c *CachingParser) Purge() {
	c.cache.Purge()
}

func cloneDescriptor(d Descriptor) *Descriptor {
	return &Descriptor{References: slices.Clone(d.References), IsTest: d.IsTest}
}
