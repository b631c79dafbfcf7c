package app

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hylla/vettrack/internal/domain"
)

// DefaultPathCacheSize bounds the parsed-path cache when no size is configured.
const DefaultPathCacheSize = 4096

// parseOutcome caches both successes and syntax failures for one raw path.
type parseOutcome struct {
	path domain.PathAddress
	err  error
}

// PathParser parses path strings through a fixed-size LRU cache.
// The cache is created up front; nothing is loaded lazily on first use.
type PathParser struct {
	cache *lru.Cache[string, parseOutcome]
}

// NewPathParser builds a parser whose cache holds up to size entries.
func NewPathParser(size int) (*PathParser, error) {
	if size <= 0 {
		size = DefaultPathCacheSize
	}
	cache, err := lru.New[string, parseOutcome](size)
	if err != nil {
		return nil, fmt.Errorf("create path cache: %w", err)
	}
	return &PathParser{cache: cache}, nil
}

// Parse returns the parsed path, consulting the cache first.
func (p *PathParser) Parse(raw string) (domain.PathAddress, error) {
	if out, ok := p.cache.Get(raw); ok {
		return out.path, out.err
	}
	path, err := domain.ParsePath(raw)
	p.cache.Add(raw, parseOutcome{path: path, err: err})
	return path, err
}

// Len returns the number of cached entries.
func (p *PathParser) Len() int {
	return p.cache.Len()
}

// Purge drops all cached entries.
func (p *PathParser) Purge() {
	p.cache.Purge()
}
