package store

import (
	"context"
	"strconv"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"

	"melodora/internal/core"
)

// DefaultTitleCacheFalsePositiveRate sizes the bloom prefilter.
const DefaultTitleCacheFalsePositiveRate = 0.001

// TitleCache memoizes song titles in front of a HistoryStore. Song titles
// are immutable in practice, so entries never expire; the LRU bounds memory.
// A bloom filter short-circuits lookups for ids that were never cached.
type TitleCache struct {
	HistoryStore

	bloom *bloom.BloomFilter
	lru   *lru.Cache[int64, string]
	mutex sync.RWMutex
}

// NewTitleCache wraps next. Non-positive sizes fall back to core.DefaultTitleCacheSize.
func NewTitleCache(next HistoryStore, size int, falsePositiveRate float64) *TitleCache {
	if size <= 0 {
		size = core.DefaultTitleCacheSize
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = DefaultTitleCacheFalsePositiveRate
	}
	cache, _ := lru.New[int64, string](size)

	return &TitleCache{
		HistoryStore: next,
		bloom:        bloom.NewWithEstimates(uint(size), falsePositiveRate),
		lru:          cache,
	}
}

// SongTitles serves cached titles and fetches only the misses.
func (c *TitleCache) SongTitles(ctx context.Context, ids []int64) (map[int64]string, error) {
	titles := make(map[int64]string, len(ids))
	var misses []int64

	c.mutex.RLock()
	for _, id := range distinctIDs(ids) {
		if c.bloom.TestString(cacheKey(id)) {
			if title, ok := c.lru.Get(id); ok {
				titles[id] = title
				continue
			}
		}
		misses = append(misses, id)
	}
	c.mutex.RUnlock()

	if len(misses) == 0 {
		return titles, nil
	}

	fetched, err := c.HistoryStore.SongTitles(ctx, misses)
	if err != nil {
		return nil, err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	for id, title := range fetched {
		titles[id] = title
		c.bloom.AddString(cacheKey(id))
		c.lru.Add(id, title)
	}
	return titles, nil
}

// Len returns the number of cached titles.
func (c *TitleCache) Len() int {
	return c.lru.Len()
}

func cacheKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
