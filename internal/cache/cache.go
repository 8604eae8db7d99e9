// Package cache keeps recently fetched product pages in memory so repeated
// scrapes of the same offer inside a TTL window skip the network.
package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/law-makers/sourcer/pkg/models"
	"github.com/rs/zerolog/log"
)

// Cache defines the interface for page caching implementations.
type Cache interface {
	// Get returns a cached page and whether it was found and still fresh.
	Get(key string) (*models.RawPage, bool)

	// Set stores a page with the specified TTL, replacing any previous entry.
	Set(key string, page *models.RawPage, ttl time.Duration) error

	// Delete removes a cached page. Missing keys are not an error.
	Delete(key string) error

	// Clear removes all cached pages.
	Clear() error

	// Close stops background work.
	Close()
}

type cacheEntry struct {
	Page      *models.RawPage
	ExpiresAt time.Time
	Key       string
	Size      int64
}

// MemoryCache is an LRU cache bounded by an approximate byte budget
type MemoryCache struct {
	store   map[string]*list.Element
	lruList *list.List
	mu      sync.Mutex
	maxSize int64
	size    int64
	ctx     context.Context
	cancel  context.CancelFunc
	hits    uint64
	misses  uint64
	now     func() time.Time
}

// Stats is a point-in-time snapshot of cache usage
type Stats struct {
	Entries int
	Size    int64
	MaxSize int64
	Hits    uint64
	Misses  uint64
}

// HitRate returns hits as a percentage of lookups
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// NewMemoryCache creates a new in-memory cache with LRU eviction
func NewMemoryCache(maxSizeBytes int64) *MemoryCache {
	if maxSizeBytes <= 0 {
		maxSizeBytes = 100 * 1024 * 1024
	}

	ctx, cancel := context.WithCancel(context.Background())

	cache := &MemoryCache{
		store:   make(map[string]*list.Element),
		lruList: list.New(),
		maxSize: maxSizeBytes,
		ctx:     ctx,
		cancel:  cancel,
		now:     time.Now,
	}

	go cache.cleanupExpired()

	return cache
}

// Get retrieves a cached page and marks it most recently used
func (mc *MemoryCache) Get(key string) (*models.RawPage, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	element, exists := mc.store[key]
	if !exists {
		mc.misses++
		return nil, false
	}

	entry := element.Value.(*cacheEntry)
	if mc.now().After(entry.ExpiresAt) {
		mc.misses++
		mc.removeElement(element)
		return nil, false
	}

	mc.lruList.MoveToFront(element)
	mc.hits++

	log.Debug().Str("key", key).Msg("Cache hit")
	return entry.Page, true
}

// Set stores a page in cache with TTL
func (mc *MemoryCache) Set(key string, page *models.RawPage, ttl time.Duration) error {
	if page == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	size := sizeOf(page)
	entry := &cacheEntry{
		Page:      page,
		ExpiresAt: mc.now().Add(ttl),
		Key:       key,
		Size:      size,
	}

	if element, exists := mc.store[key]; exists {
		mc.size -= element.Value.(*cacheEntry).Size
		element.Value = entry
		mc.lruList.MoveToFront(element)
		mc.size += size
	} else {
		for mc.size+size > mc.maxSize && mc.lruList.Len() > 0 {
			mc.evictLRU()
		}
		mc.store[key] = mc.lruList.PushFront(entry)
		mc.size += size
	}

	log.Debug().
		Str("key", key).
		Dur("ttl", ttl).
		Int64("size_bytes", size).
		Msg("Cached page")

	return nil
}

// Delete removes a cached page
func (mc *MemoryCache) Delete(key string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if element, exists := mc.store[key]; exists {
		mc.removeElement(element)
		log.Debug().Str("key", key).Msg("Deleted from cache")
	}
	return nil
}

// Clear removes all cached pages
func (mc *MemoryCache) Clear() error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.store = make(map[string]*list.Element)
	mc.lruList = list.New()
	mc.size = 0
	mc.hits = 0
	mc.misses = 0
	return nil
}

// Close stops the background cleanup goroutine
func (mc *MemoryCache) Close() {
	mc.cancel()
	log.Debug().Msg("Cache closed")
}

// Stats returns a usage snapshot
func (mc *MemoryCache) Stats() Stats {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	return Stats{
		Entries: mc.lruList.Len(),
		Size:    mc.size,
		MaxSize: mc.maxSize,
		Hits:    mc.hits,
		Misses:  mc.misses,
	}
}

// must be called with lock held
func (mc *MemoryCache) evictLRU() {
	element := mc.lruList.Back()
	if element == nil {
		return
	}
	key := element.Value.(*cacheEntry).Key
	mc.removeElement(element)
	log.Debug().Str("key", key).Msg("Evicted from cache (LRU)")
}

// must be called with lock held
func (mc *MemoryCache) removeElement(element *list.Element) {
	entry := element.Value.(*cacheEntry)
	mc.lruList.Remove(element)
	delete(mc.store, entry.Key)
	mc.size -= entry.Size
}

func (mc *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mc.mu.Lock()
			now := mc.now()
			var next *list.Element
			for element := mc.lruList.Front(); element != nil; element = next {
				next = element.Next()
				if now.After(element.Value.(*cacheEntry).ExpiresAt) {
					mc.removeElement(element)
				}
			}
			mc.mu.Unlock()
		case <-mc.ctx.Done():
			return
		}
	}
}

// sizeOf roughly estimates the memory held by a page
func sizeOf(page *models.RawPage) int64 {
	size := int64(len(page.HTML) + len(page.URL) + 1024)
	if p := page.Product; p != nil {
		size += int64(len(p.ProductName) + len(p.ProductDescription))
		for _, u := range p.ImageURLs {
			size += int64(len(u))
		}
		for _, u := range p.VideoURLs {
			size += int64(len(u))
		}
	}
	return size
}

// Key builds the cache key for a page fetched by source
func Key(source models.SourceKind, url string) string {
	return strings.ToLower(string(source)) + "::" + url
}
