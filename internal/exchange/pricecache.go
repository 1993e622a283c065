package exchange

import (
	"sync"
	"time"
)

// Clock возвращает текущее время. В тестах подставляется фиксированное
type Clock func() time.Time

type priceEntry struct {
	price     float64
	fetchedAt time.Time
}

// PriceCache хранит последнюю цену пары на время TTL
type PriceCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     Clock
	entries map[string]priceEntry
}

func NewPriceCache(ttl time.Duration, now Clock) *PriceCache {
	if now == nil {
		now = time.Now
	}
	return &PriceCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]priceEntry),
	}
}

// Get возвращает цену из кеша, если она моложе TTL
func (c *PriceCache) Get(key string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.fetchedAt) >= c.ttl {
		return 0, false
	}
	return e.price, true
}

// Stale возвращает последнюю известную цену независимо от возраста
func (c *PriceCache) Stale(key string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	return e.price, ok
}

func (c *PriceCache) Set(key string, price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = priceEntry{price: price, fetchedAt: c.now()}
}
