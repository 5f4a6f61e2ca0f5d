package api

import (
	"sync"
	"time"

	"github.com/bnema/limitwatch/internal/application"
)

// Cache holds the last fetched report for the TTL window, so dashboard
// pollers do not trigger a provider round-trip per request.
type Cache struct {
	mu        sync.RWMutex
	report    application.Report
	fresh     bool
	updatedAt time.Time
	ttl       time.Duration
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl}
}

func (c *Cache) Get() (application.Report, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.fresh || c.ttl <= 0 || time.Since(c.updatedAt) > c.ttl {
		return application.Report{}, false
	}

	return c.report, true
}

func (c *Cache) Set(report application.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.report = report
	c.fresh = true
	c.updatedAt = time.Now()
}
