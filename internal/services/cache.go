package services

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"powdercast/internal/forecast"
)

type CacheItem struct {
	Data      interface{}
	ExpiresAt time.Time
}

// ForecastCache is a TTL cache over the upstream responses: overview
// ranges, day segments, hourly series and location lists, all behind one
// keyed map with size-bounded eviction and periodic cleanup.
type ForecastCache struct {
	mu              sync.RWMutex
	items           map[string]CacheItem
	logger          *zap.Logger
	defaultDuration time.Duration
	maxSize         int
	cleanupInterval time.Duration
	stopCleanup     chan bool
	stopOnce        sync.Once
}

func NewForecastCache(defaultDuration time.Duration, maxSize int, logger *zap.Logger) *ForecastCache {
	cache := &ForecastCache{
		items:           make(map[string]CacheItem),
		logger:          logger,
		defaultDuration: defaultDuration,
		maxSize:         maxSize,
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan bool),
	}

	go cache.startCleanup()

	return cache
}

func overviewKey(locationID, startKey, endKey string) string {
	return fmt.Sprintf("overview:%s:%s:%s", locationID, startKey, endKey)
}

func segmentsKey(locationID, dateKey string) string {
	return fmt.Sprintf("segments:%s:%s", locationID, dateKey)
}

func hourlyKey(locationID, dateKey string) string {
	return fmt.Sprintf("hourly:%s:%s", locationID, dateKey)
}

func locationsKey(query string, skiResortsOnly bool, limit int) string {
	return fmt.Sprintf("locations:%s:%s:%d", query, strconv.FormatBool(skiResortsOnly), limit)
}

func (c *ForecastCache) set(key string, data interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) >= c.maxSize {
		c.evictOldest()
	}

	c.items[key] = CacheItem{
		Data:      data,
		ExpiresAt: time.Now().Add(c.defaultDuration),
	}

	c.logger.Debug("Cached item", zap.String("key", key))
}

func (c *ForecastCache) get(key string) (interface{}, bool) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if time.Now().After(item.ExpiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil, false
	}

	return item.Data, true
}

// Invalidate drops one key; the scheduler uses it to force a fresh
// overview fetch.
func (c *ForecastCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *ForecastCache) SetOverview(locationID, startKey, endKey string, days []forecast.DailyOverview) {
	c.set(overviewKey(locationID, startKey, endKey), days)
}

func (c *ForecastCache) GetOverview(locationID, startKey, endKey string) ([]forecast.DailyOverview, bool) {
	data, ok := c.get(overviewKey(locationID, startKey, endKey))
	if !ok {
		return nil, false
	}
	days, ok := data.([]forecast.DailyOverview)
	return days, ok
}

func (c *ForecastCache) SetSegments(locationID, dateKey string, segments []forecast.Segment) {
	c.set(segmentsKey(locationID, dateKey), segments)
}

func (c *ForecastCache) GetSegments(locationID, dateKey string) ([]forecast.Segment, bool) {
	data, ok := c.get(segmentsKey(locationID, dateKey))
	if !ok {
		return nil, false
	}
	segments, ok := data.([]forecast.Segment)
	return segments, ok
}

func (c *ForecastCache) SetHourly(locationID, dateKey string, samples []forecast.HourlySample) {
	c.set(hourlyKey(locationID, dateKey), samples)
}

func (c *ForecastCache) GetHourly(locationID, dateKey string) ([]forecast.HourlySample, bool) {
	data, ok := c.get(hourlyKey(locationID, dateKey))
	if !ok {
		return nil, false
	}
	samples, ok := data.([]forecast.HourlySample)
	return samples, ok
}

func (c *ForecastCache) SetLocations(query string, skiResortsOnly bool, limit int, locations []forecast.Location) {
	c.set(locationsKey(query, skiResortsOnly, limit), locations)
}

func (c *ForecastCache) GetLocations(query string, skiResortsOnly bool, limit int) ([]forecast.Location, bool) {
	data, ok := c.get(locationsKey(query, skiResortsOnly, limit))
	if !ok {
		return nil, false
	}
	locations, ok := data.([]forecast.Location)
	return locations, ok
}

func (c *ForecastCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, item := range c.items {
		if oldestKey == "" || item.ExpiresAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.ExpiresAt
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
		c.logger.Debug("Evicted oldest cache item", zap.String("key", oldestKey))
	}
}

func (c *ForecastCache) startCleanup() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopCleanup:
			return
		}
	}
}

func (c *ForecastCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expiredCount := 0

	for key, item := range c.items {
		if now.After(item.ExpiresAt) {
			delete(c.items, key)
			expiredCount++
		}
	}

	if expiredCount > 0 {
		c.logger.Debug("Cleaned expired cache items", zap.Int("count", expiredCount))
	}
}

func (c *ForecastCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCleanup)
	})
}

func (c *ForecastCache) GetStats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return map[string]interface{}{
		"items":            len(c.items),
		"max_size":         c.maxSize,
		"default_duration": c.defaultDuration.String(),
	}
}
