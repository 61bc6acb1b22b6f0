// Package cache provides the process-lifetime TTL memoizer shared by
// all fetch paths. Loads are deduplicated per key: any number of
// concurrent callers for the same key observe exactly one loader
// execution, and loader failures propagate to every waiter without
// being cached.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"corrpulse/internal/metrics"
)

// entry is owned exclusively by the cache; callers only ever receive
// the stored value, never a handle to the entry.
type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Service is a thread-safe TTL cache with single-flight loading and a
// background sweep of expired entries. Construct one per process and
// inject it into every component that needs caching; tests create
// fresh instances for isolation.
type Service struct {
	mu     sync.RWMutex
	items  map[string]entry
	group  singleflight.Group
	logger *slog.Logger

	sweepStop chan struct{}
	stopOnce  sync.Once
}

// NewService creates a cache that sweeps expired entries every
// sweepInterval. A non-positive interval disables the background
// sweep; expired entries are still never returned.
func NewService(sweepInterval time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		items:     make(map[string]entry),
		logger:    logger.With(slog.String("component", "cache")),
		sweepStop: make(chan struct{}),
	}
	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	}
	return s
}

// GetOrSet returns the live cached value for key, or runs loader to
// produce one. At most one loader runs per key at a time; concurrent
// callers share its result. On success the value is stored with the
// given TTL; on failure nothing is cached and the error reaches all
// waiters.
func (s *Service) GetOrSet(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	if value, ok := s.get(key); ok {
		metrics.CacheHits.Inc()
		return value, nil
	}
	metrics.CacheMisses.Inc()

	value, err, _ := s.group.Do(key, func() (interface{}, error) {
		// A racing caller may have stored the value between our miss
		// and this flight starting.
		if value, ok := s.get(key); ok {
			return value, nil
		}

		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.items[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
		s.mu.Unlock()
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// get returns the value for key if present and not expired.
func (s *Service) get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[key]
	if !ok || time.Now().After(item.expiresAt) {
		return nil, false
	}
	return item.value, true
}

// Sweep removes expired entries and reports how many were evicted.
func (s *Service) Sweep() int {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, item := range s.items {
		if now.After(item.expiresAt) {
			delete(s.items, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored entries, expired or not.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Close stops the background sweep. The cache remains usable.
func (s *Service) Close() {
	s.stopOnce.Do(func() { close(s.sweepStop) })
}

func (s *Service) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 {
				s.logger.Debug("swept expired cache entries", slog.Int("removed", removed))
			}
		case <-s.sweepStop:
			return
		}
	}
}

// GetOrSet is the typed convenience wrapper around Service.GetOrSet.
func GetOrSet[T any](ctx context.Context, s *Service, key string, ttl time.Duration, loader func(ctx context.Context) (T, error)) (T, error) {
	value, err := s.GetOrSet(ctx, key, ttl, func(ctx context.Context) (interface{}, error) {
		return loader(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return value.(T), nil
}
