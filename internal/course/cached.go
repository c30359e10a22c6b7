package course

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-learn/internal/platform/cache"
)

const cacheKeyPrefix = "learn:modules:"

// CachedSource keeps module graphs in Redis for a short TTL. Only content is
// cached; progress is always read from its store. Cache failures fall through
// to the wrapped source.
type CachedSource struct {
	next  Source
	cache *cache.Cache
	ttl   time.Duration
}

// NewCachedSource wraps next. A nil cache returns next unchanged.
func NewCachedSource(next Source, c *cache.Cache, ttl time.Duration) Source {
	if c == nil || ttl <= 0 {
		return next
	}
	return &CachedSource{next: next, cache: c, ttl: ttl}
}

func (s *CachedSource) Modules(ctx context.Context, courseID string) ([]Module, error) {
	key := cacheKeyPrefix + courseID

	var modules []Module
	err := s.cache.GetJSON(ctx, key, &modules)
	if err == nil {
		return modules, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		slog.Warn("module cache read failed", "course_id", courseID, "error", err)
	}

	modules, err = s.next.Modules(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, key, modules, s.ttl); err != nil {
		slog.Warn("module cache write failed", "course_id", courseID, "error", err)
	}
	return modules, nil
}

// Invalidate drops the cached graph of a course.
func (s *CachedSource) Invalidate(ctx context.Context, courseID string) error {
	return s.cache.Delete(ctx, cacheKeyPrefix+courseID)
}
