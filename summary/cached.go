package summary

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/warmline/warmline/internal/cache"
	"github.com/warmline/warmline/transfer"
	"github.com/warmline/warmline/types"
)

// Cached memoizes summaries per call so a retried or re-targeted
// transfer of the same call does not pay for another model round trip.
// Fallback summaries are never cached. Implements transfer.Summarizer.
type Cached struct {
	inner  transfer.Summarizer
	cache  *cache.Manager
	ttl    time.Duration
	logger *zap.Logger
}

// NewCached wraps inner with a cache. A zero ttl uses the cache default.
func NewCached(inner transfer.Summarizer, c *cache.Manager, ttl time.Duration, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{
		inner:  inner,
		cache:  c,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "summary_cache")),
	}
}

func cacheKey(callID string) string {
	return "warmline:summary:" + callID
}

// Summarize returns the cached summary for the call when present,
// otherwise delegates to the inner summarizer and stores the result.
func (c *Cached) Summarize(ctx context.Context, cc types.ConversationContext) (*types.Summary, error) {
	key := cacheKey(cc.CallID)

	var hit types.Summary
	err := c.cache.GetJSON(ctx, key, &hit)
	if err == nil {
		c.logger.Debug("summary cache hit", zap.String("call_id", cc.CallID))
		return &hit, nil
	}
	if !cache.IsMiss(err) {
		c.logger.Warn("summary cache read failed",
			zap.String("call_id", cc.CallID), zap.Error(err))
	}

	s, err := c.inner.Summarize(ctx, cc)
	if err != nil {
		return nil, err
	}

	if !s.Fallback {
		if err := c.cache.SetJSON(ctx, key, s, c.ttl); err != nil {
			c.logger.Warn("summary cache write failed",
				zap.String("call_id", cc.CallID), zap.Error(err))
		}
	}
	return s, nil
}
