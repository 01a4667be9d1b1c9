package lending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"credit-approval-workers/internal/common/logger"
	"credit-approval-workers/internal/common/metrics"
	"credit-approval-workers/internal/credit"
)

// CachedSource puts a Redis cache-aside layer in front of a BorrowerSource.
// Cache errors never fail an evaluation; they fall through to the source.
type CachedSource struct {
	source credit.BorrowerSource
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedSource(source credit.BorrowerSource, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedSource {
	return &CachedSource{source: source, redis: rdb, ttl: ttl, logger: log}
}

func borrowerKey(id int64) string { return fmt.Sprintf("lending:borrower:%d", id) }
func historyKey(id int64) string  { return fmt.Sprintf("lending:loans:%d", id) }

func (c *CachedSource) FetchBorrower(ctx context.Context, id int64) (credit.Borrower, error) {
	var b credit.Borrower
	if c.get(ctx, borrowerKey(id), &b) {
		return b, nil
	}

	b, err := c.source.FetchBorrower(ctx, id)
	if err != nil {
		return credit.Borrower{}, err
	}
	c.set(ctx, borrowerKey(id), b)
	return b, nil
}

func (c *CachedSource) FetchLoanHistory(ctx context.Context, borrowerID int64) ([]credit.LoanRecord, error) {
	var loans []credit.LoanRecord
	if c.get(ctx, historyKey(borrowerID), &loans) {
		return loans, nil
	}

	loans, err := c.source.FetchLoanHistory(ctx, borrowerID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, historyKey(borrowerID), loans)
	return loans, nil
}

// Invalidate drops the cached snapshot after the borrower's loans change.
func (c *CachedSource) Invalidate(ctx context.Context, borrowerID int64) error {
	if err := c.redis.Del(ctx, borrowerKey(borrowerID), historyKey(borrowerID)).Err(); err != nil {
		return fmt.Errorf("invalidate borrower %d: %w", borrowerID, err)
	}
	return nil
}

func (c *CachedSource) get(ctx context.Context, key string, dst interface{}) bool {
	cached, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("borrower cache read failed", map[string]interface{}{"error": err, "key": key})
			metrics.BorrowerCacheLookups.WithLabelValues("error").Inc()
		} else {
			metrics.BorrowerCacheLookups.WithLabelValues("miss").Inc()
		}
		return false
	}
	if err := json.Unmarshal([]byte(cached), dst); err != nil {
		c.logger.Warn("borrower cache entry corrupt", map[string]interface{}{"error": err, "key": key})
		metrics.BorrowerCacheLookups.WithLabelValues("error").Inc()
		return false
	}
	metrics.BorrowerCacheLookups.WithLabelValues("hit").Inc()
	return true
}

func (c *CachedSource) set(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("borrower cache write failed", map[string]interface{}{"error": err, "key": key})
	}
}
