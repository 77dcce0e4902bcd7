package redis

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/save-dai/savedai-contract-v1/internal/domain"
)

// quoteTTL bounds staleness: a quote older than this is simply gone and the
// caller re-quotes the venue.
const quoteTTL = 30 * time.Second

// QuoteCache implements domain.QuoteCache using Redis hashes. Premiums are
// stored per requested amount at "quote:premium:{amount}", the exchange rate
// at "quote:rate"; both carry a "ts" field with a Unix nanosecond timestamp.
// Only the read-only quote views consult the cache; execution paths always
// hit the venues.
type QuoteCache struct {
	rdb *redis.Client
}

// NewQuoteCache creates a QuoteCache backed by the given Client.
func NewQuoteCache(c *Client) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying()}
}

func premiumKey(amount *big.Int) string {
	return "quote:premium:" + amount.String()
}

const rateKey = "quote:rate"

// SetPremium stores the premium quoted for amount option units.
func (qc *QuoteCache) SetPremium(ctx context.Context, amount, premium *big.Int, ts time.Time) error {
	key := premiumKey(amount)
	fields := map[string]interface{}{
		"premium": premium.String(),
		"ts":      strconv.FormatInt(ts.UnixNano(), 10),
	}
	pipe := qc.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, quoteTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set premium %s: %w", amount, err)
	}
	return nil
}

// GetPremium retrieves the cached premium for amount option units. Returns
// domain.ErrNotFound when nothing fresh is cached.
func (qc *QuoteCache) GetPremium(ctx context.Context, amount *big.Int) (*big.Int, time.Time, error) {
	vals, err := qc.rdb.HGetAll(ctx, premiumKey(amount)).Result()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("redis: get premium %s: %w", amount, err)
	}
	return parseQuoteHash(vals, "premium")
}

// SetExchangeRate stores the lending market's current exchange rate.
func (qc *QuoteCache) SetExchangeRate(ctx context.Context, rate *big.Int, ts time.Time) error {
	fields := map[string]interface{}{
		"rate": rate.String(),
		"ts":   strconv.FormatInt(ts.UnixNano(), 10),
	}
	pipe := qc.rdb.Pipeline()
	pipe.HSet(ctx, rateKey, fields)
	pipe.Expire(ctx, rateKey, quoteTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set exchange rate: %w", err)
	}
	return nil
}

// GetExchangeRate retrieves the cached exchange rate. Returns
// domain.ErrNotFound when nothing fresh is cached.
func (qc *QuoteCache) GetExchangeRate(ctx context.Context) (*big.Int, time.Time, error) {
	vals, err := qc.rdb.HGetAll(ctx, rateKey).Result()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("redis: get exchange rate: %w", err)
	}
	return parseQuoteHash(vals, "rate")
}

func parseQuoteHash(vals map[string]string, field string) (*big.Int, time.Time, error) {
	if len(vals) == 0 {
		return nil, time.Time{}, domain.ErrNotFound
	}
	raw, ok := vals[field]
	if !ok {
		return nil, time.Time{}, domain.ErrNotFound
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, time.Time{}, fmt.Errorf("redis: malformed %s %q", field, raw)
	}
	tsStr, ok := vals["ts"]
	if !ok {
		return nil, time.Time{}, domain.ErrNotFound
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("redis: parse ts %q: %w", tsStr, err)
	}
	return v, time.Unix(0, tsNano), nil
}

var _ domain.QuoteCache = (*QuoteCache)(nil)
