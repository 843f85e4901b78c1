package pricefeed

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"leverguard/internal/adapters/redis"
	"leverguard/internal/domain/position"
	"leverguard/internal/metrics"
	"leverguard/pkg/errors"
)

// FeedRedis labels Redis fetches in metrics
const FeedRedis = "redis"

// PriceCache reads raw cached values
type PriceCache interface {
	GetString(ctx context.Context, key string) (string, error)
}

var _ position.PriceFeed = (*RedisFeed)(nil)

// RedisFeed reads the latest asset price from keys of the form <prefix><ASSET>,
// written by an external market data publisher.
type RedisFeed struct {
	cache  PriceCache
	prefix string
}

// NewRedisFeed creates a Redis backed price feed
func NewRedisFeed(cache PriceCache, prefix string) *RedisFeed {
	return &RedisFeed{cache: cache, prefix: prefix}
}

// Key returns the cache key for an asset
func (f *RedisFeed) Key(asset string) string {
	return f.prefix + strings.ToUpper(asset)
}

// Price returns the cached price for the position's asset
func (f *RedisFeed) Price(ctx context.Context, p position.Position) (price decimal.Decimal, err error) {
	defer func() { metrics.RecordPriceFetch(FeedRedis, err) }()

	raw, err := f.cache.GetString(ctx, f.Key(p.Asset))
	if errors.Is(err, redis.ErrNil) {
		return decimal.Zero, errors.Wrapf(errors.ErrPriceUnavailable, "no cached price for %s", p.Asset)
	}
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "read price for %s", p.Asset)
	}

	price, err = decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, errors.Wrapf(errors.ErrPriceUnavailable, "malformed price %q for %s", raw, p.Asset)
	}
	if !price.IsPositive() {
		return decimal.Zero, errors.Wrapf(errors.ErrPriceUnavailable, "non-positive price %s for %s", price, p.Asset)
	}
	return price, nil
}
