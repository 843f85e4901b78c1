package pricefeed

import (
	"context"
	"math/rand/v2"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leverguard/internal/adapters/redis"
	"leverguard/internal/domain/position"
	"leverguard/internal/testsupport"
	"leverguard/pkg/errors"
)

func ethPosition() position.Position {
	return position.Position{ID: "pos_1", Asset: "eth", CurrentPrice: decimal.NewFromInt(3500)}
}

func TestSimulated_StaysWithinVolatility(t *testing.T) {
	feed := NewSimulatedWithSource(0.02, rand.NewPCG(1, 2))
	p := ethPosition()

	low := decimal.NewFromInt(3430)
	high := decimal.NewFromInt(3570)
	for i := 0; i < 500; i++ {
		price, err := feed.Price(context.Background(), p)
		require.NoError(t, err)
		assert.True(t, price.GreaterThanOrEqual(low) && price.LessThanOrEqual(high), "price %s out of band", price)
	}
}

func TestSimulated_ZeroVolatilityIsFlat(t *testing.T) {
	feed := NewSimulatedWithSource(0, rand.NewPCG(3, 4))

	price, err := feed.Price(context.Background(), ethPosition())
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(3500)))
}

type mapCache map[string]string

func (m mapCache) GetString(_ context.Context, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", redis.ErrNil
	}
	return v, nil
}

func TestRedisFeed_Price(t *testing.T) {
	feed := NewRedisFeed(mapCache{"price:ETH": " 2250.5 ", "price:BAD": "n/a", "price:ZERO": "0"}, "price:")

	price, err := feed.Price(context.Background(), ethPosition())
	require.NoError(t, err)
	assert.Equal(t, "2250.5", price.String())

	tests := []struct {
		name  string
		asset string
	}{
		{"missing key", "BTC"},
		{"malformed value", "BAD"},
		{"zero price", "ZERO"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := feed.Price(context.Background(), position.Position{ID: "pos_x", Asset: tt.asset})
			assert.True(t, errors.Is(err, errors.ErrPriceUnavailable))
		})
	}
}

func TestRedisFeed_Integration(t *testing.T) {
	if testing.Short() || os.Getenv("REDIS_HOST") == "" {
		t.Skip("set REDIS_HOST to run redis integration tests")
	}

	cfg := testsupport.LoadRedisConfigFromEnv(t)
	rdb := testsupport.NewRedisClient(t, cfg)
	require.NoError(t, rdb.Set(context.Background(), "price:ETH", "3512.25", 0).Err())

	feed := NewRedisFeed(redis.Wrap(rdb), "price:")
	price, err := feed.Price(context.Background(), ethPosition())
	require.NoError(t, err)
	assert.Equal(t, "3512.25", price.String())
}
