package pricefeed

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/shopspring/decimal"

	"leverguard/internal/domain/position"
	"leverguard/internal/metrics"
)

const (
	// FeedSimulated labels simulated fetches in metrics
	FeedSimulated = "simulated"

	pricePrecision = 8
)

var _ position.PriceFeed = (*Simulated)(nil)

// Simulated moves each price by a uniform random step of at most ±volatility per call
type Simulated struct {
	mu         sync.Mutex
	rnd        *rand.Rand
	volatility float64
}

// NewSimulated creates a random-walk feed. volatility is a fraction, 0.02 means ±2%.
func NewSimulated(volatility float64) *Simulated {
	return NewSimulatedWithSource(volatility, rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// NewSimulatedWithSource creates a feed with a fixed random source
func NewSimulatedWithSource(volatility float64, src rand.Source) *Simulated {
	return &Simulated{
		rnd:        rand.New(src),
		volatility: volatility,
	}
}

// Price returns the position's current price after one random step
func (s *Simulated) Price(_ context.Context, p position.Position) (decimal.Decimal, error) {
	s.mu.Lock()
	step := (s.rnd.Float64()*2 - 1) * s.volatility
	s.mu.Unlock()

	next := p.CurrentPrice.Mul(decimal.NewFromFloat(1 + step)).Round(pricePrecision)
	metrics.RecordPriceFetch(FeedSimulated, nil)
	return next, nil
}
