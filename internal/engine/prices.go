package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// PriceSeries is an ordered sequence of positive prices sampled every Period
// starting at Start.
type PriceSeries struct {
	Start  time.Time     `json:"start"`
	Period time.Duration `json:"period"`
	Prices []float64     `json:"prices"`
}

// Len returns the number of samples.
func (s PriceSeries) Len() int {
	return len(s.Prices)
}

// TimeAt returns the timestamp of sample i.
func (s PriceSeries) TimeAt(i int) time.Time {
	return s.Start.Add(time.Duration(i) * s.Period)
}

// Validate rejects non-positive or non-finite prices.
func (s PriceSeries) Validate() error {
	if s.Period <= 0 {
		return fmt.Errorf("%w: period must be positive", ErrInvalidPriceSeries)
	}
	for i, p := range s.Prices {
		if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("%w: price at index %d is %v", ErrInvalidPriceSeries, i, p)
		}
	}
	return nil
}

// PriceSource supplies the series for a date range. Fetching happens before
// the pure pipeline runs.
type PriceSource interface {
	Prices(ctx context.Context, start, end time.Time) (PriceSeries, error)
}

// SyntheticConfig shapes the random walk.
type SyntheticConfig struct {
	StartPrice    float64
	Floor         float64
	Drift         float64
	Volatility    float64
	PeriodsPerDay int
	Seed          int64
}

// DefaultSyntheticConfig mirrors 4h candles on a BTC-like starting price.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		StartPrice:    45000,
		Floor:         100,
		Drift:         0.0001,
		Volatility:    0.02,
		PeriodsPerDay: 6,
		Seed:          1,
	}
}

// SyntheticSource generates a geometric random walk with drift. The same seed
// and range always produce the same series.
type SyntheticSource struct {
	cfg SyntheticConfig
}

var _ PriceSource = (*SyntheticSource)(nil)

func NewSyntheticSource(cfg SyntheticConfig) *SyntheticSource {
	if cfg.PeriodsPerDay <= 0 {
		cfg.PeriodsPerDay = 6
	}
	return &SyntheticSource{cfg: cfg}
}

func (s *SyntheticSource) Prices(ctx context.Context, start, end time.Time) (PriceSeries, error) {
	if !end.After(start) {
		return PriceSeries{}, fmt.Errorf("%w: end %s is not after start %s", ErrInvalidPriceSeries, end, start)
	}
	days := int(end.Sub(start).Hours() / 24)
	periods := days * s.cfg.PeriodsPerDay

	rng := rand.New(rand.NewSource(s.cfg.Seed))
	price := s.cfg.StartPrice
	prices := make([]float64, 0, periods+1)
	prices = append(prices, price)

	for i := 0; i < periods; i++ {
		if i%1000 == 0 && ctx.Err() != nil {
			return PriceSeries{}, ctx.Err()
		}
		change := (rng.NormFloat64()*s.cfg.Volatility + s.cfg.Drift) * price
		price += change
		prices = append(prices, math.Max(price, s.cfg.Floor))
	}

	return PriceSeries{
		Start:  start,
		Period: 24 * time.Hour / time.Duration(s.cfg.PeriodsPerDay),
		Prices: prices,
	}, nil
}

// StaticSource serves a fixed slice, e.g. a historical feed already loaded
// into memory.
type StaticSource struct {
	Series PriceSeries
}

var _ PriceSource = (*StaticSource)(nil)

func (s *StaticSource) Prices(_ context.Context, _, _ time.Time) (PriceSeries, error) {
	if err := s.Series.Validate(); err != nil {
		return PriceSeries{}, err
	}
	return s.Series, nil
}
