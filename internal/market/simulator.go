package market

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Volatility classes: coarse per-symbol constants that scale the random
// walk, with a matching decimal precision for the rounded result.
const (
	cryptoVolatility = 75.0
	metalVolatility  = 1.2
	fxVolatility     = 0.0015

	highMagnitudePrecision = 2
	lowMagnitudePrecision  = 5
)

// Simulator perturbs every registered symbol's price on a fixed interval,
// producing a bounded random walk. It is not a market model; tests must
// treat its output as a range, not exact values.
type Simulator struct {
	registry *Registry
	interval time.Duration
	floor    float64
	rng      *rand.Rand
	logger   *zap.Logger

	// onTick, when set, runs after each applied tick. Used to fan the feed
	// out to stream subscribers.
	onTick func()
}

// NewSimulator creates a Simulator over the given registry. The random
// source is injected so tests can seed it.
func NewSimulator(registry *Registry, interval time.Duration, floor float64, rng *rand.Rand, logger *zap.Logger) *Simulator {
	return &Simulator{
		registry: registry,
		interval: interval,
		floor:    floor,
		rng:      rng,
		logger:   logger.Named("simulator"),
	}
}

// SetTickCallback registers a function invoked after every applied tick.
func (s *Simulator) SetTickCallback(fn func()) {
	s.onTick = fn
}

// Run starts the tick loop and blocks until ctx is canceled. The ticker is
// stopped on return so no work leaks after shutdown.
func (s *Simulator) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Starting price simulator", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping price simulator...")
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick applies one round of price perturbation to every symbol.
func (s *Simulator) Tick() {
	snapshot := s.registry.Snapshot()
	if len(snapshot) == 0 {
		return
	}

	next := make(map[string]float64, len(snapshot))
	for _, symbol := range snapshot {
		next[symbol.Name] = s.nextPrice(symbol.Name, symbol.Price)
	}
	s.registry.applyTick(next)

	if s.onTick != nil {
		s.onTick()
	}
}

// nextPrice draws a uniform offset centered at zero, scaled by the symbol's
// volatility class, rounds to the class precision, and clamps to the floor.
func (s *Simulator) nextPrice(name string, price float64) float64 {
	volatility, precision := classify(name)
	perturbed := price + (s.rng.Float64()-0.5)*volatility
	rounded := roundTo(perturbed, precision)
	return math.Max(rounded, s.floor)
}

// classify buckets a symbol into a volatility class by name. Crypto-like
// instruments swing hardest, metals less, everything else is treated as FX.
func classify(name string) (volatility float64, precision int) {
	switch {
	case strings.Contains(name, "BTC") || strings.Contains(name, "ETH"):
		return cryptoVolatility, highMagnitudePrecision
	case strings.Contains(name, "XAU") || strings.Contains(name, "XAG"):
		return metalVolatility, highMagnitudePrecision
	default:
		return fxVolatility, lowMagnitudePrecision
	}
}

func roundTo(value float64, precision int) float64 {
	factor := math.Pow(10, float64(precision))
	return math.Round(value*factor) / factor
}
