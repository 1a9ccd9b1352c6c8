package market

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"perfect-traders-go/internal/models"
	"perfect-traders-go/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupSimulator(t *testing.T, registry *Registry) *Simulator {
	rng := rand.New(rand.NewSource(42))
	return NewSimulator(registry, time.Millisecond, 0.0001, rng, zap.NewNop())
}

func TestTick_PricesStayWithinVolatilityBounds(t *testing.T) {
	registry := setupRegistry(t)
	simulator := setupSimulator(t, registry)

	before := map[string]float64{}
	for _, s := range registry.Snapshot() {
		before[s.Name] = s.Price
	}

	simulator.Tick()

	// A single tick moves each price by at most half its volatility class
	// (plus rounding), and never below the floor.
	for _, s := range registry.Snapshot() {
		volatility, _ := classify(s.Name)
		assert.InDelta(t, before[s.Name], s.Price, volatility/2+0.01,
			"symbol %s moved too far in one tick", s.Name)
		assert.GreaterOrEqual(t, s.Price, 0.0001)
	}
}

func TestTick_NeverDropsBelowFloor(t *testing.T) {
	store := setupStore(t)
	store.Write(storage.KeySymbols, []models.Symbol{{Name: "TINYUSD", Price: 0.0002}})
	registry := NewRegistry(store, 0.0001, zap.NewNop())
	simulator := setupSimulator(t, registry)

	// TINYUSD sits at the FX volatility class (0.0015), so the walk would
	// go negative almost immediately without the clamp.
	for i := 0; i < 500; i++ {
		simulator.Tick()
		price, err := registry.Price("TINYUSD")
		require.NoError(t, err)
		require.GreaterOrEqual(t, price, 0.0001)
	}
}

func TestTick_RoundsToClassPrecision(t *testing.T) {
	registry := setupRegistry(t)
	simulator := setupSimulator(t, registry)

	for i := 0; i < 20; i++ {
		simulator.Tick()
	}

	for _, s := range registry.Snapshot() {
		_, precision := classify(s.Name)
		factor := math.Pow(10, float64(precision))
		scaled := s.Price * factor
		assert.InDelta(t, math.Round(scaled), scaled, 1e-6,
			"symbol %s price %v not rounded to %d decimals", s.Name, s.Price, precision)
	}
}

func TestClassify(t *testing.T) {
	vol, precision := classify("BTCUSD")
	assert.Equal(t, 75.0, vol)
	assert.Equal(t, 2, precision)

	vol, precision = classify("XAUUSD")
	assert.Equal(t, 1.2, vol)
	assert.Equal(t, 2, precision)

	vol, precision = classify("EURUSD")
	assert.Equal(t, 0.0015, vol)
	assert.Equal(t, 5, precision)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	registry := setupRegistry(t)
	simulator := setupSimulator(t, registry)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		simulator.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("simulator did not stop after context cancellation")
	}
}

func TestTick_InvokesCallback(t *testing.T) {
	registry := setupRegistry(t)
	simulator := setupSimulator(t, registry)

	calls := 0
	simulator.SetTickCallback(func() { calls++ })

	simulator.Tick()
	simulator.Tick()

	assert.Equal(t, 2, calls)
}
