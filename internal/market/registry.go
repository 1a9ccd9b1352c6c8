// Package market holds the symbol registry and the simulated price feed.
package market

import (
	"errors"
	"math"
	"strings"
	"sync"

	"perfect-traders-go/internal/models"
	"perfect-traders-go/internal/storage"

	"go.uber.org/zap"
)

var (
	// ErrEmptyName is returned when a symbol name is blank after trimming.
	ErrEmptyName = errors.New("symbol name is empty")

	// ErrInvalidPrice is returned when a price is not a positive finite number.
	ErrInvalidPrice = errors.New("price must be a positive number")

	// ErrSymbolExists is returned when adding a symbol whose name is already registered.
	ErrSymbolExists = errors.New("symbol already exists")

	// ErrSymbolNotFound is returned when referencing a symbol that is not registered.
	ErrSymbolNotFound = errors.New("symbol not found")
)

// defaultSymbols seed the registry when no symbols have been persisted yet.
var defaultSymbols = []models.Symbol{
	{Name: "EURUSD", Price: 1.0832},
	{Name: "BTCUSD", Price: 65210.54},
	{Name: "XAUUSD", Price: 2358.4},
}

// Registry is the set of tradable symbols and their current prices.
// It is safe for concurrent use; every mutation is persisted through the
// storage adapter.
type Registry struct {
	mu      sync.RWMutex
	symbols map[string]float64
	order   []string // insertion order, for stable listings
	floor   float64
	store   *storage.Store
	logger  *zap.Logger
}

// NewRegistry creates a Registry, restoring persisted symbols or seeding
// the defaults when none exist.
func NewRegistry(store *storage.Store, floor float64, logger *zap.Logger) *Registry {
	r := &Registry{
		symbols: make(map[string]float64),
		floor:   floor,
		store:   store,
		logger:  logger.Named("registry"),
	}

	restored := storage.Read(store, storage.KeySymbols, defaultSymbols)
	if len(restored) == 0 {
		restored = defaultSymbols
	}
	for _, s := range restored {
		name := normalizeName(s.Name)
		if name == "" || !validPrice(s.Price) {
			continue
		}
		if _, ok := r.symbols[name]; ok {
			continue
		}
		r.symbols[name] = math.Max(s.Price, floor)
		r.order = append(r.order, name)
	}
	r.logger.Info("Symbol registry loaded", zap.Int("count", len(r.order)))

	return r
}

// AddSymbol registers a new symbol at the given starting price.
func (r *Registry) AddSymbol(name string, price float64) error {
	normalized := normalizeName(name)
	if normalized == "" {
		return ErrEmptyName
	}
	if !validPrice(price) {
		return ErrInvalidPrice
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.symbols[normalized]; ok {
		return ErrSymbolExists
	}
	r.symbols[normalized] = math.Max(price, r.floor)
	r.order = append(r.order, normalized)
	r.persistLocked()

	r.logger.Info("Symbol added", zap.String("symbol", normalized), zap.Float64("price", price))
	return nil
}

// SetPrice overrides the current price of an existing symbol.
func (r *Registry) SetPrice(name string, price float64) error {
	normalized := normalizeName(name)
	if !validPrice(price) {
		return ErrInvalidPrice
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.symbols[normalized]; !ok {
		return ErrSymbolNotFound
	}
	r.symbols[normalized] = math.Max(price, r.floor)
	r.persistLocked()

	r.logger.Info("Price override", zap.String("symbol", normalized), zap.Float64("price", price))
	return nil
}

// Price returns the current price for the named symbol.
func (r *Registry) Price(name string) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	price, ok := r.symbols[normalizeName(name)]
	if !ok {
		return 0, ErrSymbolNotFound
	}
	return price, nil
}

// Snapshot returns a copy of every symbol in insertion order.
func (r *Registry) Snapshot() []models.Symbol {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Symbol, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, models.Symbol{Name: name, Price: r.symbols[name]})
	}
	return out
}

// applyTick replaces every symbol's price in one batch and persists the
// result. Prices are assumed to already be rounded and floored.
func (r *Registry) applyTick(prices map[string]float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, price := range prices {
		if _, ok := r.symbols[name]; ok {
			r.symbols[name] = price
		}
	}
	r.persistLocked()
}

// persistLocked writes the current symbol set through the storage adapter.
// Callers must hold r.mu.
func (r *Registry) persistLocked() {
	out := make([]models.Symbol, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, models.Symbol{Name: name, Price: r.symbols[name]})
	}
	r.store.Write(storage.KeySymbols, out)
}

func normalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func validPrice(price float64) bool {
	return price > 0 && !math.IsNaN(price) && !math.IsInf(price, 0)
}
