// Package ledger executes paper trades against the symbol registry and
// keeps the capped trade history and account balance.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"perfect-traders-go/internal/market"
	"perfect-traders-go/internal/models"
	"perfect-traders-go/internal/storage"

	"go.uber.org/zap"
)

var (
	// ErrUnknownSide is returned when the side is neither BUY nor SELL.
	ErrUnknownSide = errors.New("side must be BUY or SELL")

	// ErrInvalidLots is returned when the lot size is not a positive number.
	ErrInvalidLots = errors.New("lot size must be a positive number")
)

// ExecutionGateway reports executed fills to the external service seam.
// The interface is defined here, on the consumer side.
type ExecutionGateway interface {
	SubmitOrder(ctx context.Context, record models.TradeRecord) error
}

// Config bounds the ledger's behavior.
type Config struct {
	StartingBalance  float64
	HistoryCap       int
	BuyCostPerLot    float64
	SellCreditPerLot float64
}

// Ledger is the capped, most-recent-first log of executed trades plus the
// account balance. It is safe for concurrent use; the price capture, record
// append, and balance mutation happen under one lock so concurrent requests
// cannot interleave them.
type Ledger struct {
	mu      sync.RWMutex
	history []models.TradeRecord
	account models.Account
	lastID  int64 // last unix-ms used in a record id, for uniqueness

	cfg      Config
	registry *market.Registry
	store    *storage.Store
	gateway  ExecutionGateway
	logger   *zap.Logger
}

// NewLedger creates a Ledger, restoring persisted history and balance.
func NewLedger(cfg Config, registry *market.Registry, store *storage.Store, gateway ExecutionGateway, logger *zap.Logger) *Ledger {
	l := &Ledger{
		cfg:      cfg,
		registry: registry,
		store:    store,
		gateway:  gateway,
		logger:   logger.Named("ledger"),
	}
	l.history = storage.Read(store, storage.KeyHistory, []models.TradeRecord{})
	l.account = storage.Read(store, storage.KeyAccount, models.Account{Balance: round2(cfg.StartingBalance)})
	if len(l.history) > cfg.HistoryCap {
		l.history = l.history[:cfg.HistoryCap]
	}

	l.logger.Info("Ledger loaded",
		zap.Int("records", len(l.history)),
		zap.Float64("balance", l.account.Balance))
	return l
}

// PlaceTrade executes a BUY or SELL of the named symbol at its current
// price. The returned record has already been appended to the history.
func (l *Ledger) PlaceTrade(ctx context.Context, symbolName, side string, lots float64) (models.TradeRecord, error) {
	if side != models.SideBuy && side != models.SideSell {
		return models.TradeRecord{}, ErrUnknownSide
	}
	if lots <= 0 || math.IsNaN(lots) || math.IsInf(lots, 0) {
		return models.TradeRecord{}, ErrInvalidLots
	}

	l.mu.Lock()

	// Price is captured at call time, not a locked quote.
	price, err := l.registry.Price(symbolName)
	if err != nil {
		l.mu.Unlock()
		return models.TradeRecord{}, err
	}

	now := time.Now().UnixMilli()
	if now <= l.lastID {
		now = l.lastID + 1
	}
	l.lastID = now

	record := models.TradeRecord{
		ID:     fmt.Sprintf("PT-%d", now),
		Symbol: normalizedSymbol(symbolName),
		Side:   side,
		Price:  price,
		Lots:   lots,
		Time:   now,
	}

	l.history = append([]models.TradeRecord{record}, l.history...)
	if len(l.history) > l.cfg.HistoryCap {
		l.history = l.history[:l.cfg.HistoryCap]
	}

	delta := l.cfg.SellCreditPerLot * lots
	if side == models.SideBuy {
		delta = -l.cfg.BuyCostPerLot * lots
	}
	l.account.Balance = round2(l.account.Balance + delta)

	l.store.Write(storage.KeyHistory, l.history)
	l.store.Write(storage.KeyAccount, l.account)
	balance := l.account.Balance
	l.mu.Unlock()

	// The fill report is best-effort; the local ledger is the source of
	// truth for the simulation. It runs outside the lock so a slow gateway
	// cannot stall concurrent reads and trades.
	if err := l.gateway.SubmitOrder(ctx, record); err != nil {
		l.logger.Warn("Order submission call failed", zap.String("id", record.ID), zap.Error(err))
	}

	l.logger.Info("Trade executed",
		zap.String("id", record.ID),
		zap.String("symbol", record.Symbol),
		zap.String("side", record.Side),
		zap.Float64("price", record.Price),
		zap.Float64("lots", record.Lots),
		zap.Float64("balance", balance))

	return record, nil
}

// History returns a copy of the trade log, most recent first.
func (l *Ledger) History() []models.TradeRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.TradeRecord, len(l.history))
	copy(out, l.history)
	return out
}

// Balance returns the current account balance.
func (l *Ledger) Balance() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.account.Balance
}

func normalizedSymbol(name string) string {
	// Registry lookups already normalize; keep the record consistent with
	// the registry's casing.
	return strings.ToUpper(strings.TrimSpace(name))
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
