package market

import (
	"testing"

	"perfect-traders-go/internal/models"
	"perfect-traders-go/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupStore creates a storage adapter over a fresh in-memory database.
func setupStore(t *testing.T) *storage.Store {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.StateBlob{}))

	return storage.NewStore(db, zap.NewNop())
}

func setupRegistry(t *testing.T) *Registry {
	return NewRegistry(setupStore(t), 0.0001, zap.NewNop())
}

func TestNewRegistry_SeedsDefaultsWhenEmpty(t *testing.T) {
	registry := setupRegistry(t)

	names := make([]string, 0, 3)
	for _, s := range registry.Snapshot() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"EURUSD", "BTCUSD", "XAUUSD"}, names)

	price, err := registry.Price("EURUSD")
	assert.NoError(t, err)
	assert.Equal(t, 1.0832, price)
}

func TestNewRegistry_RestoresPersistedSymbols(t *testing.T) {
	store := setupStore(t)
	store.Write(storage.KeySymbols, []models.Symbol{{Name: "ETHUSD", Price: 3000}})

	registry := NewRegistry(store, 0.0001, zap.NewNop())

	snapshot := registry.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "ETHUSD", snapshot[0].Name)
}

func TestAddSymbol_NormalizesName(t *testing.T) {
	registry := setupRegistry(t)

	err := registry.AddSymbol("ethusd", 3000)
	assert.NoError(t, err)

	price, err := registry.Price("ETHUSD")
	assert.NoError(t, err)
	assert.Equal(t, 3000.0, price)

	// addSymbol("ethusd") then setPrice("ETHUSD") must hit the same entry.
	err = registry.SetPrice("ETHUSD", 3100)
	assert.NoError(t, err)

	count := 0
	for _, s := range registry.Snapshot() {
		if s.Name == "ETHUSD" {
			count++
			assert.Equal(t, 3100.0, s.Price)
		}
	}
	assert.Equal(t, 1, count)
}

func TestAddSymbol_Rejections(t *testing.T) {
	registry := setupRegistry(t)

	assert.ErrorIs(t, registry.AddSymbol("  ", 10), ErrEmptyName)
	assert.ErrorIs(t, registry.AddSymbol("NEWUSD", 0), ErrInvalidPrice)
	assert.ErrorIs(t, registry.AddSymbol("NEWUSD", -5), ErrInvalidPrice)
	assert.ErrorIs(t, registry.AddSymbol("eurusd", 2), ErrSymbolExists)

	// Rejections must not grow the registry.
	assert.Len(t, registry.Snapshot(), 3)
}

func TestSetPrice_UnknownSymbol(t *testing.T) {
	registry := setupRegistry(t)

	assert.ErrorIs(t, registry.SetPrice("NOPE", 10), ErrSymbolNotFound)
}

func TestSetPrice_ClampsToFloor(t *testing.T) {
	registry := NewRegistry(setupStore(t), 0.0001, zap.NewNop())

	err := registry.SetPrice("EURUSD", 0.00000001)
	assert.NoError(t, err)

	price, _ := registry.Price("EURUSD")
	assert.Equal(t, 0.0001, price)
}

func TestRegistry_PersistsAcrossRestarts(t *testing.T) {
	store := setupStore(t)

	first := NewRegistry(store, 0.0001, zap.NewNop())
	require.NoError(t, first.AddSymbol("GBPUSD", 1.27))

	second := NewRegistry(store, 0.0001, zap.NewNop())
	price, err := second.Price("GBPUSD")
	assert.NoError(t, err)
	assert.Equal(t, 1.27, price)
}
