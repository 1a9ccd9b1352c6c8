// Package storage persists named application-state keys as JSON blobs.
//
// Reads never fail: any missing key, corrupt payload, or database error
// yields the caller-supplied fallback. Writes are fire-and-forget; failures
// are logged and swallowed so that a storage hiccup never breaks a trading
// operation.
package storage

import (
	"encoding/json"
	"errors"

	"perfect-traders-go/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Well-known state keys.
const (
	KeyUsers   = "users"
	KeySession = "active_session"
	KeySymbols = "symbols"
	KeyHistory = "trade_history"
	KeyAccount = "account"
)

// Store reads and writes named state blobs backed by the database.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore creates a Store over the given database connection.
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger.Named("storage")}
}

// Read returns the value persisted under key, or fallback when the key is
// absent or its payload cannot be decoded.
func Read[T any](s *Store, key string, fallback T) T {
	var blob models.StateBlob
	err := s.db.Where("key = ?", key).First(&blob).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("Failed to read state key, using fallback",
				zap.String("key", key), zap.Error(err))
		}
		return fallback
	}

	var value T
	if err := json.Unmarshal([]byte(blob.Value), &value); err != nil {
		s.logger.Warn("Corrupt state payload, using fallback",
			zap.String("key", key), zap.Error(err))
		return fallback
	}
	return value
}

// Write serializes value and upserts it under key. Failures are logged but
// never surfaced to the caller.
func (s *Store) Write(key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("Failed to serialize state value",
			zap.String("key", key), zap.Error(err))
		return
	}

	blob := models.StateBlob{Key: key, Value: string(raw)}
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&blob).Error
	if err != nil {
		s.logger.Error("Failed to persist state value",
			zap.String("key", key), zap.Error(err))
	}
}

// Delete removes the value persisted under key, if any.
func (s *Store) Delete(key string) {
	if err := s.db.Where("key = ?", key).Delete(&models.StateBlob{}).Error; err != nil {
		s.logger.Error("Failed to delete state value",
			zap.String("key", key), zap.Error(err))
	}
}
