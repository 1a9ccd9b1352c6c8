package models

import "gorm.io/gorm"

// StateBlob is a persisted application-state entry: one named key holding a
// JSON-serialized value. The storage adapter owns this table.
type StateBlob struct {
	gorm.Model
	Key   string `gorm:"uniqueIndex;not null"`
	Value string `gorm:"not null"`
}
