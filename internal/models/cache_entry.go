package models

import (
	"time"
)

// CacheEntry represents a cached value stored in the database fallback.
// The key column is cache_key because KEY is reserved in MySQL.
type CacheEntry struct {
	Key       string    `gorm:"column:cache_key;primaryKey;size:256"`
	Value     []byte
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
