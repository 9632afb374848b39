package model

import "time"

type QueryCacheEntry struct {
	Key       string     `gorm:"column:key;type:text;primaryKey"`
	Value     []byte     `gorm:"column:value;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;not null"`
}

func (QueryCacheEntry) TableName() string {
	return "query_cache"
}
