package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fixversity/internal/errs"
	"fixversity/internal/infrastructure/persistence/sqlite/model"
	"fixversity/internal/ports"
)

// SQLiteCache persists query results in the query_cache table so they
// survive CLI invocations.
type SQLiteCache struct {
	db  *gorm.DB
	now func() time.Time
}

var _ ports.QueryCache = (*SQLiteCache)(nil)

func NewSQLiteCache(db *gorm.DB) *SQLiteCache {
	return &SQLiteCache{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (c *SQLiteCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := checkContext(ctx); err != nil {
		return nil, false, err
	}
	trimmedKey, err := normalizeKey(key)
	if err != nil {
		return nil, false, err
	}

	var row model.QueryCacheEntry
	if err := c.db.WithContext(ctx).Where("key = ?", trimmedKey).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, errs.Wrap(err, "query cache by key")
	}
	if row.ExpiresAt != nil && !c.now().Before(*row.ExpiresAt) {
		if err := c.db.WithContext(ctx).Where("key = ?", trimmedKey).Delete(&model.QueryCacheEntry{}).Error; err != nil {
			return nil, false, errs.Wrap(err, "delete expired cache key")
		}
		return nil, false, nil
	}

	return row.Value, true, nil
}

func (c *SQLiteCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	trimmedKey, err := normalizeKey(key)
	if err != nil {
		return err
	}

	now := c.now()
	row := model.QueryCacheEntry{
		Key:       trimmedKey,
		Value:     value,
		UpdatedAt: now,
	}
	if ttl > 0 {
		expiresAt := now.Add(ttl)
		row.ExpiresAt = &expiresAt
	}

	if err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      row.Value,
			"expires_at": row.ExpiresAt,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert cache key")
	}

	return nil
}

func (c *SQLiteCache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}
	trimmedPrefix, err := normalizeKey(prefix)
	if err != nil {
		return 0, err
	}

	result := c.db.WithContext(ctx).
		Where("key = ? OR key LIKE ? ESCAPE '\\'", trimmedPrefix, escapeLike(trimmedPrefix)+"/%").
		Delete(&model.QueryCacheEntry{})
	if result.Error != nil {
		return 0, errs.Wrap(result.Error, "delete cache prefix")
	}
	return int(result.RowsAffected), nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
