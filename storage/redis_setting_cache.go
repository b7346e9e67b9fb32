package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"alertfilter/core"
	"alertfilter/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CacheKeySettingPrefix prefixes every cached user setting key
const CacheKeySettingPrefix = "setting:"

// maxCachedSettingSize caps the encoded size of a cached setting
const maxCachedSettingSize = 1024 * 1024

// GetSettingCacheKey generates the cache key for a user's named setting
func GetSettingCacheKey(userID int64, name string) string {
	return CacheKeySettingPrefix + strconv.FormatInt(userID, 10) + ":" + name
}

// RedisSettingCache is a read-through Redis cache in front of a
// UserSettingStorage. Writes go to the backing storage first and then drop
// the cached entry. Redis failures are logged and fall through to storage.
type RedisSettingCache struct {
	client  *redis.Client
	backend UserSettingStorage
	ttl     time.Duration
	logger  *zap.SugaredLogger
}

// NewRedisSettingCache creates a new Redis setting cache instance
func NewRedisSettingCache(addr, password string, db, poolSize int, ttl time.Duration, backend UserSettingStorage, logger *zap.SugaredLogger) *RedisSettingCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})

	return &RedisSettingCache{
		client:  client,
		backend: backend,
		ttl:     ttl,
		logger:  logger,
	}
}

// Ping tests the Redis connection
func (rc *RedisSettingCache) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (rc *RedisSettingCache) Close() error {
	return rc.client.Close()
}

// GetUserSetting serves the setting from Redis when present, otherwise loads
// it from the backing storage and populates the cache.
func (rc *RedisSettingCache) GetUserSetting(ctx context.Context, userID int64, name string) (*UserSetting, error) {
	key := GetSettingCacheKey(userID, name)

	var cached UserSetting
	if found, err := rc.get(ctx, key, &cached); err == nil && found {
		return &cached, nil
	}

	setting, err := rc.backend.GetUserSetting(ctx, userID, name)
	if err != nil {
		return nil, err
	}

	if err := rc.set(ctx, key, setting); err != nil {
		rc.logger.Warnw("Failed to populate setting cache", "key", key, "error", err)
	}
	return setting, nil
}

// GetUserSettingByID is not cached
func (rc *RedisSettingCache) GetUserSettingByID(ctx context.Context, id int64) (*UserSetting, error) {
	return rc.backend.GetUserSettingByID(ctx, id)
}

// ListUserSettings is not cached
func (rc *RedisSettingCache) ListUserSettings(ctx context.Context, userID int64) ([]UserSetting, error) {
	return rc.backend.ListUserSettings(ctx, userID)
}

// SaveUserSetting writes through to storage and invalidates the cached entry
func (rc *RedisSettingCache) SaveUserSetting(ctx context.Context, setting *UserSetting) error {
	if err := rc.backend.SaveUserSetting(ctx, setting); err != nil {
		return err
	}
	rc.invalidate(ctx, GetSettingCacheKey(setting.UserID, setting.Setting))
	return nil
}

// DeleteUserSetting deletes from storage and invalidates the cached entry
func (rc *RedisSettingCache) DeleteUserSetting(ctx context.Context, userID int64, name string) error {
	err := rc.backend.DeleteUserSetting(ctx, userID, name)
	// a missing row may still have a stale cache entry
	if err == nil || errors.Is(err, ErrSettingNotFound) {
		rc.invalidate(ctx, GetSettingCacheKey(userID, name))
	}
	return err
}

// GetSettingOwner is not cached
func (rc *RedisSettingCache) GetSettingOwner(ctx context.Context, settingID int64) (core.SettingOwner, error) {
	return rc.backend.GetSettingOwner(ctx, settingID)
}

func (rc *RedisSettingCache) set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		metrics.CacheErrors.WithLabelValues("redis", "marshal").Inc()
		return err
	}

	if len(data) > maxCachedSettingSize {
		metrics.CacheErrors.WithLabelValues("redis", "size_limit").Inc()
		return fmt.Errorf("cache value size %d bytes exceeds maximum allowed size %d bytes", len(data), maxCachedSettingSize)
	}

	if err := rc.client.Set(ctx, key, data, rc.ttl).Err(); err != nil {
		metrics.CacheErrors.WithLabelValues("redis", "set").Inc()
		return err
	}
	return nil
}

func (rc *RedisSettingCache) get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := rc.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheMisses.WithLabelValues("redis").Inc()
			return false, nil
		}
		rc.logger.Errorf("Failed to get cache value for key %s: %v", key, err)
		metrics.CacheErrors.WithLabelValues("redis", "get").Inc()
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		rc.logger.Errorf("Failed to unmarshal cache value for key %s: %v", key, err)
		metrics.CacheErrors.WithLabelValues("redis", "unmarshal").Inc()
		return false, err
	}

	metrics.CacheHits.WithLabelValues("redis").Inc()
	return true, nil
}

func (rc *RedisSettingCache) invalidate(ctx context.Context, key string) {
	if err := rc.client.Del(ctx, key).Err(); err != nil {
		rc.logger.Warnw("Failed to invalidate setting cache", "key", key, "error", err)
		metrics.CacheErrors.WithLabelValues("redis", "delete").Inc()
	}
}
