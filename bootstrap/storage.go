package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"alertfilter/config"
	"alertfilter/storage"

	"go.uber.org/zap"
)

// StorageComponents holds all storage-related components.
type StorageComponents struct {
	SQLite        *storage.SQLite
	Users         *storage.SQLiteUserStorage
	Roles         *storage.SQLiteRoleStorage
	Organisations *storage.SQLiteOrganisationStorage
	// Settings is the store the service reads through: the Redis cache
	// when enabled and reachable, the SQLite store otherwise
	Settings storage.UserSettingStorage
	Cache    *storage.RedisSettingCache
}

// Close releases the Redis client and the database pools.
func (s *StorageComponents) Close(sugar *zap.SugaredLogger) {
	if s.Cache != nil {
		if err := s.Cache.Close(); err != nil {
			sugar.Errorw("Failed to close Redis client", "error", err)
		}
	}
	if s.SQLite != nil {
		if err := s.SQLite.Close(); err != nil {
			sugar.Errorw("Failed to close SQLite", "error", err)
		}
	}
}

// InitSQLite initializes SQLite connection.
func InitSQLite(dirs DataDirectories, sugar *zap.SugaredLogger) (*storage.SQLite, error) {
	sqlite, err := storage.NewSQLite(dirs.SQLite, sugar)
	if err != nil {
		errMsg := ClassifySQLiteError(err, dirs.SQLite)
		fmt.Fprintf(os.Stderr, "\n========================================\n")
		fmt.Fprintf(os.Stderr, "FATAL: SQLite Initialization Failed\n")
		fmt.Fprintf(os.Stderr, "========================================\n")
		fmt.Fprintf(os.Stderr, "%s\n", errMsg)
		fmt.Fprintf(os.Stderr, "========================================\n\n")
		return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
	}

	sugar.Info("SQLite initialized successfully")
	return sqlite, nil
}

// InitStorage builds the user, role, organisation and setting stores on
// sqlite, seeds the default roles and, when configured, fronts the setting
// store with the Redis cache.
func InitStorage(ctx context.Context, sqlite *storage.SQLite, cfg *config.Config, sugar *zap.SugaredLogger) (*StorageComponents, error) {
	if sqlite == nil {
		return nil, fmt.Errorf("SQLite is required for setting storage")
	}

	roleStorage := storage.NewSQLiteRoleStorage(sqlite, sugar)
	userStorage := storage.NewSQLiteUserStorage(sqlite, sugar)
	userStorage.SetRoleStorage(roleStorage)

	seedCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := roleStorage.SeedDefaultRoles(seedCtx); err != nil {
		return nil, fmt.Errorf("failed to seed default roles: %w", err)
	}
	sugar.Info("Default roles initialized successfully")

	settingStorage := storage.NewSQLiteUserSettingStorage(sqlite, sugar)

	components := &StorageComponents{
		SQLite:        sqlite,
		Users:         userStorage,
		Roles:         roleStorage,
		Organisations: storage.NewSQLiteOrganisationStorage(sqlite, sugar),
		Settings:      settingStorage,
	}

	if !cfg.Redis.Enabled {
		sugar.Info("Redis setting cache disabled by configuration")
		return components, nil
	}

	cache, err := InitRedis(ctx, cfg, settingStorage, sugar)
	if err != nil {
		if !cfg.IsGracefulMode() {
			return nil, err
		}
		sugar.Warnw("Continuing without Redis setting cache", "error", err)
		return components, nil
	}

	components.Cache = cache
	components.Settings = cache
	return components, nil
}

// InitRedis connects the Redis setting cache in front of backend and
// verifies the server answers.
func InitRedis(ctx context.Context, cfg *config.Config, backend storage.UserSettingStorage, sugar *zap.SugaredLogger) (*storage.RedisSettingCache, error) {
	cache := storage.NewRedisSettingCache(
		cfg.Redis.Addr,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
		cfg.Redis.TTL,
		backend,
		sugar,
	)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cache.Ping(pingCtx); err != nil {
		_ = cache.Close()
		sugar.Errorw("Redis connection failed", "details", ClassifyRedisError(err, cfg.Redis.Addr))
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Redis.Addr, err)
	}

	sugar.Infow("Redis setting cache connected",
		"addr", cfg.Redis.Addr,
		"ttl", cfg.Redis.TTL)
	return cache, nil
}
