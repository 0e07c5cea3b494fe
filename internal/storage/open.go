package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/frontline-missions/config"
	"github.com/user/frontline-missions/internal/game"
	"github.com/user/frontline-missions/internal/interfaces"
)

// Stores bundles the session store and narrative archive picked by configuration
type Stores struct {
	Sessions interfaces.SessionStore
	Archive  interfaces.ArchiveStore

	closers []func() error
}

// Close releases every backend that was opened
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open builds the session store from cfg.Database and the archive from cfg.Archive
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Stores, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	stores := &Stores{}

	var sqlStore *SQLStore
	var memory *MemoryStore
	switch driver := strings.ToLower(cfg.Database.Driver); driver {
	case "sqlite", "postgres", "":
		if driver == "" {
			driver = string(DialectSQLite)
		}
		db, err := OpenSQL(ctx, driver, cfg.Database.DSN, logger)
		if err != nil {
			return nil, err
		}
		sqlStore = db
		stores.Sessions = db
		stores.closers = append(stores.closers, db.Close)
	case "file":
		stores.Sessions = game.NewFileSessionStore(cfg.Database.SessionDir)
	case "memory":
		memory = NewMemoryStore()
		stores.Sessions = memory
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	switch backend := strings.ToLower(cfg.Archive.Backend); backend {
	case "sql", "":
		if sqlStore == nil {
			// The file and memory drivers have no database to share, use the default sqlite file
			db, err := OpenSQL(ctx, string(DialectSQLite), "", logger)
			if err != nil {
				stores.Close()
				return nil, err
			}
			sqlStore = db
			stores.closers = append(stores.closers, db.Close)
		}
		stores.Archive = sqlStore
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Archive.RedisAddr,
			Password: cfg.Archive.RedisPassword,
			DB:       cfg.Archive.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			client.Close()
			stores.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Archive.RedisAddr, err)
		}
		ttl := time.Duration(cfg.Archive.TTLSeconds) * time.Second
		stores.Archive = NewRedisArchive(client, ttl, logger)
		stores.closers = append(stores.closers, client.Close)
	case "memory":
		if memory == nil {
			memory = NewMemoryStore()
		}
		stores.Archive = memory
	default:
		stores.Close()
		return nil, fmt.Errorf("unsupported archive backend %q", cfg.Archive.Backend)
	}

	logger.Info("Stores ready",
		zap.String("database", cfg.Database.Driver),
		zap.String("archive", cfg.Archive.Backend))
	return stores, nil
}
