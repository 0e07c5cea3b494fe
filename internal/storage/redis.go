package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/frontline-missions/internal/interfaces"
	"github.com/user/frontline-missions/internal/types"
)

// Ensure RedisArchive satisfies the archive interfaces
var (
	_ interfaces.ArchiveStore  = (*RedisArchive)(nil)
	_ interfaces.ArchivePurger = (*RedisArchive)(nil)
)

// RedisArchive keeps archived narrative in redis with an optional expiry
type RedisArchive struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisArchive creates a redis backed archive. A zero ttl keeps entries forever.
func NewRedisArchive(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisArchive {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisArchive{
		client: client,
		ttl:    ttl,
		logger: logger.Named("redis_archive"),
	}
}

// archiveKey is narrative:{session}:{tag}
func archiveKey(sessionID, tag string) string {
	return fmt.Sprintf("narrative:%s:%s", sessionID, tag)
}

// archiveIndexKey lists the tags archived for a session
func archiveIndexKey(sessionID string) string {
	return fmt.Sprintf("narrative_tags:%s", sessionID)
}

// Put stores the text and records its tag in the session index
func (r *RedisArchive) Put(ctx context.Context, sessionID, tag, text string) error {
	key := archiveKey(sessionID, tag)
	indexKey := archiveIndexKey(sessionID)

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, text, r.ttl)
	pipe.SAdd(ctx, indexKey, tag)
	if r.ttl > 0 {
		pipe.Expire(ctx, indexKey, r.ttl)
	}

	r.logger.Debug("Archiving narrative",
		zap.String("session_id", sessionID),
		zap.String("tag", tag),
		zap.Int("length", len(text)),
		zap.Duration("ttl", r.ttl))

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to archive narrative in redis", zap.String("session_id", sessionID), zap.Error(err))
		return fmt.Errorf("failed to archive narrative in redis: %w", err)
	}
	return nil
}

// Get returns archived text or types.ErrArchiveNotFound
func (r *RedisArchive) Get(ctx context.Context, sessionID, tag string) (string, error) {
	text, err := r.client.Get(ctx, archiveKey(sessionID, tag)).Result()
	if errors.Is(err, redis.Nil) {
		return "", types.ErrArchiveNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read archived narrative from redis: %w", err)
	}
	return text, nil
}

// Tags lists the tags archived for a session
func (r *RedisArchive) Tags(ctx context.Context, sessionID string) ([]string, error) {
	tags, err := r.client.SMembers(ctx, archiveIndexKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list archived tags: %w", err)
	}
	return tags, nil
}

// Purge removes everything archived for a session
func (r *RedisArchive) Purge(ctx context.Context, sessionID string) error {
	tags, err := r.Tags(ctx, sessionID)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(tags)+1)
	for _, tag := range tags {
		keys = append(keys, archiveKey(sessionID, tag))
	}
	keys = append(keys, archiveIndexKey(sessionID))
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to purge archived narrative: %w", err)
	}
	return nil
}
