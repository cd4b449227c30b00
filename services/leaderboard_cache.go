package services

import (
	"context"
	"encoding/json"
	"time"

	"challenge-arena/logger"
	"challenge-arena/models"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// LeaderboardCache keeps computed leaderboards between score changes.
// Failures are logged and treated as misses.
type LeaderboardCache interface {
	Get(ctx context.Context, challengeID string) ([]models.LeaderboardEntry, bool)
	Set(ctx context.Context, challengeID string, entries []models.LeaderboardEntry)
	Invalidate(ctx context.Context, challengeID string)
}

const leaderboardKeyPrefix = "leaderboard:challenge:"

type RedisLeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

var _ LeaderboardCache = (*RedisLeaderboardCache)(nil)

func NewRedisLeaderboardCache(client *redis.Client, ttl time.Duration, log logger.Logger) *RedisLeaderboardCache {
	return &RedisLeaderboardCache{client: client, ttl: ttl, log: log}
}

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parsing REDIS_URL")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func leaderboardKey(challengeID string) string {
	return leaderboardKeyPrefix + challengeID
}

func (c *RedisLeaderboardCache) Get(ctx context.Context, challengeID string) ([]models.LeaderboardEntry, bool) {
	raw, err := c.client.Get(ctx, leaderboardKey(challengeID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("[CACHE] get failed", challengeID, err)
		}
		return nil, false
	}
	var entries []models.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		c.log.Warn("[CACHE] corrupt entry", challengeID, err)
		return nil, false
	}
	return entries, true
}

func (c *RedisLeaderboardCache) Set(ctx context.Context, challengeID string, entries []models.LeaderboardEntry) {
	raw, err := json.Marshal(entries)
	if err != nil {
		c.log.Warn("[CACHE] encode failed", challengeID, err)
		return
	}
	if err := c.client.Set(ctx, leaderboardKey(challengeID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("[CACHE] set failed", challengeID, err)
	}
}

func (c *RedisLeaderboardCache) Invalidate(ctx context.Context, challengeID string) {
	if err := c.client.Del(ctx, leaderboardKey(challengeID)).Err(); err != nil {
		c.log.Warn("[CACHE] invalidate failed", challengeID, err)
	}
}

func invalidateLeaderboard(ctx context.Context, cache LeaderboardCache, challengeID string) {
	if cache != nil {
		cache.Invalidate(ctx, challengeID)
	}
}
