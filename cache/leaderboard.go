// Package cache holds the Redis mirror of the score leaderboard.
package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const LeaderboardScoreKey = "leaderboard:score"

// ScoreEntry is one member of the sorted set.
type ScoreEntry struct {
	UserID string
	Score  int64
}

// Leaderboard mirrors committed user scores in a Redis ZSet. The database
// stays authoritative.
type Leaderboard struct {
	client redis.Cmdable
	key    string
}

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func NewLeaderboard(client redis.Cmdable) *Leaderboard {
	return &Leaderboard{client: client, key: LeaderboardScoreKey}
}

// AddScore adds the points of a committed play to the user's score.
func (l *Leaderboard) AddScore(ctx context.Context, userID string, points int64) error {
	return l.client.ZIncrBy(ctx, l.key, float64(points), userID).Err()
}

// Top returns the n highest scores, highest first.
func (l *Leaderboard) Top(ctx context.Context, n int) ([]ScoreEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	results, err := l.client.ZRevRangeWithScores(ctx, l.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]ScoreEntry, 0, len(results))
	for _, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, ScoreEntry{UserID: member, Score: int64(z.Score)})
	}
	return entries, nil
}

// Replace swaps the whole set for entries in one MULTI/EXEC.
func (l *Leaderboard) Replace(ctx context.Context, entries []ScoreEntry) error {
	tmp := l.key + ":rebuild"
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, tmp)
		if len(entries) == 0 {
			pipe.Del(ctx, l.key)
			return nil
		}
		members := make([]redis.Z, len(entries))
		for i, e := range entries {
			members[i] = redis.Z{Score: float64(e.Score), Member: e.UserID}
		}
		pipe.ZAdd(ctx, tmp, members...)
		pipe.Rename(ctx, tmp, l.key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to rebuild leaderboard: %w", err)
	}
	return nil
}
