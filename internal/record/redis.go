package record

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// Redis 键名
const (
	LeaderboardWinsKey = "puremadtanks:leaderboard:wins"
	MatchChannel       = "puremadtanks:matches"
)

// RedisRecorder 累计胜场排行榜并发布对局事件
type RedisRecorder struct {
	client *redis.Client
}

// NewRedisRecorder 创建记录器
func NewRedisRecorder(client *redis.Client) *RedisRecorder {
	return &RedisRecorder{client: client}
}

// RecordMatch 在一个事务中更新排行榜并发布事件
func (r *RedisRecorder) RecordMatch(ctx context.Context, rec MatchRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	if rec.WinnerID != "" {
		pipe.ZIncrBy(ctx, LeaderboardWinsKey, 1, rec.WinnerID)
	}
	pipe.Publish(ctx, MatchChannel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入Redis失败: %w", err)
	}
	return nil
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	PlayerID string  `json:"player_id"`
	Wins     float64 `json:"wins"`
}

// TopWinners 胜场最多的前 n 名
func (r *RedisRecorder) TopWinners(ctx context.Context, n int64) ([]LeaderboardEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	members, err := r.client.ZRevRangeWithScores(ctx, LeaderboardWinsKey, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]LeaderboardEntry, 0, len(members))
	for _, m := range members {
		id, ok := m.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, LeaderboardEntry{PlayerID: id, Wins: m.Score})
	}
	return entries, nil
}

// Close 关闭客户端
func (r *RedisRecorder) Close() error {
	return r.client.Close()
}
