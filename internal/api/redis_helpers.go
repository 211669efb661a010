package api

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// rateCounter 是 PIN 限流用到的最小 Redis 能力，便于测试替身。
type rateCounter interface {
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

// countAttempt 递增窗口计数并在首次计数时设置过期。计数与过期放在
// 同一个事务管道里，避免 INCR 成功后进程退出留下永不过期的键。
func countAttempt(ctx context.Context, client rateCounter, key string, window time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count attempt %q: %w", key, err)
	}
	return incr.Val(), nil
}
