package database

import (
	"context"
	"fmt"
	"time"

	"Datametry/internal/config"

	"github.com/gomodule/redigo/redis"
)

// NewRedisPool 创建 Redis 连接池，启动时先 PING 一次确认可用
func NewRedisPool(ctx context.Context, cfg config.RedisConfig) (*redis.Pool, error) {
	pool := &redis.Pool{
		MaxIdle:     cfg.MaxIdle,
		IdleTimeout: 5 * time.Minute,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			opts := []redis.DialOption{redis.DialDatabase(cfg.DB)}
			if cfg.Password != "" {
				opts = append(opts, redis.DialPassword(cfg.Password))
			}
			return redis.DialContext(ctx, "tcp", cfg.Addr, opts...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
	if err := PingRedis(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// PingRedis 检查 Redis 是否可达
func PingRedis(ctx context.Context, pool *redis.Pool) error {
	conn, err := pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("获取Redis连接失败: %w", err)
	}
	defer conn.Close()
	if _, err := conn.Do("PING"); err != nil {
		return fmt.Errorf("Redis PING失败: %w", err)
	}
	return nil
}
