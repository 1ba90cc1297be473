// Package redisstore 物品观测的 Redis 后端：一个有序集合，分值为观测时间（毫秒）
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"Datametry/internal/adapter"
	"Datametry/internal/config"
	"Datametry/internal/interfaces"
	"Datametry/internal/model"

	"github.com/gomodule/redigo/redis"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func init() {
	adapter.Register(config.ItemBackendRedis, New)
}

// itemsKey 有序集合键名（拼在 redis.key_prefix 之后）
const itemsKey = "items"

// entry 集合成员；Key 保证内容相同的两条观测不会合并为一个成员
type entry struct {
	Key string `json:"key"`
	*model.ItemObservation
}

// Store Redis 物品观测存储
type Store struct {
	pool   *redis.Pool
	key    string
	logger *logrus.Logger
}

// New 基于连接池创建存储
func New(deps adapter.Deps) (interfaces.ItemStore, error) {
	if deps.Redis == nil {
		return nil, errors.New("redis 后端需要连接池")
	}
	prefix := ""
	if deps.Config != nil {
		prefix = deps.Config.Redis.KeyPrefix
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return NewStore(deps.Redis, prefix, logger), nil
}

// NewStore 创建存储，键名为 prefix+"items"
func NewStore(pool *redis.Pool, prefix string, logger *logrus.Logger) *Store {
	return &Store{pool: pool, key: prefix + itemsKey, logger: logger}
}

func score(t time.Time) int64 {
	return t.UnixMilli()
}

func (s *Store) do(ctx context.Context, cmd string, args ...interface{}) (interface{}, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取Redis连接失败: %w", err)
	}
	defer conn.Close()
	return redis.DoContext(conn, ctx, cmd, args...)
}

func (s *Store) SaveObservation(ctx context.Context, obs *model.ItemObservation) error {
	member, err := json.Marshal(entry{Key: uuid.NewString(), ItemObservation: obs})
	if err != nil {
		return fmt.Errorf("序列化物品观测失败: %w", err)
	}
	if _, err := s.do(ctx, "ZADD", s.key, score(obs.Timestamp), member); err != nil {
		return fmt.Errorf("写入物品观测失败: %w", err)
	}
	return nil
}

func (s *Store) ListObservations(ctx context.Context, filter interfaces.ItemFilter) ([]*model.ItemObservation, error) {
	members, err := redis.ByteSlices(s.do(ctx, "ZRANGE", s.key, 0, -1))
	if err != nil {
		return nil, fmt.Errorf("读取物品观测失败: %w", err)
	}
	out := make([]*model.ItemObservation, 0, len(members))
	for _, m := range members {
		e := entry{ItemObservation: &model.ItemObservation{}}
		if err := json.Unmarshal(m, &e); err != nil {
			// 单条损坏不影响整体查询
			s.logger.WithError(err).WithField("key", s.key).Warn("跳过无法解析的物品观测")
			continue
		}
		if filter.Match(e.ItemObservation) {
			out = append(out, e.ItemObservation)
		}
	}
	return out, nil
}

func (s *Store) DeleteObservationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	upper := "(" + strconv.FormatInt(score(cutoff), 10)
	n, err := redis.Int64(s.do(ctx, "ZREMRANGEBYSCORE", s.key, "-inf", upper))
	if err != nil {
		return 0, fmt.Errorf("删除过期物品观测失败: %w", err)
	}
	return n, nil
}
