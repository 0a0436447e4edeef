package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"nutrition-engine/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const scanBatch = 100

// RedisStore 以 Redis 儲存的快取，值以 JSON 序列化，過期交給 Redis
type RedisStore struct {
	client     redis.UniversalClient
	prefix     string
	defaultTTL time.Duration
}

// NewRedisStore 創建 Redis 快取並測試連接
func NewRedisStore(ctx context.Context, client redis.UniversalClient, prefix string, defaultTTL time.Duration) (*RedisStore, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	common.LogInfo("Redis 快取已初始化", zap.String("prefix", prefix))
	return &RedisStore{client: client, prefix: prefix, defaultTTL: defaultTTL}, nil
}

// Get 回傳原始 JSON 位元組
func (s *RedisStore) Get(ctx context.Context, key string) (any, bool) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			common.LogWarn("讀取 Redis 快取失敗", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return data, true
}

// Set 序列化後寫入
func (s *RedisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Delete 刪除單一鍵
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}

// InvalidateNamespace 以 SCAN 找出命名空間下的鍵後批次刪除
func (s *RedisStore) InvalidateNamespace(ctx context.Context, namespace string) (int, error) {
	pattern := escapeGlob(s.prefix+namespacePrefix(namespace)) + "*"
	iter := s.client.Scan(ctx, 0, pattern, scanBatch).Iterator()

	count := 0
	batch := make([]string, 0, scanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.client.Del(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("failed to delete namespace keys: %w", err)
		}
		count += int(n)
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= scanBatch {
			if err := flush(); err != nil {
				return count, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return count, fmt.Errorf("failed to scan namespace: %w", err)
	}
	if err := flush(); err != nil {
		return count, err
	}

	common.LogInfo("Redis 快取命名空間已清除",
		zap.String("namespace", namespace),
		zap.Int("count", count),
	)
	return count, nil
}

// escapeGlob 跳脫 SCAN MATCH 的萬用字元，使命名空間以字面比對
func escapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close 關閉連線
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping 檢查 Redis 連線
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
