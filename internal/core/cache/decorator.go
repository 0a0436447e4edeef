package cache

import (
	"context"
	"encoding/json"
	"time"

	"nutrition-engine/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Recorder 接收命中/未命中事件，供指標使用
type Recorder interface {
	CacheHit(namespace string)
	CacheMiss(namespace string)
}

// Options 裝飾器設定
type Options struct {
	TTL time.Duration
	// Coalesce 為 true 時，相同鍵的並行呼叫共用同一次 fn 執行
	Coalesce bool
	Recorder Recorder
}

// GenerateKey 以命名空間加上依鍵名排序的參數 JSON 產生快取鍵
func GenerateKey(namespace string, params any) (string, error) {
	canonical, err := common.CanonicalJSON(params)
	if err != nil {
		return "", err
	}
	return namespacePrefix(namespace) + canonical, nil
}

func namespacePrefix(namespace string) string {
	return namespace + ":"
}

// WithCache 包裝 fn：命中時直接回傳快取值，否則呼叫 fn 並儲存結果；錯誤不會被快取
func WithCache[P any, R any](store Store, namespace string, fn func(context.Context, P) (R, error), opts Options) func(context.Context, P) (R, error) {
	if store == nil {
		return fn
	}
	var group singleflight.Group

	compute := func(ctx context.Context, params P, key string) (R, error) {
		result, err := fn(ctx, params)
		if err != nil {
			return result, err
		}
		if err := store.Set(ctx, key, result, opts.TTL); err != nil {
			common.LogWarn("寫入快取失敗",
				zap.String("namespace", namespace),
				zap.Error(err),
			)
		}
		return result, nil
	}

	return func(ctx context.Context, params P) (R, error) {
		key, err := GenerateKey(namespace, params)
		if err != nil {
			common.LogWarn("無法產生快取鍵，略過快取",
				zap.String("namespace", namespace),
				zap.Error(err),
			)
			return fn(ctx, params)
		}

		if cached, ok := store.Get(ctx, key); ok {
			if result, ok := decode[R](cached); ok {
				common.LogCacheHit(namespace, key)
				if opts.Recorder != nil {
					opts.Recorder.CacheHit(namespace)
				}
				return result, nil
			}
		}
		common.LogCacheMiss(namespace, key)
		if opts.Recorder != nil {
			opts.Recorder.CacheMiss(namespace)
		}

		if !opts.Coalesce {
			return compute(ctx, params, key)
		}
		v, err, _ := group.Do(key, func() (interface{}, error) {
			return compute(ctx, params, key)
		})
		if err != nil {
			var zero R
			return zero, err
		}
		result, _ := v.(R)
		return result, nil
	}
}

// decode 將儲存值轉回 R；RedisStore 回傳的是 JSON 位元組
func decode[R any](cached any) (R, bool) {
	if result, ok := cached.(R); ok {
		return result, true
	}
	var result R
	raw, ok := cached.([]byte)
	if !ok {
		return result, false
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		common.LogWarn("快取值解析失敗", zap.Error(err))
		return result, false
	}
	return result, true
}
