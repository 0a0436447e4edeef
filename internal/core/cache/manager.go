package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"nutrition-engine/internal/pkg/common"

	"go.uber.org/zap"
)

// DefaultTTL 未指定存活時間時使用
const DefaultTTL = time.Hour

// Store 快取儲存介面，由記憶體 Manager 與 RedisStore 實作
type Store interface {
	Get(ctx context.Context, key string) (any, bool)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	InvalidateNamespace(ctx context.Context, namespace string) (int, error)
}

// Clock 取得目前時間
type Clock func() time.Time

// entry 快取條目，expiresAt 為絕對時間
type entry struct {
	data      any
	expiresAt time.Time
}

// Stats 快取統計
type Stats struct {
	Size        int     `json:"size"`
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	Expirations int64   `json:"expirations"`
	Sets        int64   `json:"sets"`
	HitRatio    float64 `json:"hit_ratio"`
}

// Manager 記憶體 TTL 快取；過期條目只在下次讀取時移除，不做背景清理
type Manager struct {
	mu         sync.Mutex
	store      map[string]entry
	now        Clock
	defaultTTL time.Duration
	stats      Stats
}

// Option Manager 設定
type Option func(*Manager)

// WithClock 注入時鐘，測試用
func WithClock(clock Clock) Option {
	return func(m *Manager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithDefaultTTL 設定預設存活時間
func WithDefaultTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.defaultTTL = ttl
		}
	}
}

// NewManager 創建記憶體快取管理器
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		store:      make(map[string]entry),
		now:        time.Now,
		defaultTTL: DefaultTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get 取得快取值；已過期時刪除條目並視為未命中
func (m *Manager) Get(_ context.Context, key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.store[key]
	if !ok {
		m.stats.Misses++
		return nil, false
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.store, key)
		m.stats.Expirations++
		m.stats.Misses++
		common.LogDebug("快取已過期", zap.String("key", key))
		return nil, false
	}
	m.stats.Hits++
	return e.data, true
}

// Set 設置快取值，ttl <= 0 時使用預設存活時間
func (m *Manager) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store[key] = entry{data: value, expiresAt: m.now().Add(ttl)}
	m.stats.Sets++
	return nil
}

// Delete 刪除單一條目
func (m *Manager) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, key)
	return nil
}

// InvalidateNamespace 刪除命名空間下所有條目，回傳刪除數量
func (m *Manager) InvalidateNamespace(_ context.Context, namespace string) (int, error) {
	prefix := namespacePrefix(namespace)

	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for key := range m.store {
		if strings.HasPrefix(key, prefix) {
			delete(m.store, key)
			count++
		}
	}
	common.LogInfo("快取命名空間已清除",
		zap.String("namespace", namespace),
		zap.Int("count", count),
	)
	return count, nil
}

// Clear 清空所有條目
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = make(map[string]entry)
}

// Size 目前條目數（含尚未被讀取的過期條目）
func (m *Manager) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store)
}

// GetStats 獲取快取統計信息
func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats
	s.Size = len(m.store)
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRatio = float64(s.Hits) / float64(total)
	}
	return s
}
