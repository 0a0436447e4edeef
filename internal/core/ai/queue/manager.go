package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"nutrition-engine/internal/core/ai/provider"
	"nutrition-engine/internal/pkg/common"

	"go.uber.org/zap"
)

// job 隊列請求
type job struct {
	ctx    context.Context
	req    *provider.Request
	result chan result
}

// result 處理結果
type result struct {
	resp *provider.Response
	err  error
}

// Status 隊列狀態
type Status struct {
	QueueLength    int   `json:"queue_length"`
	ProcessedCount int64 `json:"processed_count"`
	MaxQueueSize   int   `json:"max_queue_size"`
	Workers        int   `json:"workers"`
}

// Manager 以固定數量的 worker 呼叫 AI 提供者，本身也實作 provider.Provider
type Manager struct {
	provider  provider.Provider
	queue     chan *job
	done      chan struct{}
	workers   int
	maxSize   int
	processed atomic.Int64
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewManager 創建隊列並啟動 worker
func NewManager(p provider.Provider, workers, maxSize int) *Manager {
	if workers <= 0 {
		workers = 1
	}
	if maxSize <= 0 {
		maxSize = 1
	}
	m := &Manager{
		provider: p,
		queue:    make(chan *job, maxSize),
		done:     make(chan struct{}),
		workers:  workers,
		maxSize:  maxSize,
	}
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}
	common.LogInfo("AI 請求隊列已啟動",
		zap.Int("workers", workers),
		zap.Int("max_queue_size", maxSize),
	)
	return m
}

func (m *Manager) worker(id int) {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case j := <-m.queue:
			if err := j.ctx.Err(); err != nil {
				j.result <- result{err: err}
				continue
			}
			resp, err := m.provider.Generate(j.ctx, j.req)
			m.processed.Add(1)
			if err != nil {
				common.LogWarn("AI 請求處理失敗", zap.Int("worker", id), zap.Error(err))
			}
			j.result <- result{resp: resp, err: err}
		}
	}
}

// Generate 將請求加入隊列並等待結果；隊列已滿時立即回傳錯誤
func (m *Manager) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	select {
	case <-m.done:
		return nil, common.ErrServiceUnavailable.Wrap(fmt.Errorf("ai queue is closed"))
	default:
	}

	j := &job{ctx: ctx, req: req, result: make(chan result, 1)}
	select {
	case m.queue <- j:
	default:
		return nil, common.ErrTooManyRequests.Wrap(fmt.Errorf("ai queue is full"))
	}

	select {
	case r := <-j.result:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.done:
		return nil, common.ErrServiceUnavailable.Wrap(fmt.Errorf("ai queue is closed"))
	}
}

// GetModel 底層模型名稱
func (m *Manager) GetModel() string {
	return m.provider.GetModel()
}

// GetTimeout 底層請求超時時間
func (m *Manager) GetTimeout() time.Duration {
	return m.provider.GetTimeout()
}

// Status 獲取隊列狀態
func (m *Manager) Status() Status {
	return Status{
		QueueLength:    len(m.queue),
		ProcessedCount: m.processed.Load(),
		MaxQueueSize:   m.maxSize,
		Workers:        m.workers,
	}
}

// Close 停止 worker 並關閉底層提供者
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
		err = m.provider.Close()
		common.LogInfo("AI 請求隊列已關閉", zap.Int64("processed", m.processed.Load()))
	})
	return err
}
