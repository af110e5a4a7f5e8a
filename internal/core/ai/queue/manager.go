package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"knowlabel/internal/pkg/common"

	"go.uber.org/zap"
)

// ErrClosed 隊列已關閉
var ErrClosed = errors.New("queue manager is closed")

// Task 排入隊列的工作
type Task func()

// Status 隊列狀態
type Status struct {
	QueueLength    int   `json:"queue_length"`
	Active         int   `json:"active"`
	ProcessedCount int64 `json:"processed_count"`
	MaxQueueSize   int   `json:"max_queue_size"`
	Workers        int   `json:"workers"`
}

// Manager 固定數量 worker 的共用工作隊列，限制同時進行的模型請求
type Manager struct {
	queue     chan Task
	workers   int
	processed int64
	active    int32

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewManager 創建隊列管理器並啟動 worker
func NewManager(workers, maxSize int) *Manager {
	if workers < 1 {
		workers = 1
	}
	if maxSize < 0 {
		maxSize = 0
	}
	m := &Manager{
		queue:   make(chan Task, maxSize),
		workers: workers,
	}
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
	common.LogDebug("Queue manager started",
		zap.Int("workers", workers),
		zap.Int("max_queue_size", maxSize),
	)
	return m
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for task := range m.queue {
		atomic.AddInt32(&m.active, 1)
		m.run(task)
		atomic.AddInt32(&m.active, -1)
		atomic.AddInt64(&m.processed, 1)
	}
}

// run 執行單一工作，panic 不會終止 worker
func (m *Manager) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			common.LogError("Queue task panicked", zap.Any("error", r))
		}
	}()
	task()
}

// Submit 將工作加入隊列；隊列已滿時等待，直到有空間或 ctx 結束
func (m *Manager) Submit(ctx context.Context, task Task) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}

	select {
	case m.queue <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	return &Status{
		QueueLength:    len(m.queue),
		Active:         int(atomic.LoadInt32(&m.active)),
		ProcessedCount: atomic.LoadInt64(&m.processed),
		MaxQueueSize:   cap(m.queue),
		Workers:        m.workers,
	}
}

// Close 停止接受新工作，等待已排入的工作完成
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	m.wg.Wait()
}
