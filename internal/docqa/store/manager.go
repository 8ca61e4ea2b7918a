package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/kart-io/logger"
)

// Manager 管理固定路径向量存储的作用域句柄。
// 存储文件不支持并发写句柄，写入前必须释放所有已打开的句柄，
// 写入完成后再按需重新打开（release-then-reopen）。
type Manager struct {
	mu    sync.Mutex
	path  string
	store *SQLiteStore
}

// NewManager 创建存储管理器，句柄按需延迟打开。
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Path 返回受管存储的文件路径。
func (m *Manager) Path() string {
	return m.path
}

// acquireLocked 打开共享读句柄，调用方必须持有 m.mu。
func (m *Manager) acquireLocked() (*SQLiteStore, error) {
	if m.store != nil {
		return m.store, nil
	}
	s, err := NewSQLiteStore(m.path)
	if err != nil {
		return nil, err
	}
	m.store = s
	return s, nil
}

// View 以共享句柄执行只读操作。
func (m *Manager) View(ctx context.Context, fn func(VectorStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.acquireLocked()
	if err != nil {
		return err
	}
	return fn(s)
}

// WithExclusive 以独占句柄执行写操作。
// 先关闭当前共享句柄，再打开全新句柄执行 fn，结束后关闭；
// 下一次读操作会重新打开共享句柄。
func (m *Manager) WithExclusive(ctx context.Context, fn func(VectorStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 释放现有句柄，避免写锁冲突
	if m.store != nil {
		if err := m.store.Close(); err != nil {
			logger.Warnw("failed to close shared store handle", "error", err.Error(), "path", m.path)
		}
		m.store = nil
	}

	s, err := NewSQLiteStore(m.path)
	if err != nil {
		return fmt.Errorf("打开独占句柄失败: %w", err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			logger.Warnw("failed to close exclusive store handle", "error", cerr.Error(), "path", m.path)
		}
	}()

	return fn(s)
}

// Close 释放当前句柄。
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store == nil {
		return nil
	}
	err := m.store.Close()
	m.store = nil
	return err
}
