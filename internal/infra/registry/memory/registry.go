// Package memoryregistry 提供 ConnectionRegistry 接口的进程内实现：
// 并发 map + 读写锁。适用于单节点部署和测试；租约到期在读路径上惰性剔除。
package memoryregistry

import (
	"context"
	"sync"
	"time"

	"github.com/NTitterton/agorusta/internal/domain"
	"github.com/NTitterton/agorusta/internal/repository"
)

type record struct {
	userID    string
	channels  map[string]struct{}
	createdAt time.Time
	expiresAt time.Time
}

// MemoryConnectionRegistry 是 ConnectionRegistry 接口的进程内实现
type MemoryConnectionRegistry struct {
	mu    sync.RWMutex
	conns map[string]*record
	ttl   time.Duration
	now   func() time.Time // 测试可替换的时钟
}

// NewMemoryConnectionRegistry 创建 MemoryConnectionRegistry 实例
func NewMemoryConnectionRegistry() *MemoryConnectionRegistry {
	return &MemoryConnectionRegistry{
		conns: make(map[string]*record),
		ttl:   domain.ConnectionLeaseTTL,
		now:   time.Now,
	}
}

func (m *MemoryConnectionRegistry) Connect(_ context.Context, connectionID, userID string) error {
	now := m.now()
	m.mu.Lock()
	m.conns[connectionID] = &record{
		userID:    userID,
		channels:  make(map[string]struct{}),
		createdAt: now,
		expiresAt: now.Add(m.ttl),
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryConnectionRegistry) Disconnect(_ context.Context, connectionID string) error {
	m.mu.Lock()
	delete(m.conns, connectionID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryConnectionRegistry) Subscribe(_ context.Context, connectionID, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.live(connectionID)
	if !ok {
		return repository.ErrConnectionNotFound
	}
	rec.channels[conversationID] = struct{}{}
	return nil
}

func (m *MemoryConnectionRegistry) Unsubscribe(_ context.Context, connectionID, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.live(connectionID)
	if !ok {
		return repository.ErrConnectionNotFound
	}
	delete(rec.channels, conversationID)
	return nil
}

func (m *MemoryConnectionRegistry) FindSubscribers(_ context.Context, conversationID string) ([]domain.Connection, error) {
	now := m.now()
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []domain.Connection
	for id, rec := range m.conns {
		if now.After(rec.expiresAt) {
			continue // 租约已过期，等待剔除
		}
		if _, ok := rec.channels[conversationID]; !ok {
			continue
		}
		channels := make([]string, 0, len(rec.channels))
		for ch := range rec.channels {
			channels = append(channels, ch)
		}
		result = append(result, domain.Connection{
			ID:        id,
			UserID:    rec.userID,
			Channels:  channels,
			CreatedAt: rec.createdAt,
		})
	}
	return result, nil
}

// live 返回未过期的记录，过期记录顺手删除。调用方必须持有写锁。
func (m *MemoryConnectionRegistry) live(connectionID string) (*record, bool) {
	rec, ok := m.conns[connectionID]
	if !ok {
		return nil, false
	}
	if m.now().After(rec.expiresAt) {
		delete(m.conns, connectionID)
		return nil, false
	}
	return rec, true
}
