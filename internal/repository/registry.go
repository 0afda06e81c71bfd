package repository

import (
	"context"

	"github.com/NTitterton/agorusta/internal/domain"
)

// ConnectionRegistry 是存活推送连接的注册表。
// 实现可以是进程内并发 map，也可以是外部存储 (如 Redis)；
// 扇出引擎只依赖这个接口，不依赖订阅者的解析策略。
type ConnectionRegistry interface {
	// Connect 为连接创建记录：空订阅集合，固定时长租约。
	// 同一 connectionID 重复 Connect 重置记录和租约。
	Connect(ctx context.Context, connectionID, userID string) error

	// Disconnect 删除连接记录。记录不存在不是错误。
	Disconnect(ctx context.Context, connectionID string) error

	// Subscribe 将会话 ID 加入连接的订阅集合。幂等：重复添加是 no-op。
	// 连接未注册时返回 ErrConnectionNotFound。
	Subscribe(ctx context.Context, connectionID, conversationID string) error

	// Unsubscribe 将会话 ID 移出订阅集合。幂等：移除不存在的 ID 是 no-op。
	// 连接未注册时返回 ErrConnectionNotFound。
	Unsubscribe(ctx context.Context, connectionID, conversationID string) error

	// FindSubscribers 返回订阅了给定会话的全部连接记录。
	// 最终一致：结果可能包含租约已过期的陈旧记录，调用方必须容忍
	// (推送失败即删除)；也可能错过刚订阅的连接，这是接受的竞态。
	FindSubscribers(ctx context.Context, conversationID string) ([]domain.Connection, error)
}
