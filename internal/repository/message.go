package repository

import (
	"context"

	"github.com/NTitterton/agorusta/internal/domain"
)

// MessageRepository 定义了频道消息日志的追加和范围查询。
type MessageRepository interface {
	// Append 将消息追加到频道日志 (无条件写入，日志只追加)。
	Append(ctx context.Context, msg *domain.Message) error

	// ListBefore 返回频道内 created_at 严格小于 before 的最多 limit 条消息，
	// 按 created_at 降序。before <= 0 表示从最新一条开始。
	// 调用方 (分页引擎) 负责 limit+1 取法和游标计算。
	ListBefore(ctx context.Context, channelID string, before int64, limit int) ([]domain.Message, error)
}

// DirectMessageRepository 定义了私聊消息日志的追加和范围查询，语义同上。
type DirectMessageRepository interface {
	Append(ctx context.Context, msg *domain.DirectMessage) error
	ListBefore(ctx context.Context, conversationID string, before int64, limit int) ([]domain.DirectMessage, error)
}

// ConversationRepository 定义了私聊会话投影行的操作。
type ConversationRepository interface {
	// Find 查找某用户视角的会话投影行，不存在时返回 ErrConversationNotFound。
	Find(ctx context.Context, conversationID, userID string) (*domain.Conversation, error)

	// ListByUser 列出用户的全部会话投影行，按 updated_at 降序 (收件箱排序)。
	ListByUser(ctx context.Context, userID string) ([]domain.Conversation, error)

	// Save 保存投影行 (无条件 upsert)。
	Save(ctx context.Context, conv *domain.Conversation) error

	// Touch 更新投影行的 last_message_preview 和 updated_at。
	// 投影是尽力而为的缓存，调用方对失败只记录日志。
	Touch(ctx context.Context, conversationID, userID, preview string, updatedAt int64) error
}
