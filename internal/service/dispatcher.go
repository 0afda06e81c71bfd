package service

import (
	"context"

	"github.com/NTitterton/agorusta/internal/domain"
)

// EventDispatcher 把新消息事件投递给实时推送面。
// 投递是尽力而为的：失败只记日志，绝不回滚已持久化的消息。
type EventDispatcher interface {
	MessageCreated(ctx context.Context, msg *domain.Message)
	DirectMessageCreated(ctx context.Context, dm *domain.DirectMessage)
}

// NopDispatcher 丢弃所有事件，用于测试或未启用实时推送的部署。
type NopDispatcher struct{}

func (NopDispatcher) MessageCreated(context.Context, *domain.Message)             {}
func (NopDispatcher) DirectMessageCreated(context.Context, *domain.DirectMessage) {}
