package worker

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/NTitterton/agorusta/internal/domain"
	"github.com/NTitterton/agorusta/internal/hub"
	"github.com/NTitterton/agorusta/internal/tasks"
)

// MessageDispatcher 把新消息事件入队为广播任务。
// 入队失败时降级为当前进程内直接广播，保证单实例部署下消息不丢。
type MessageDispatcher struct {
	client      *asynq.Client
	broadcaster *hub.Broadcaster
}

func NewMessageDispatcher(client *asynq.Client, broadcaster *hub.Broadcaster) *MessageDispatcher {
	if client == nil {
		panic("NewMessageDispatcher: asynq client is nil")
	}
	if broadcaster == nil {
		panic("NewMessageDispatcher: broadcaster is nil")
	}
	return &MessageDispatcher{client: client, broadcaster: broadcaster}
}

// MessageCreated 实现 service.EventDispatcher。
func (d *MessageDispatcher) MessageCreated(ctx context.Context, msg *domain.Message) {
	d.dispatch(ctx, hub.EventNewMessage, msg.ChannelID, msg)
}

// DirectMessageCreated 实现 service.EventDispatcher。
func (d *MessageDispatcher) DirectMessageCreated(ctx context.Context, dm *domain.DirectMessage) {
	d.dispatch(ctx, hub.EventNewDM, dm.ConversationID, dm)
}

func (d *MessageDispatcher) dispatch(ctx context.Context, eventType, channelID string, message interface{}) {
	logCtx := logrus.WithFields(logrus.Fields{
		"event_type": eventType,
		"channel_id": channelID,
	})

	task, err := tasks.NewEventBroadcastTask(eventType, channelID, message)
	if err != nil {
		logCtx.WithError(err).Error("Failed to build broadcast task")
		return
	}

	if _, err := d.client.EnqueueContext(ctx, task, asynq.Queue("critical")); err != nil {
		logCtx.WithError(err).Warn("Failed to enqueue broadcast task, falling back to direct broadcast")
		go d.broadcaster.Broadcast(context.Background(), channelID, eventType, message)
		return
	}
	logCtx.Debug("Broadcast task enqueued")
}
