package hub

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/NTitterton/agorusta/internal/repository"
)

// 广播事件类型，对应下行信封的 type 字段。
const (
	EventNewMessage = "new_message"
	EventNewDM      = "new_dm"
)

// ErrConnectionGone 表示推送面已经不认识这个连接。
// 广播器收到它后会把该连接从注册表中删除 (自愈)。
var ErrConnectionGone = errors.New("hub: connection gone")

// errSendBufferFull 表示客户端的发送缓冲已满，本条投递被丢弃。
var errSendBufferFull = errors.New("hub: client send buffer full")

// PushTransport 是广播器的下行推送面。
// 本进程部署用 Hub 实现；也可以换成任何持有连接的网关。
type PushTransport interface {
	PostToConnection(ctx context.Context, connectionID string, data []byte) error
}

// envelope 是下行消息的统一信封。
type envelope struct {
	Type    string      `json:"type"`
	Message interface{} `json:"message"`
}

// Broadcaster 把一条新消息扇出给频道 (或会话) 的所有订阅连接。
type Broadcaster struct {
	registry  repository.ConnectionRegistry
	transport PushTransport
}

func NewBroadcaster(registry repository.ConnectionRegistry, transport PushTransport) *Broadcaster {
	if registry == nil {
		panic("NewBroadcaster: registry is nil")
	}
	if transport == nil {
		panic("NewBroadcaster: transport is nil")
	}
	return &Broadcaster{registry: registry, transport: transport}
}

// Broadcast 将 message 包成信封后推送给 channelID 的全部订阅者。
// channelID 对私信就是会话 ID。单个连接的失败互不影响；
// 推送面报告连接已消失时顺手清掉注册表里的残留记录。
func (b *Broadcaster) Broadcast(ctx context.Context, channelID, eventType string, message interface{}) {
	logCtx := logrus.WithFields(logrus.Fields{
		"channel_id": channelID,
		"event_type": eventType,
		"operation":  "Broadcast",
	})

	subscribers, err := b.registry.FindSubscribers(ctx, channelID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to find subscribers")
		return
	}
	if len(subscribers) == 0 {
		return
	}

	payload, err := json.Marshal(envelope{Type: eventType, Message: message})
	if err != nil {
		logCtx.WithError(err).Error("Failed to marshal broadcast envelope")
		return
	}

	delivered := 0
	for _, conn := range subscribers {
		err := b.transport.PostToConnection(ctx, conn.ID, payload)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, ErrConnectionGone):
			// 连接已消失，清理注册表里的陈旧记录
			if cleanupErr := b.registry.Disconnect(ctx, conn.ID); cleanupErr != nil {
				logCtx.WithError(cleanupErr).WithField("connection_id", conn.ID).Warn("Failed to clean up gone connection")
			} else {
				logCtx.WithField("connection_id", conn.ID).Debug("Removed gone connection from registry")
			}
		default:
			logCtx.WithError(err).WithField("connection_id", conn.ID).Warn("Failed to push to connection")
		}
	}

	logCtx.WithFields(logrus.Fields{
		"subscriber_count": len(subscribers),
		"delivered":        delivered,
	}).Debug("Broadcast complete")
}
