package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量
const (
	TypeEventBroadcast = "event:broadcast" // 新消息扇出
	TypeInviteCleanup  = "invite:cleanup"  // 过期邀请清理 (周期任务)
)

// EventBroadcastPayload 定义广播任务的数据结构。
// ChannelID 对私信就是会话 ID；Message 是已序列化的消息体，
// Worker 端原样放进下行信封，不再反序列化。
type EventBroadcastPayload struct {
	EventType string          `json:"event_type"`
	ChannelID string          `json:"channel_id"`
	Message   json.RawMessage `json:"message"`
}

// NewEventBroadcastTask 创建一个新消息广播任务。
func NewEventBroadcastTask(eventType, channelID string, message interface{}) (*asynq.Task, error) {
	raw, err := json.Marshal(message)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(EventBroadcastPayload{
		EventType: eventType,
		ChannelID: channelID,
		Message:   raw,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeEventBroadcast, payload), nil
}

// NewInviteCleanupTask 创建一个过期邀请清理任务，由调度器周期性入队。
func NewInviteCleanupTask() *asynq.Task {
	return asynq.NewTask(TypeInviteCleanup, nil)
}
