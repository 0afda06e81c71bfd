package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/NTitterton/agorusta/internal/hub"
	"github.com/NTitterton/agorusta/internal/service"
	"github.com/NTitterton/agorusta/internal/tasks"
)

// EventBroadcastHandler 处理新消息扇出任务。
type EventBroadcastHandler struct {
	broadcaster *hub.Broadcaster
}

func NewEventBroadcastHandler(broadcaster *hub.Broadcaster) *EventBroadcastHandler {
	return &EventBroadcastHandler{broadcaster: broadcaster}
}

// ProcessTask 实现 asynq.Handler 接口。
func (h *EventBroadcastHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithField("task_type", t.Type())

	var payload tasks.EventBroadcastPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	h.broadcaster.Broadcast(ctx, payload.ChannelID, payload.EventType, payload.Message)
	logCtx.WithFields(logrus.Fields{
		"event_type": payload.EventType,
		"channel_id": payload.ChannelID,
	}).Debug("Broadcast task processed")
	return nil
}

// InviteCleanupHandler 处理周期性的过期邀请清理任务。
type InviteCleanupHandler struct {
	inviteService *service.InviteService
}

func NewInviteCleanupHandler(inviteService *service.InviteService) *InviteCleanupHandler {
	return &InviteCleanupHandler{inviteService: inviteService}
}

// ProcessTask 实现 asynq.Handler 接口。
func (h *InviteCleanupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	deleted, err := h.inviteService.CleanupExpired(ctx)
	if err != nil {
		return fmt.Errorf("invite cleanup: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"task_type": t.Type(),
		"deleted":   deleted,
	}).Info("Invite cleanup task processed")
	return nil
}
