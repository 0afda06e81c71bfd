package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/NTitterton/agorusta/internal/domain"
	"github.com/NTitterton/agorusta/internal/repository"
)

const (
	// 消息正文长度上限（按 trim 后的字节计）。
	maxMessageContentLength = 2000

	defaultPageLimit = 50
	maxPageLimit     = 100
)

// MessageService 负责频道消息的写入与游标分页读取。
type MessageService struct {
	messageRepo repository.MessageRepository
	channelRepo repository.ChannelRepository
	memberRepo  repository.MemberRepository
	dispatcher  EventDispatcher
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	channelRepo repository.ChannelRepository,
	memberRepo repository.MemberRepository,
	dispatcher EventDispatcher,
) *MessageService {
	if messageRepo == nil || channelRepo == nil || memberRepo == nil {
		panic("NewMessageService: nil repository")
	}
	if dispatcher == nil {
		dispatcher = NopDispatcher{}
	}
	return &MessageService{
		messageRepo: messageRepo,
		channelRepo: channelRepo,
		memberRepo:  memberRepo,
		dispatcher:  dispatcher,
	}
}

// SendMessage 校验成员资格与正文后落库，再异步广播给频道订阅者。
func (s *MessageService) SendMessage(ctx context.Context, serverID, channelID, userID, username, content string) (*domain.Message, error) {
	logCtx := logrus.WithFields(logrus.Fields{
		"operation":  "SendMessage",
		"channel_id": channelID,
		"user_id":    userID,
	})

	if err := s.requireChannelAccess(ctx, serverID, channelID, userID); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" || len(content) > maxMessageContentLength {
		return nil, ErrInvalidInput
	}

	msg := &domain.Message{
		ID:             uuid.NewString(),
		ChannelID:      channelID,
		AuthorID:       userID,
		AuthorUsername: username,
		Content:        content,
		CreatedAt:      time.Now().UnixMilli(),
	}
	if err := s.messageRepo.Append(ctx, msg); err != nil {
		logCtx.WithError(err).Error("Failed to persist message")
		return nil, ErrInternalServer
	}

	s.dispatcher.MessageCreated(ctx, msg)

	logCtx.WithField("message_id", msg.ID).Info("Message sent")
	return msg, nil
}

// ListMessages 按 created_at 倒序分页返回频道历史。
// before 为 0 表示从最新一条开始；nextCursor 是本页最旧一条的时间戳。
func (s *MessageService) ListMessages(ctx context.Context, serverID, channelID, userID string, limit int, before int64) (*domain.MessagePage, error) {
	if err := s.requireChannelAccess(ctx, serverID, channelID, userID); err != nil {
		return nil, err
	}

	limit = ClampPageLimit(limit)
	messages, err := s.messageRepo.ListBefore(ctx, channelID, before, limit+1)
	if err != nil {
		logrus.WithError(err).WithField("channel_id", channelID).Error("Failed to list messages")
		return nil, ErrInternalServer
	}

	page := &domain.MessagePage{Messages: messages}
	if len(messages) > limit {
		page.Messages = messages[:limit]
		page.HasMore = true
	}
	if page.HasMore && len(page.Messages) > 0 {
		oldest := page.Messages[len(page.Messages)-1].CreatedAt
		page.NextCursor = &oldest
	}
	return page, nil
}

// requireChannelAccess 确认调用者是服务器成员且频道属于该服务器。
func (s *MessageService) requireChannelAccess(ctx context.Context, serverID, channelID, userID string) error {
	if _, err := s.memberRepo.Find(ctx, serverID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotMember
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"server_id": serverID,
			"user_id":   userID,
		}).Error("Failed to query membership")
		return ErrInternalServer
	}

	channel, err := s.channelRepo.FindByID(ctx, channelID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrChannelNotFound
		}
		logrus.WithError(err).WithField("channel_id", channelID).Error("Failed to query channel")
		return ErrInternalServer
	}
	if channel.ServerID != serverID {
		// 频道不属于路径里的服务器时按不存在处理，避免跨服务器探测。
		return ErrChannelNotFound
	}
	return nil
}

// ClampPageLimit 把分页大小收敛到 [1, 100]，未指定时取 50。
func ClampPageLimit(limit int) int {
	if limit <= 0 {
		return defaultPageLimit
	}
	if limit > maxPageLimit {
		return maxPageLimit
	}
	return limit
}
