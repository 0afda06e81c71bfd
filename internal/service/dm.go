package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/NTitterton/agorusta/internal/domain"
	"github.com/NTitterton/agorusta/internal/repository"
)

// 会话列表预览截断阈值：超过 50 字符时保留前 47 字符并追加省略号。
const (
	previewMaxLength  = 50
	previewHeadLength = 47
)

// DMService 负责私聊会话与私信。
type DMService struct {
	userRepo   repository.UserRepository
	convRepo   repository.ConversationRepository
	dmRepo     repository.DirectMessageRepository
	dispatcher EventDispatcher
}

func NewDMService(
	userRepo repository.UserRepository,
	convRepo repository.ConversationRepository,
	dmRepo repository.DirectMessageRepository,
	dispatcher EventDispatcher,
) *DMService {
	if userRepo == nil || convRepo == nil || dmRepo == nil {
		panic("NewDMService: nil repository")
	}
	if dispatcher == nil {
		dispatcher = NopDispatcher{}
	}
	return &DMService{
		userRepo:   userRepo,
		convRepo:   convRepo,
		dmRepo:     dmRepo,
		dispatcher: dispatcher,
	}
}

// SearchUsers 按用户名前缀搜索，排除调用者自己。
func (s *DMService) SearchUsers(ctx context.Context, query, currentUserID string) ([]domain.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.User{}, nil
	}
	users, err := s.userRepo.SearchByUsernamePrefix(ctx, query, currentUserID, 20)
	if err != nil {
		logrus.WithError(err).WithField("query", query).Error("Failed to search users")
		return nil, ErrInternalServer
	}
	return users, nil
}

// ListConversations 列出用户的会话投影，按最后活动时间倒序。
func (s *DMService) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	conversations, err := s.convRepo.ListByUser(ctx, userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to list conversations")
		return nil, ErrInternalServer
	}
	return conversations, nil
}

// StartConversation 建立（或返回已有的）与 recipient 的会话。
// 会话为双方各写一行投影，以便各自独立查询。
func (s *DMService) StartConversation(ctx context.Context, userID, username, recipientID string) (*domain.Conversation, error) {
	logCtx := logrus.WithFields(logrus.Fields{
		"operation":    "StartConversation",
		"user_id":      userID,
		"recipient_id": recipientID,
	})

	if recipientID == "" || recipientID == userID {
		return nil, ErrInvalidInput
	}

	recipient, err := s.userRepo.FindByID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		logCtx.WithError(err).Error("Failed to query recipient")
		return nil, ErrInternalServer
	}

	conversationID := domain.MakeConversationID(userID, recipientID)
	existing, err := s.convRepo.Find(ctx, conversationID, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		logCtx.WithError(err).Error("Failed to query conversation")
		return nil, ErrInternalServer
	}

	now := time.Now().UnixMilli()
	mine := &domain.Conversation{
		ID:            conversationID,
		UserID:        userID,
		OtherUserID:   recipient.ID,
		OtherUsername: recipient.Username,
		UpdatedAt:     now,
		CreatedAt:     now,
	}
	theirs := &domain.Conversation{
		ID:            conversationID,
		UserID:        recipient.ID,
		OtherUserID:   userID,
		OtherUsername: username,
		UpdatedAt:     now,
		CreatedAt:     now,
	}
	if err := s.convRepo.Save(ctx, mine); err != nil {
		logCtx.WithError(err).Error("Failed to save conversation")
		return nil, ErrInternalServer
	}
	if err := s.convRepo.Save(ctx, theirs); err != nil {
		// 对端投影写失败不阻断会话创建，下一条私信的 Touch 会补救。
		logCtx.WithError(err).Warn("Failed to save peer conversation row")
	}

	logCtx.WithField("conversation_id", conversationID).Info("Conversation started")
	return mine, nil
}

// GetConversation 返回会话投影；调用者必须是会话参与者。
func (s *DMService) GetConversation(ctx context.Context, conversationID, userID string) (*domain.Conversation, error) {
	if err := requireParticipant(conversationID, userID); err != nil {
		return nil, err
	}
	conv, err := s.convRepo.Find(ctx, conversationID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		logrus.WithError(err).WithField("conversation_id", conversationID).Error("Failed to query conversation")
		return nil, ErrInternalServer
	}
	return conv, nil
}

// SendDirectMessage 持久化私信，再尽力刷新双方会话预览并广播。
func (s *DMService) SendDirectMessage(ctx context.Context, conversationID, userID, username, content string) (*domain.DirectMessage, error) {
	logCtx := logrus.WithFields(logrus.Fields{
		"operation":       "SendDirectMessage",
		"conversation_id": conversationID,
		"user_id":         userID,
	})

	if err := requireParticipant(conversationID, userID); err != nil {
		return nil, err
	}
	if _, err := s.convRepo.Find(ctx, conversationID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		logCtx.WithError(err).Error("Failed to query conversation")
		return nil, ErrInternalServer
	}

	content = strings.TrimSpace(content)
	if content == "" || len(content) > maxMessageContentLength {
		return nil, ErrInvalidInput
	}

	dm := &domain.DirectMessage{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		AuthorID:       userID,
		AuthorUsername: username,
		Content:        content,
		CreatedAt:      time.Now().UnixMilli(),
	}
	if err := s.dmRepo.Append(ctx, dm); err != nil {
		logCtx.WithError(err).Error("Failed to persist direct message")
		return nil, ErrInternalServer
	}

	// 预览刷新是尽力而为的：失败不影响已落库的消息。
	preview := TruncatePreview(content)
	a, b, _ := domain.ConversationParticipants(conversationID)
	for _, participant := range []string{a, b} {
		if err := s.convRepo.Touch(ctx, conversationID, participant, preview, dm.CreatedAt); err != nil {
			logCtx.WithError(err).WithField("participant", participant).Warn("Failed to update conversation preview")
		}
	}

	s.dispatcher.DirectMessageCreated(ctx, dm)

	logCtx.WithField("message_id", dm.ID).Info("Direct message sent")
	return dm, nil
}

// ListDirectMessages 按 created_at 倒序分页返回私信历史。
func (s *DMService) ListDirectMessages(ctx context.Context, conversationID, userID string, limit int, before int64) (*domain.DirectMessagePage, error) {
	if err := requireParticipant(conversationID, userID); err != nil {
		return nil, err
	}

	limit = ClampPageLimit(limit)
	messages, err := s.dmRepo.ListBefore(ctx, conversationID, before, limit+1)
	if err != nil {
		logrus.WithError(err).WithField("conversation_id", conversationID).Error("Failed to list direct messages")
		return nil, ErrInternalServer
	}

	page := &domain.DirectMessagePage{Messages: messages}
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

// requireParticipant 从会话 ID 自身校验参与者身份，避免一次额外查询。
func requireParticipant(conversationID, userID string) error {
	a, b, ok := domain.ConversationParticipants(conversationID)
	if !ok {
		return ErrConversationNotFound
	}
	if userID != a && userID != b {
		return ErrNotParticipant
	}
	return nil
}

// TruncatePreview 生成会话列表预览文本。
// 截断点落在多字节字符中间时回退到字符边界，预览始终是合法 UTF-8。
func TruncatePreview(content string) string {
	if len(content) <= previewMaxLength {
		return content
	}
	cut := previewHeadLength
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + "..."
}
