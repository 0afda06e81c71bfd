package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/NTitterton/agorusta/internal/domain"
	"github.com/NTitterton/agorusta/internal/repository"
)

// GormMessageRepository 是 MessageRepository 接口的 GORM 实现。
// (channel_id, created_at) 复合索引支撑降序范围查询。
type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMessageRepository")
	}
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Append(ctx context.Context, msg *domain.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("gorm: append message (channel: %s, id: %s): %w", msg.ChannelID, msg.ID, err)
	}
	return nil
}

func (r *GormMessageRepository) ListBefore(ctx context.Context, channelID string, before int64, limit int) ([]domain.Message, error) {
	var messages []domain.Message
	q := r.db.WithContext(ctx).Where("channel_id = ?", channelID)
	if before > 0 {
		// 游标是排他上界：created_at < before
		q = q.Where("created_at < ?", before)
	}
	err := q.Order("created_at DESC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list messages for channel %s: %w", channelID, err)
	}
	return messages, nil
}

// GormDirectMessageRepository 是 DirectMessageRepository 接口的 GORM 实现。
type GormDirectMessageRepository struct {
	db *gorm.DB
}

func NewGormDirectMessageRepository(db *gorm.DB) *GormDirectMessageRepository {
	if db == nil {
		panic("database connection cannot be nil for GormDirectMessageRepository")
	}
	return &GormDirectMessageRepository{db: db}
}

func (r *GormDirectMessageRepository) Append(ctx context.Context, msg *domain.DirectMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("gorm: append dm (conversation: %s, id: %s): %w", msg.ConversationID, msg.ID, err)
	}
	return nil
}

func (r *GormDirectMessageRepository) ListBefore(ctx context.Context, conversationID string, before int64, limit int) ([]domain.DirectMessage, error) {
	var messages []domain.DirectMessage
	q := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID)
	if before > 0 {
		q = q.Where("created_at < ?", before)
	}
	err := q.Order("created_at DESC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list dms for conversation %s: %w", conversationID, err)
	}
	return messages, nil
}

// GormConversationRepository 是 ConversationRepository 接口的 GORM 实现。
type GormConversationRepository struct {
	db *gorm.DB
}

func NewGormConversationRepository(db *gorm.DB) *GormConversationRepository {
	if db == nil {
		panic("database connection cannot be nil for GormConversationRepository")
	}
	return &GormConversationRepository{db: db}
}

func (r *GormConversationRepository) Find(ctx context.Context, conversationID, userID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", conversationID, userID).
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrConversationNotFound
		}
		return nil, fmt.Errorf("gorm: find conversation (id: %s, user: %s): %w", conversationID, userID, err)
	}
	return &conv, nil
}

func (r *GormConversationRepository) ListByUser(ctx context.Context, userID string) ([]domain.Conversation, error) {
	var convs []domain.Conversation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list conversations for user %s: %w", userID, err)
	}
	return convs, nil
}

func (r *GormConversationRepository) Save(ctx context.Context, conv *domain.Conversation) error {
	if err := r.db.WithContext(ctx).Save(conv).Error; err != nil {
		return fmt.Errorf("gorm: save conversation (id: %s, user: %s): %w", conv.ID, conv.UserID, err)
	}
	return nil
}

func (r *GormConversationRepository) Touch(ctx context.Context, conversationID, userID, preview string, updatedAt int64) error {
	err := r.db.WithContext(ctx).Model(&domain.Conversation{}).
		Where("id = ? AND user_id = ?", conversationID, userID).
		Updates(map[string]interface{}{
			"last_message_preview": preview,
			"updated_at":           updatedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("gorm: touch conversation (id: %s, user: %s): %w", conversationID, userID, err)
	}
	return nil
}
