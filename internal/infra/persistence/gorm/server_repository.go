package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/NTitterton/agorusta/internal/domain"
	"github.com/NTitterton/agorusta/internal/repository"
)

// GormServerRepository 是 ServerRepository 接口的 GORM 实现
type GormServerRepository struct {
	db *gorm.DB
}

func NewGormServerRepository(db *gorm.DB) *GormServerRepository {
	if db == nil {
		panic("database connection cannot be nil for GormServerRepository")
	}
	return &GormServerRepository{db: db}
}

func (r *GormServerRepository) FindByID(ctx context.Context, id string) (*domain.Server, error) {
	var server domain.Server
	err := r.db.WithContext(ctx).First(&server, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrServerNotFound
		}
		return nil, fmt.Errorf("gorm: find server by id %s: %w", id, err)
	}
	return &server, nil
}

func (r *GormServerRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Server, error) {
	var servers []domain.Server
	if len(ids) == 0 {
		return servers, nil // 避免空的 IN 查询
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&servers).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find servers by ids: %w", err)
	}
	return servers, nil
}

func (r *GormServerRepository) FindByName(ctx context.Context, name string) (*domain.Server, error) {
	var server domain.Server
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		Order("created_at ASC").
		First(&server).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrServerNotFound
		}
		return nil, fmt.Errorf("gorm: find server by name: %w", err)
	}
	return &server, nil
}

func (r *GormServerRepository) Save(ctx context.Context, server *domain.Server) error {
	if err := r.db.WithContext(ctx).Save(server).Error; err != nil {
		return fmt.Errorf("gorm: save server (id: %s): %w", server.ID, err)
	}
	return nil
}

// GormChannelRepository 是 ChannelRepository 接口的 GORM 实现
type GormChannelRepository struct {
	db *gorm.DB
}

func NewGormChannelRepository(db *gorm.DB) *GormChannelRepository {
	if db == nil {
		panic("database connection cannot be nil for GormChannelRepository")
	}
	return &GormChannelRepository{db: db}
}

func (r *GormChannelRepository) FindByID(ctx context.Context, id string) (*domain.Channel, error) {
	var channel domain.Channel
	err := r.db.WithContext(ctx).First(&channel, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrChannelNotFound
		}
		return nil, fmt.Errorf("gorm: find channel by id %s: %w", id, err)
	}
	return &channel, nil
}

func (r *GormChannelRepository) ListByServer(ctx context.Context, serverID string) ([]domain.Channel, error) {
	var channels []domain.Channel
	err := r.db.WithContext(ctx).
		Where("server_id = ?", serverID).
		Order("created_at ASC").
		Find(&channels).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list channels for server %s: %w", serverID, err)
	}
	return channels, nil
}

func (r *GormChannelRepository) Save(ctx context.Context, channel *domain.Channel) error {
	if err := r.db.WithContext(ctx).Save(channel).Error; err != nil {
		return fmt.Errorf("gorm: save channel (id: %s): %w", channel.ID, err)
	}
	return nil
}

// GormMemberRepository 是 MemberRepository 接口的 GORM 实现
type GormMemberRepository struct {
	db *gorm.DB
}

func NewGormMemberRepository(db *gorm.DB) *GormMemberRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMemberRepository")
	}
	return &GormMemberRepository{db: db}
}

func (r *GormMemberRepository) Find(ctx context.Context, serverID, userID string) (*domain.Member, error) {
	var member domain.Member
	err := r.db.WithContext(ctx).
		Where("server_id = ? AND user_id = ?", serverID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("gorm: find member (server: %s, user: %s): %w", serverID, userID, err)
	}
	return &member, nil
}

func (r *GormMemberRepository) ListByServer(ctx context.Context, serverID string) ([]domain.Member, error) {
	var members []domain.Member
	err := r.db.WithContext(ctx).Where("server_id = ?", serverID).Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list members for server %s: %w", serverID, err)
	}
	return members, nil
}

func (r *GormMemberRepository) ListByUser(ctx context.Context, userID string) ([]domain.Member, error) {
	var members []domain.Member
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list memberships for user %s: %w", userID, err)
	}
	return members, nil
}

func (r *GormMemberRepository) CountByServer(ctx context.Context, serverID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Member{}).
		Where("server_id = ?", serverID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count members for server %s: %w", serverID, err)
	}
	return count, nil
}

func (r *GormMemberRepository) Save(ctx context.Context, member *domain.Member) error {
	if err := r.db.WithContext(ctx).Save(member).Error; err != nil {
		return fmt.Errorf("gorm: save member (server: %s, user: %s): %w", member.ServerID, member.UserID, err)
	}
	return nil
}
