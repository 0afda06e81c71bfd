package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/NTitterton/agorusta/internal/domain"
	"github.com/NTitterton/agorusta/internal/repository"
)

// GormInviteRepository 是 InviteRepository 接口的 GORM 实现。
type GormInviteRepository struct {
	db *gorm.DB
}

func NewGormInviteRepository(db *gorm.DB) *GormInviteRepository {
	if db == nil {
		panic("database connection cannot be nil for GormInviteRepository")
	}
	return &GormInviteRepository{db: db}
}

// Create 条件插入：code 为主键，冲突时 MySQL 报 1062，
// 映射为 ErrDuplicateEntry 供分配协议重试。
func (r *GormInviteRepository) Create(ctx context.Context, invite *domain.Invite) error {
	err := r.db.WithContext(ctx).Create(invite).Error
	if err != nil {
		if isDuplicateEntry(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: create invite (code: %s): %w", invite.Code, err)
	}
	return nil
}

func (r *GormInviteRepository) FindByCode(ctx context.Context, code string) (*domain.Invite, error) {
	var invite domain.Invite
	err := r.db.WithContext(ctx).First(&invite, "code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrInviteNotFound
		}
		return nil, fmt.Errorf("gorm: find invite by code: %w", err)
	}
	return &invite, nil
}

func (r *GormInviteRepository) ListByServer(ctx context.Context, serverID string) ([]domain.Invite, error) {
	var invites []domain.Invite
	err := r.db.WithContext(ctx).
		Where("server_id = ?", serverID).
		Order("created_at DESC").
		Find(&invites).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list invites for server %s: %w", serverID, err)
	}
	return invites, nil
}

// IncrementUseCount 单列原子自增，不做上限检查 (check-then-increment
// 的竞态由调用方接受并记录在案)。
func (r *GormInviteRepository) IncrementUseCount(ctx context.Context, code string) error {
	err := r.db.WithContext(ctx).Model(&domain.Invite{}).
		Where("code = ?", code).
		UpdateColumn("use_count", gorm.Expr("use_count + ?", 1)).Error
	if err != nil {
		return fmt.Errorf("gorm: increment use_count for invite %s: %w", code, err)
	}
	return nil
}

func (r *GormInviteRepository) Delete(ctx context.Context, code string) error {
	if err := r.db.WithContext(ctx).Delete(&domain.Invite{}, "code = ?", code).Error; err != nil {
		return fmt.Errorf("gorm: delete invite %s: %w", code, err)
	}
	return nil
}

func (r *GormInviteRepository) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Delete(&domain.Invite{})
	if result.Error != nil {
		return 0, fmt.Errorf("gorm: delete expired invites: %w", result.Error)
	}
	return result.RowsAffected, nil
}
