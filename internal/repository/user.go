package repository

import (
	"context"

	"github.com/NTitterton/agorusta/internal/domain"
)

// UserRepository 定义了用户数据的存储和检索操作。
type UserRepository interface {
	// FindByID 根据用户 ID 查找用户，不存在时返回 ErrUserNotFound。
	FindByID(ctx context.Context, id string) (*domain.User, error)

	// FindByEmail 根据邮箱查找用户，不存在时返回 ErrUserNotFound。
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// Save 保存用户信息。唯一约束冲突 (用户名/邮箱已占用) 返回 ErrDuplicateEntry。
	Save(ctx context.Context, user *domain.User) error

	// SearchByUsernamePrefix 按用户名前缀搜索用户，排除 excludeID，最多 limit 条。
	SearchByUsernamePrefix(ctx context.Context, prefix string, excludeID string, limit int) ([]domain.User, error)
}
