package repository

import (
	"context"

	"github.com/NTitterton/agorusta/internal/domain"
)

// InviteRepository 定义了邀请记录的存储操作。
type InviteRepository interface {
	// Create 条件插入：仅当 code 尚不存在时成功，否则返回 ErrDuplicateEntry。
	// 这是本核心唯一需要 insert-if-absent 语义的写入。
	Create(ctx context.Context, invite *domain.Invite) error

	// FindByCode 根据邀请码查找，不存在时返回 ErrInviteNotFound。
	FindByCode(ctx context.Context, code string) (*domain.Invite, error)

	// ListByServer 列出服务器的全部邀请，按创建时间降序。
	ListByServer(ctx context.Context, serverID string) ([]domain.Invite, error)

	// IncrementUseCount 原子地将 use_count 加一。
	IncrementUseCount(ctx context.Context, code string) error

	// Delete 删除邀请。
	Delete(ctx context.Context, code string) error

	// DeleteExpired 删除 expires_at 早于 now (Unix 毫秒) 的全部邀请，
	// 返回删除条数。由后台清理任务周期调用。
	DeleteExpired(ctx context.Context, now int64) (int64, error)
}
