package repository

import (
	"context"

	"github.com/NTitterton/agorusta/internal/domain"
)

// ServerPasswordRepository 定义了服务器加入口令的存储操作。
type ServerPasswordRepository interface {
	// Create 保存一条新口令记录。
	Create(ctx context.Context, password *domain.ServerPassword) error

	// FindByID 根据口令记录 ID 查找，不存在时返回 ErrNotFound。
	FindByID(ctx context.Context, id string) (*domain.ServerPassword, error)

	// ListByServer 列出服务器的全部口令，按创建时间降序。
	// 过期过滤由调用方完成 (与邀请列表一致)。
	ListByServer(ctx context.Context, serverID string) ([]domain.ServerPassword, error)

	// Delete 删除口令记录。
	Delete(ctx context.Context, id string) error
}
