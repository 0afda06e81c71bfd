package repository

import (
	"context"

	"github.com/NTitterton/agorusta/internal/domain"
)

// ServerRepository 定义了服务器 (社区) 数据的存储和检索操作。
type ServerRepository interface {
	// FindByID 根据服务器 ID 查找，不存在时返回 ErrServerNotFound。
	FindByID(ctx context.Context, id string) (*domain.Server, error)

	// FindByIDs 批量查找服务器，缺失的 ID 被跳过而不报错。
	FindByIDs(ctx context.Context, ids []string) ([]domain.Server, error)

	// FindByName 根据名称查找服务器 (同名取最早创建的一个)，
	// 不存在时返回 ErrServerNotFound。
	FindByName(ctx context.Context, name string) (*domain.Server, error)

	// Save 保存服务器信息。
	Save(ctx context.Context, server *domain.Server) error
}

// ChannelRepository 定义了频道数据的存储和检索操作。
type ChannelRepository interface {
	// FindByID 根据频道 ID 查找，不存在时返回 ErrChannelNotFound。
	FindByID(ctx context.Context, id string) (*domain.Channel, error)

	// ListByServer 列出服务器下的全部频道。
	ListByServer(ctx context.Context, serverID string) ([]domain.Channel, error)

	// Save 保存频道信息。
	Save(ctx context.Context, channel *domain.Channel) error
}

// MemberRepository 定义了成员资格数据的操作。
type MemberRepository interface {
	// Find 查找成员资格，不存在时返回 ErrNotFound。
	Find(ctx context.Context, serverID, userID string) (*domain.Member, error)

	// ListByServer 列出服务器的全部成员。
	ListByServer(ctx context.Context, serverID string) ([]domain.Member, error)

	// ListByUser 列出用户的全部成员资格 (用于收集其所属服务器)。
	ListByUser(ctx context.Context, userID string) ([]domain.Member, error)

	// CountByServer 统计服务器成员数。
	CountByServer(ctx context.Context, serverID string) (int64, error)

	// Save 保存成员资格 (无条件 upsert)。
	Save(ctx context.Context, member *domain.Member) error
}
