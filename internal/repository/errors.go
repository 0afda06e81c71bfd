package repository

import "errors"

// 通用的存储库错误
var (
	// ErrNotFound 表示请求的记录未找到
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry 表示写入违反了唯一约束 (条件插入失败)
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
)

// 特定资源的错误 (基于通用错误，便于 errors.Is 判断)
var (
	ErrUserNotFound         = ErrNotFound
	ErrServerNotFound       = ErrNotFound
	ErrChannelNotFound      = ErrNotFound
	ErrInviteNotFound       = ErrNotFound
	ErrConversationNotFound = ErrNotFound
	ErrConnectionNotFound   = ErrNotFound
)
