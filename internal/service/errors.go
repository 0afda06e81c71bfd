package service

import "errors"

// 服务层业务错误。Handler 层统一映射为 HTTP 状态码：
// 认证失败 401 / 无权限 403 / 未找到 404 / 输入非法 400 /
// 状态冲突 409 / 已失效 410 / 其余 500。
var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: username or email already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrServerNotFound       = errors.New("server not found")
	ErrChannelNotFound      = errors.New("channel not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrInviteNotFound       = errors.New("invite not found")
	ErrPasswordNotFound     = errors.New("password not found")
	ErrNotMember            = errors.New("you are not a member of this server")
	ErrNotParticipant       = errors.New("you are not a participant in this conversation")
	ErrForbidden            = errors.New("insufficient permissions")
	ErrInvalidInput         = errors.New("invalid input")
	ErrAlreadyMember        = errors.New("you are already a member of this server")
	ErrInviteExpired        = errors.New("this invite has expired")
	ErrInviteExhausted      = errors.New("this invite has reached its usage limit")
	ErrInternalServer       = errors.New("internal server error")
)
