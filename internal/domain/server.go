package domain

import "time"

// Server 表示一个社区 (服务器)，频道和成员都归属于它。
type Server struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(191);index;not null" json:"name"`
	OwnerID   string    `gorm:"type:varchar(36);index;not null" json:"owner_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// 频道类型。
const (
	ChannelTypeText  = "text"
	ChannelTypeVoice = "voice"
)

// Channel 表示服务器内的一个频道。频道 ID 同时也是订阅命名空间中的会话 ID。
type Channel struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	ServerID    string    `gorm:"type:varchar(36);index;not null" json:"server_id"`
	Name        string    `gorm:"type:varchar(191);not null" json:"name"`
	ChannelType string    `gorm:"type:varchar(20);not null;default:text" json:"channel_type"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// 成员角色。
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Member 表示用户在某个服务器中的成员资格。复合主键 (server_id, user_id)。
// username 在加入时冗余存储，列表展示时无需再查用户表。
type Member struct {
	ServerID string    `gorm:"type:varchar(36);primaryKey" json:"server_id"`
	UserID   string    `gorm:"type:varchar(36);primaryKey;index:idx_member_user" json:"user_id"`
	Username string    `gorm:"type:varchar(191);not null" json:"username"`
	Role     string    `gorm:"type:varchar(20);not null;default:member" json:"role"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}
