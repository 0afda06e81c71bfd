package domain

// Invite 表示一个服务器邀请。code 为全局唯一的 8 位随机码，
// 由邀请分配协议通过条件插入保证唯一性。
type Invite struct {
	Code       string `gorm:"type:varchar(16);primaryKey" json:"code"`
	ServerID   string `gorm:"type:varchar(36);index:idx_invite_server;not null" json:"server_id"`
	ServerName string `gorm:"type:varchar(191);not null" json:"server_name"` // 创建时冗余存储
	CreatedBy  string `gorm:"type:varchar(36);not null" json:"created_by"`
	CreatedAt  int64  `gorm:"autoCreateTime:false" json:"created_at"`
	ExpiresAt  *int64 `gorm:"index" json:"expires_at,omitempty"`
	MaxUses    *int   `json:"max_uses,omitempty"`
	UseCount   int    `gorm:"not null;default:0" json:"use_count"` // 单调不减
}

// Usable 判断邀请在时间 now (Unix 毫秒) 是否仍可兑换：
// 未过期，且未达到使用上限。
func (i *Invite) Usable(now int64) bool {
	if i.ExpiresAt != nil && *i.ExpiresAt < now {
		return false
	}
	if i.MaxUses != nil && i.UseCount >= *i.MaxUses {
		return false
	}
	return true
}

// InviteInfo 是公开的邀请信息 (兑换前展示)。
type InviteInfo struct {
	Code        string `json:"code"`
	ServerID    string `json:"server_id"`
	ServerName  string `json:"server_name"`
	MemberCount int64  `json:"member_count"`
}
