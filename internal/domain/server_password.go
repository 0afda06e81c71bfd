package domain

// ServerPassword 是服务器的共享加入口令，凭名称 + 口令即可入驻。
// 明文只在创建和校验时出现，存储和 API 响应里都只有散列。
type ServerPassword struct {
	ID           string `gorm:"type:varchar(36);primaryKey" json:"id"`
	ServerID     string `gorm:"type:varchar(36);index:idx_password_server;not null" json:"server_id"`
	PasswordHash string `gorm:"type:varchar(191);not null" json:"-"`
	CreatedBy    string `gorm:"type:varchar(36);not null" json:"created_by"`
	CreatedAt    int64  `gorm:"autoCreateTime:false" json:"created_at"`
	ExpiresAt    *int64 `gorm:"index" json:"expires_at,omitempty"`
}

// Active 判断口令在时间 now (Unix 毫秒) 是否仍然有效。
func (p *ServerPassword) Active(now int64) bool {
	return p.ExpiresAt == nil || *p.ExpiresAt >= now
}
