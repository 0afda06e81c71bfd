// Package domain 定义了应用程序中使用的数据结构 (数据库模型)。
package domain

import "time"

// User 表示一个注册用户。ID 为 UUID 字符串。
type User struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Username     string    `gorm:"type:varchar(191);uniqueIndex:idx_username;not null" json:"username"`
	Email        string    `gorm:"type:varchar(191);uniqueIndex:idx_email;not null" json:"email"`
	PasswordHash string    `gorm:"type:text;not null" json:"-"` // 哈希后的密码，永不序列化
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"-"`
}
