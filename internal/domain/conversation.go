package domain

import "strings"

// Conversation 是私聊会话对某一参与者的投影行。
// 一个逻辑会话有两行 (每个参与者一行)，复合主键 (id, user_id)，
// 各自独立更新 last_message_preview / updated_at，以反映各自的收件箱排序。
// 投影只是尽力而为的缓存，消息日志才是事实来源。
type Conversation struct {
	ID                 string `gorm:"type:varchar(100);primaryKey" json:"id"`
	UserID             string `gorm:"type:varchar(36);primaryKey;index:idx_conv_user" json:"-"`
	OtherUserID        string `gorm:"type:varchar(36);not null" json:"other_user_id"`
	OtherUsername      string `gorm:"type:varchar(191);not null" json:"other_username"`
	LastMessagePreview string `gorm:"type:varchar(64)" json:"last_message_preview,omitempty"`
	UpdatedAt          int64  `gorm:"autoUpdateTime:false;index" json:"updated_at"`
	CreatedAt          int64  `gorm:"autoCreateTime:false" json:"created_at"`
}

// MakeConversationID 由两个用户 ID 派生确定性的会话 ID：
// 字典序较小者在前，下划线连接。双方无需查表即可算出同一个 ID。
func MakeConversationID(user1, user2 string) string {
	if user1 > user2 {
		user1, user2 = user2, user1
	}
	return user1 + "_" + user2
}

// ConversationParticipants 从会话 ID 还原两个参与者 ID。
// 第二个返回值为 false 表示 ID 不是合法的会话 ID。
func ConversationParticipants(conversationID string) (string, string, bool) {
	parts := strings.SplitN(conversationID, "_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
