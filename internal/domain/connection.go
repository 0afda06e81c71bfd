package domain

import "time"

// ConnectionLeaseTTL 是连接记录的租约时长，到期由注册表后端被动回收。
const ConnectionLeaseTTL = 24 * time.Hour

// Connection 表示一条存活的推送连接在注册表中的记录。
// ID 由传输层在连接建立时分配，视作不透明字符串；一个 ID 至多对应一条记录。
// Channels 是它订阅的会话 ID 集合 (频道 ID 与私聊会话 ID 同一命名空间)。
type Connection struct {
	ID        string
	UserID    string
	Channels  []string
	CreatedAt time.Time
}

// SubscribedTo 报告连接是否订阅了给定会话。
func (c *Connection) SubscribedTo(conversationID string) bool {
	for _, ch := range c.Channels {
		if ch == conversationID {
			return true
		}
	}
	return false
}
