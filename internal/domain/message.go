package domain

// Message 表示频道内的一条消息。
// (channel_id, created_at) 构成按时间排序的日志键，created_at 为毫秒时间戳，
// 同时也是分页游标。日志只追加，本核心不支持编辑/删除。
type Message struct {
	ID             string `gorm:"type:varchar(36);uniqueIndex;not null" json:"id"`
	ChannelID      string `gorm:"type:varchar(36);primaryKey;index:idx_channel_created,priority:1" json:"channel_id"`
	AuthorID       string `gorm:"type:varchar(36);index;not null" json:"author_id"`
	AuthorUsername string `gorm:"type:varchar(191);not null" json:"author_username"` // 写入时冗余，之后不再解析
	Content        string `gorm:"type:text;not null" json:"content"`
	CreatedAt      int64  `gorm:"primaryKey;autoCreateTime:false;index:idx_channel_created,priority:2" json:"created_at"`
}

// DirectMessage 表示私聊会话内的一条消息，排序键为 (conversation_id, created_at)。
type DirectMessage struct {
	ID             string `gorm:"type:varchar(36);uniqueIndex;not null" json:"id"`
	ConversationID string `gorm:"type:varchar(100);primaryKey;index:idx_conv_created,priority:1" json:"conversation_id"`
	AuthorID       string `gorm:"type:varchar(36);index;not null" json:"author_id"`
	AuthorUsername string `gorm:"type:varchar(191);not null" json:"author_username"`
	Content        string `gorm:"type:text;not null" json:"content"`
	CreatedAt      int64  `gorm:"primaryKey;autoCreateTime:false;index:idx_conv_created,priority:2" json:"created_at"`
}

// MessagePage 是分页引擎返回的一页消息，按 created_at 严格降序。
// HasMore 为 true 时 NextCursor 指向本页最旧一条的时间戳，作为下一页的
// before 游标 (排他下界)。
type MessagePage struct {
	Messages   []Message `json:"messages"`
	HasMore    bool      `json:"has_more"`
	NextCursor *int64    `json:"next_cursor"`
}

// DirectMessagePage 同 MessagePage，针对私聊消息。
type DirectMessagePage struct {
	Messages   []DirectMessage `json:"messages"`
	HasMore    bool            `json:"has_more"`
	NextCursor *int64          `json:"next_cursor"`
}
