package service_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/NTitterton/agorusta/internal/domain"
	"github.com/NTitterton/agorusta/internal/repository"
	"github.com/NTitterton/agorusta/internal/repository/mocks"
	"github.com/NTitterton/agorusta/internal/service"
)

type messageFixture struct {
	messageRepo *mocks.MessageRepository
	channelRepo *mocks.ChannelRepository
	memberRepo  *mocks.MemberRepository
	svc         *service.MessageService
}

func newMessageFixture() *messageFixture {
	f := &messageFixture{
		messageRepo: new(mocks.MessageRepository),
		channelRepo: new(mocks.ChannelRepository),
		memberRepo:  new(mocks.MemberRepository),
	}
	f.svc = service.NewMessageService(f.messageRepo, f.channelRepo, f.memberRepo, service.NopDispatcher{})
	return f
}

// expectAccess 让成员资格与频道归属校验通过。
func (f *messageFixture) expectAccess(ctx context.Context) {
	f.memberRepo.On("Find", ctx, "srv-1", "user-1").
		Return(&domain.Member{ServerID: "srv-1", UserID: "user-1", Role: domain.RoleMember}, nil)
	f.channelRepo.On("FindByID", ctx, "ch-1").
		Return(&domain.Channel{ID: "ch-1", ServerID: "srv-1", Name: "general"}, nil)
}

func TestMessageService_SendMessage_Success(t *testing.T) {
	// Arrange
	f := newMessageFixture()
	ctx := context.Background()
	f.expectAccess(ctx)
	f.messageRepo.On("Append", ctx, mock.MatchedBy(func(m *domain.Message) bool {
		assert.NotEmpty(t, m.ID)
		assert.Equal(t, "ch-1", m.ChannelID)
		assert.Equal(t, "user-1", m.AuthorID)
		assert.Equal(t, "alice", m.AuthorUsername)
		assert.Equal(t, "hello world", m.Content, "正文应被 trim")
		assert.Greater(t, m.CreatedAt, int64(0))
		return true
	})).Return(nil).Once()

	// Act
	msg, err := f.svc.SendMessage(ctx, "srv-1", "ch-1", "user-1", "alice", "  hello world  ")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, msg)
	f.messageRepo.AssertExpectations(t)
}

func TestMessageService_SendMessage_ContentValidation(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	f.expectAccess(ctx)

	// 全空白正文
	_, err := f.svc.SendMessage(ctx, "srv-1", "ch-1", "user-1", "alice", "   \n\t ")
	assert.ErrorIs(t, err, service.ErrInvalidInput, "空白正文应被拒绝")

	// 超长正文 (trim 后 2001 字节)
	_, err = f.svc.SendMessage(ctx, "srv-1", "ch-1", "user-1", "alice", strings.Repeat("a", 2001))
	assert.ErrorIs(t, err, service.ErrInvalidInput, "超长正文应被拒绝")

	// 恰好 2000 字节可以通过
	f.messageRepo.On("Append", ctx, mock.AnythingOfType("*domain.Message")).Return(nil).Once()
	_, err = f.svc.SendMessage(ctx, "srv-1", "ch-1", "user-1", "alice", strings.Repeat("a", 2000))
	assert.NoError(t, err, "边界长度正文应被接受")
}

func TestMessageService_SendMessage_NotMember(t *testing.T) {
	// Arrange
	f := newMessageFixture()
	ctx := context.Background()
	f.memberRepo.On("Find", ctx, "srv-1", "stranger").
		Return(nil, repository.ErrNotFound).Once()

	// Act
	_, err := f.svc.SendMessage(ctx, "srv-1", "ch-1", "stranger", "mallory", "hi")

	// Assert
	assert.ErrorIs(t, err, service.ErrNotMember)
	f.messageRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestMessageService_SendMessage_ChannelInOtherServer(t *testing.T) {
	// Arrange: 频道存在但属于别的服务器，应按不存在处理
	f := newMessageFixture()
	ctx := context.Background()
	f.memberRepo.On("Find", ctx, "srv-1", "user-1").
		Return(&domain.Member{ServerID: "srv-1", UserID: "user-1", Role: domain.RoleMember}, nil).Once()
	f.channelRepo.On("FindByID", ctx, "ch-other").
		Return(&domain.Channel{ID: "ch-other", ServerID: "srv-2"}, nil).Once()

	// Act
	_, err := f.svc.SendMessage(ctx, "srv-1", "ch-other", "user-1", "alice", "hi")

	// Assert
	assert.ErrorIs(t, err, service.ErrChannelNotFound)
}

func makeMessages(createdAts ...int64) []domain.Message {
	msgs := make([]domain.Message, 0, len(createdAts))
	for _, ts := range createdAts {
		msgs = append(msgs, domain.Message{ID: "m", ChannelID: "ch-1", CreatedAt: ts})
	}
	return msgs
}

func TestMessageService_ListMessages_FirstPageWithMore(t *testing.T) {
	// Arrange: 存储里有 3 条 (300, 200, 100)，页大小 2
	f := newMessageFixture()
	ctx := context.Background()
	f.expectAccess(ctx)
	f.messageRepo.On("ListBefore", ctx, "ch-1", int64(0), 3).
		Return(makeMessages(300, 200, 100), nil).Once()

	// Act
	page, err := f.svc.ListMessages(ctx, "srv-1", "ch-1", "user-1", 2, 0)

	// Assert
	require.NoError(t, err)
	require.Len(t, page.Messages, 2, "应只返回页大小条数")
	assert.Equal(t, int64(300), page.Messages[0].CreatedAt, "最新的在前")
	assert.Equal(t, int64(200), page.Messages[1].CreatedAt)
	assert.True(t, page.HasMore)
	require.NotNil(t, page.NextCursor, "还有更多时应给出游标")
	assert.Equal(t, int64(200), *page.NextCursor, "游标是本页最旧一条的时间戳")
	f.messageRepo.AssertExpectations(t)
}

func TestMessageService_ListMessages_LastPage(t *testing.T) {
	// Arrange: 用上一页的游标取剩下的 1 条
	f := newMessageFixture()
	ctx := context.Background()
	f.expectAccess(ctx)
	f.messageRepo.On("ListBefore", ctx, "ch-1", int64(200), 3).
		Return(makeMessages(100), nil).Once()

	// Act
	page, err := f.svc.ListMessages(ctx, "srv-1", "ch-1", "user-1", 2, 200)

	// Assert
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, int64(100), page.Messages[0].CreatedAt)
	assert.False(t, page.HasMore, "没有更旧的消息了")
	assert.Nil(t, page.NextCursor)
}

func TestMessageService_ListMessages_EmptyChannel(t *testing.T) {
	f := newMessageFixture()
	ctx := context.Background()
	f.expectAccess(ctx)
	f.messageRepo.On("ListBefore", ctx, "ch-1", int64(0), 51).
		Return([]domain.Message{}, nil).Once()

	page, err := f.svc.ListMessages(ctx, "srv-1", "ch-1", "user-1", 0, 0)

	require.NoError(t, err)
	assert.Empty(t, page.Messages)
	assert.False(t, page.HasMore)
	assert.Nil(t, page.NextCursor)
}

func TestClampPageLimit(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, 50},   // 未指定取默认
		{-5, 50},  // 非法值取默认
		{1, 1},    // 下界
		{100, 100},
		{101, 100}, // 超过上界收敛到 100
		{37, 37},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, service.ClampPageLimit(tc.in), "limit=%d", tc.in)
	}
}

// 分页完整性：按游标逐页翻到底，应恰好拿到全部消息各一次。
func TestMessageService_ListMessages_PaginationCompleteness(t *testing.T) {
	const total = 7
	const pageSize = 3

	f := newMessageFixture()
	ctx := context.Background()
	f.expectAccess(ctx)

	// 日志内容为 700, 600, ..., 100；按仓库契约逐页应答
	f.messageRepo.On("ListBefore", ctx, "ch-1", int64(0), pageSize+1).
		Return(makeMessages(700, 600, 500, 400), nil).Once()
	f.messageRepo.On("ListBefore", ctx, "ch-1", int64(500), pageSize+1).
		Return(makeMessages(400, 300, 200, 100), nil).Once()
	f.messageRepo.On("ListBefore", ctx, "ch-1", int64(200), pageSize+1).
		Return(makeMessages(100), nil).Once()

	var collected []int64
	var cursor int64
	for {
		page, err := f.svc.ListMessages(ctx, "srv-1", "ch-1", "user-1", pageSize, cursor)
		require.NoError(t, err)
		for _, m := range page.Messages {
			collected = append(collected, m.CreatedAt)
		}
		if !page.HasMore {
			break
		}
		require.NotNil(t, page.NextCursor)
		cursor = *page.NextCursor
	}

	require.Len(t, collected, total, "逐页翻完应拿到全部消息")
	for i := 1; i < len(collected); i++ {
		assert.Greater(t, collected[i-1], collected[i], "全程应保持严格降序")
	}
	f.messageRepo.AssertExpectations(t)
}

// mutableMessageLog 是可继续追加的内存消息日志，
// 模拟分页读取和新消息写入交错的场景。
type mutableMessageLog struct {
	mu       sync.Mutex
	messages []domain.Message // 按 created_at 递增追加
}

func (l *mutableMessageLog) Append(_ context.Context, msg *domain.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, *msg)
	return nil
}

func (l *mutableMessageLog) ListBefore(_ context.Context, channelID string, before int64, limit int) ([]domain.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var page []domain.Message
	for i := len(l.messages) - 1; i >= 0 && len(page) < limit; i-- {
		m := l.messages[i]
		if m.ChannelID != channelID {
			continue
		}
		if before > 0 && m.CreatedAt >= before {
			continue
		}
		page = append(page, m)
	}
	return page, nil
}

func TestMessageService_ListMessages_PageStableUnderConcurrentInsert(t *testing.T) {
	// Arrange: 已发出的游标页不能被之后追加的消息改写
	log := &mutableMessageLog{}
	channelRepo := new(mocks.ChannelRepository)
	memberRepo := new(mocks.MemberRepository)
	ctx := context.Background()
	memberRepo.On("Find", ctx, "srv-1", "user-1").
		Return(&domain.Member{ServerID: "srv-1", UserID: "user-1", Role: domain.RoleMember}, nil)
	channelRepo.On("FindByID", ctx, "ch-1").
		Return(&domain.Channel{ID: "ch-1", ServerID: "srv-1", Name: "general"}, nil)
	svc := service.NewMessageService(log, channelRepo, memberRepo, service.NopDispatcher{})

	for ts := int64(100); ts <= 500; ts += 100 {
		require.NoError(t, log.Append(ctx, &domain.Message{
			ID: fmt.Sprintf("m-%d", ts), ChannelID: "ch-1", CreatedAt: ts,
		}))
	}

	first, err := svc.ListMessages(ctx, "srv-1", "ch-1", "user-1", 2, 0)
	require.NoError(t, err)
	require.Len(t, first.Messages, 2)
	require.True(t, first.HasMore)
	require.NotNil(t, first.NextCursor)
	assert.Equal(t, int64(400), *first.NextCursor)

	second, err := svc.ListMessages(ctx, "srv-1", "ch-1", "user-1", 2, *first.NextCursor)
	require.NoError(t, err)
	require.Len(t, second.Messages, 2)

	// Act: 翻页期间有新消息落盘
	require.NoError(t, log.Append(ctx, &domain.Message{
		ID: "m-600", ChannelID: "ch-1", CreatedAt: 600,
	}))

	// Assert: 同一游标重读得到同一页
	secondAgain, err := svc.ListMessages(ctx, "srv-1", "ch-1", "user-1", 2, *first.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, second.Messages, secondAgain.Messages, "旧游标的页不受新写入影响")
	assert.Equal(t, second.HasMore, secondAgain.HasMore)

	// 新消息只出现在不带游标的最新页
	fresh, err := svc.ListMessages(ctx, "srv-1", "ch-1", "user-1", 2, 0)
	require.NoError(t, err)
	require.Len(t, fresh.Messages, 2)
	assert.Equal(t, int64(600), fresh.Messages[0].CreatedAt)
	assert.Equal(t, int64(500), fresh.Messages[1].CreatedAt)
}
