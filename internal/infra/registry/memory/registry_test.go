package memoryregistry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NTitterton/agorusta/internal/repository"
)

func subscriberIDs(t *testing.T, r *MemoryConnectionRegistry, conversationID string) []string {
	t.Helper()
	conns, err := r.FindSubscribers(context.Background(), conversationID)
	require.NoError(t, err)
	ids := make([]string, 0, len(conns))
	for _, c := range conns {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestMemoryRegistry_SubscribeAndFind(t *testing.T) {
	// Arrange
	r := NewMemoryConnectionRegistry()
	ctx := context.Background()
	require.NoError(t, r.Connect(ctx, "conn-a", "user-1"))
	require.NoError(t, r.Connect(ctx, "conn-b", "user-2"))

	// Act
	require.NoError(t, r.Subscribe(ctx, "conn-a", "ch-1"))
	require.NoError(t, r.Subscribe(ctx, "conn-b", "ch-2"))

	// Assert: 只有订阅了 ch-1 的连接被找到
	assert.ElementsMatch(t, []string{"conn-a"}, subscriberIDs(t, r, "ch-1"))
	assert.ElementsMatch(t, []string{"conn-b"}, subscriberIDs(t, r, "ch-2"))
	assert.Empty(t, subscriberIDs(t, r, "ch-3"))
}

func TestMemoryRegistry_SubscribeIdempotent(t *testing.T) {
	r := NewMemoryConnectionRegistry()
	ctx := context.Background()
	require.NoError(t, r.Connect(ctx, "conn-a", "user-1"))

	// 重复订阅和取消不存在的订阅都是 no-op
	require.NoError(t, r.Subscribe(ctx, "conn-a", "ch-1"))
	require.NoError(t, r.Subscribe(ctx, "conn-a", "ch-1"))
	assert.Len(t, subscriberIDs(t, r, "ch-1"), 1)

	require.NoError(t, r.Unsubscribe(ctx, "conn-a", "ch-1"))
	require.NoError(t, r.Unsubscribe(ctx, "conn-a", "ch-1"))
	assert.Empty(t, subscriberIDs(t, r, "ch-1"))
}

func TestMemoryRegistry_SubscribeUnknownConnection(t *testing.T) {
	r := NewMemoryConnectionRegistry()
	ctx := context.Background()

	err := r.Subscribe(ctx, "ghost", "ch-1")
	assert.ErrorIs(t, err, repository.ErrConnectionNotFound)
	err = r.Unsubscribe(ctx, "ghost", "ch-1")
	assert.ErrorIs(t, err, repository.ErrConnectionNotFound)
}

func TestMemoryRegistry_DisconnectIsIdempotent(t *testing.T) {
	r := NewMemoryConnectionRegistry()
	ctx := context.Background()
	require.NoError(t, r.Connect(ctx, "conn-a", "user-1"))

	require.NoError(t, r.Disconnect(ctx, "conn-a"))
	// 记录不存在不是错误
	require.NoError(t, r.Disconnect(ctx, "conn-a"))
	assert.ErrorIs(t, r.Subscribe(ctx, "conn-a", "ch-1"), repository.ErrConnectionNotFound)
}

func TestMemoryRegistry_ReconnectResetsSubscriptions(t *testing.T) {
	// 同一连接 ID 重新 Connect 会重置订阅集合
	r := NewMemoryConnectionRegistry()
	ctx := context.Background()
	require.NoError(t, r.Connect(ctx, "conn-a", "user-1"))
	require.NoError(t, r.Subscribe(ctx, "conn-a", "ch-1"))

	require.NoError(t, r.Connect(ctx, "conn-a", "user-1"))
	assert.Empty(t, subscriberIDs(t, r, "ch-1"))
}

func TestMemoryRegistry_LeaseExpiry(t *testing.T) {
	// Arrange: 可控时钟
	r := NewMemoryConnectionRegistry()
	current := time.Unix(1_700_000_000, 0)
	r.now = func() time.Time { return current }
	ctx := context.Background()

	require.NoError(t, r.Connect(ctx, "conn-a", "user-1"))
	require.NoError(t, r.Subscribe(ctx, "conn-a", "ch-1"))
	assert.Len(t, subscriberIDs(t, r, "ch-1"), 1)

	// Act: 时间推进超过租约
	current = current.Add(25 * time.Hour)

	// Assert: 过期连接不再出现在扇出目标里，订阅操作也视为未注册
	assert.Empty(t, subscriberIDs(t, r, "ch-1"))
	assert.ErrorIs(t, r.Subscribe(ctx, "conn-a", "ch-2"), repository.ErrConnectionNotFound)
}
