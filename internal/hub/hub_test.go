package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memoryregistry "github.com/NTitterton/agorusta/internal/infra/registry/memory"
)

// 直接调用 handleControlMessage 并从 send 通道读取回执，
// 不经过真实的 WebSocket 连接。
func newControlFixture(t *testing.T) (*Hub, *Client, *memoryregistry.MemoryConnectionRegistry) {
	t.Helper()
	registry := memoryregistry.NewMemoryConnectionRegistry()
	h := NewHub(registry)
	client := NewClient(h, nil, "conn-1", "user-1")
	return h, client, registry
}

func recvReply(t *testing.T, client *Client) map[string]string {
	t.Helper()
	select {
	case payload := <-client.send:
		var reply map[string]string
		require.NoError(t, json.Unmarshal(payload, &reply), "回执应是合法 JSON")
		return reply
	default:
		t.Fatal("期望收到控制回执但 send 通道为空")
		return nil
	}
}

func TestHub_ControlMessage_Subscribe(t *testing.T) {
	// Arrange
	h, client, registry := newControlFixture(t)
	require.NoError(t, registry.Connect(context.Background(), "conn-1", "user-1"))

	// Act
	h.handleControlMessage(HubMessage{
		Type:    "control",
		Client:  client,
		RawData: []byte(`{"action":"subscribe","channel_id":"ch-1"}`),
	})

	// Assert
	reply := recvReply(t, client)
	assert.Equal(t, "subscribed", reply["status"], "订阅成功应回执 subscribed")
	assert.Equal(t, "ch-1", reply["channel_id"])

	subs, err := registry.FindSubscribers(context.Background(), "ch-1")
	require.NoError(t, err)
	require.Len(t, subs, 1, "注册表里应有一个订阅者")
	assert.Equal(t, "conn-1", subs[0].ID)
}

func TestHub_ControlMessage_Unsubscribe(t *testing.T) {
	// Arrange
	h, client, registry := newControlFixture(t)
	ctx := context.Background()
	require.NoError(t, registry.Connect(ctx, "conn-1", "user-1"))
	require.NoError(t, registry.Subscribe(ctx, "conn-1", "ch-1"))

	// Act
	h.handleControlMessage(HubMessage{
		Type:    "control",
		Client:  client,
		RawData: []byte(`{"action":"unsubscribe","channel_id":"ch-1"}`),
	})

	// Assert
	reply := recvReply(t, client)
	assert.Equal(t, "unsubscribed", reply["status"], "退订成功应回执 unsubscribed")

	subs, err := registry.FindSubscribers(ctx, "ch-1")
	require.NoError(t, err)
	assert.Empty(t, subs, "退订后注册表里不应再有订阅者")
}

func TestHub_ControlMessage_BadFrames(t *testing.T) {
	testCases := []struct {
		name    string
		raw     string
		message string
	}{
		{name: "非法 JSON", raw: `{not json`, message: "invalid message"},
		{name: "缺少 channel_id", raw: `{"action":"subscribe"}`, message: "channel_id is required"},
		{name: "未知动作", raw: `{"action":"shout","channel_id":"ch-1"}`, message: "unknown action: shout"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h, client, registry := newControlFixture(t)
			require.NoError(t, registry.Connect(context.Background(), "conn-1", "user-1"))

			h.handleControlMessage(HubMessage{Type: "control", Client: client, RawData: []byte(tc.raw)})

			reply := recvReply(t, client)
			assert.Equal(t, "error", reply["status"])
			assert.Equal(t, tc.message, reply["message"])
		})
	}
}

func TestHub_ControlMessage_UnregisteredConnection(t *testing.T) {
	// Arrange: 注册表里没有 conn-1 的记录
	h, client, _ := newControlFixture(t)

	// Act
	h.handleControlMessage(HubMessage{
		Type:    "control",
		Client:  client,
		RawData: []byte(`{"action":"subscribe","channel_id":"ch-1"}`),
	})

	// Assert
	reply := recvReply(t, client)
	assert.Equal(t, "error", reply["status"])
	assert.Equal(t, "connection not registered", reply["message"], "未注册的连接应拿到明确错误")
}

func TestHub_PostToConnection(t *testing.T) {
	h, client, _ := newControlFixture(t)
	h.registerClient(client)

	err := h.PostToConnection(context.Background(), "conn-1", []byte(`{"hello":"world"}`))
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"hello":"world"}`), <-client.send, "投递的数据应原样到达 send 通道")

	err = h.PostToConnection(context.Background(), "conn-missing", []byte(`x`))
	assert.ErrorIs(t, err, ErrConnectionGone, "不在本进程的连接应返回 ErrConnectionGone")
}

func TestHub_PostToConnection_RacesWithUnregister(t *testing.T) {
	// 投递和注销高频交错，不允许向已关闭通道发送
	registry := memoryregistry.NewMemoryConnectionRegistry()
	h := NewHub(registry)
	ctx := context.Background()

	for i := 0; i < 500; i++ {
		connID := fmt.Sprintf("conn-%d", i)
		client := NewClient(h, nil, connID, "user-1")
		h.registerClient(client)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 4; j++ {
				_ = h.PostToConnection(ctx, connID, []byte(`{}`))
			}
		}()
		go func() {
			defer wg.Done()
			h.unregisterClient(client)
		}()
		wg.Wait()

		err := h.PostToConnection(ctx, connID, []byte(`{}`))
		assert.ErrorIs(t, err, ErrConnectionGone, "注销后的连接应报告 gone")
	}
}

func TestClient_CloseSendIdempotent(t *testing.T) {
	_, client, _ := newControlFixture(t)

	client.closeSend()
	client.closeSend() // 重复关闭不应 panic

	err := client.trySend([]byte(`{}`))
	assert.ErrorIs(t, err, ErrConnectionGone, "关闭后的投递应报告 gone")
}
