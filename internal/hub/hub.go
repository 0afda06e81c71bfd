package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/NTitterton/agorusta/internal/repository"
)

// 包级别的 WebSocket 常量，供 hub 和 client 使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer (控制消息很小)。
	maxMessageSize = 1024
)

// HubMessage 定义在 Hub 内部通道传递的事件。
type HubMessage struct {
	Type    string  // "register", "unregister", "control"
	Client  *Client // 事件关联的客户端
	RawData []byte  // 仅用于 control (原始 WebSocket 消息)
}

// controlMessage 是客户端在连接上发送的订阅协议帧。
type controlMessage struct {
	Action    string `json:"action"`
	ChannelID string `json:"channel_id"`
}

// Hub 维护本进程内的活跃 WebSocket 客户端，处理订阅控制协议，
// 并作为广播器的本地推送面 (PushTransport)。
type Hub struct {
	// 内部通道，处理所有来自 Client 的事件
	messageChan chan HubMessage

	// 客户端集合，按连接 ID 组织
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 订阅状态权威存放在注册表里，Hub 只代理控制协议
	registry repository.ConnectionRegistry

	stopOnce sync.Once
}

// NewHub 创建并返回一个新的 Hub 实例。
func NewHub(registry repository.ConnectionRegistry) *Hub {
	if registry == nil {
		panic("ConnectionRegistry cannot be nil for Hub")
	}
	return &Hub{
		messageChan: make(chan HubMessage, 512),
		clients:     make(map[string]*Client),
		registry:    registry,
	}
}

// Run 启动 Hub 的主事件处理循环。
// 它应该在一个单独的 goroutine 中运行。
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for msg := range h.messageChan {
		switch msg.Type {
		case "register":
			h.registerClient(msg.Client)
		case "unregister":
			h.unregisterClient(msg.Client)
		case "control":
			// 控制消息涉及注册表 IO，异步处理避免阻塞主循环
			go h.handleControlMessage(msg)
		default:
			log.Warnf("Hub: Received unknown message type: %s", msg.Type)
		}
	}
	log.Info("Hub is shutting down...")
}

// Stop 关闭内部通道，使 Run 退出。
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.messageChan)
	})
}

// QueueMessage 将事件放入 Hub 的处理队列 (非阻塞)。
// 返回 false 表示队列已满，事件被丢弃。
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithField("message_type", msg.Type).Warn("Hub message channel full, dropping message")
		return false
	}
}

func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to register a nil client")
		return
	}
	h.clientsMu.Lock()
	h.clients[client.ConnectionID()] = client
	h.clientsMu.Unlock()

	logrus.WithFields(logrus.Fields{
		"connection_id": client.ConnectionID(),
		"user_id":       client.UserID(),
	}).Info("Client registered to Hub")
}

func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to unregister a nil client")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"connection_id": client.ConnectionID(),
		"user_id":       client.UserID(),
	})

	h.clientsMu.Lock()
	if current, ok := h.clients[client.ConnectionID()]; ok && current == client {
		delete(h.clients, client.ConnectionID())
		client.closeSend()
	}
	h.clientsMu.Unlock()

	// 注册表里的连接记录一并清理，剩余的由 TTL 兜底
	if err := h.registry.Disconnect(context.Background(), client.ConnectionID()); err != nil {
		logCtx.WithError(err).Warn("Failed to remove connection from registry")
	}
	logCtx.Info("Client unregistered from Hub")
}

// handleControlMessage 处理 subscribe/unsubscribe 控制帧并回执结果。
func (h *Hub) handleControlMessage(msg HubMessage) {
	client := msg.Client
	if client == nil {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"connection_id": client.ConnectionID(),
		"user_id":       client.UserID(),
		"operation":     "handleControlMessage",
	})

	var control controlMessage
	if err := json.Unmarshal(msg.RawData, &control); err != nil {
		logCtx.WithError(err).Debug("Malformed control message")
		h.replyError(client, "invalid message")
		return
	}

	switch control.Action {
	case "subscribe", "unsubscribe":
		if control.ChannelID == "" {
			h.replyError(client, "channel_id is required")
			return
		}
	default:
		h.replyError(client, "unknown action: "+control.Action)
		return
	}

	ctx := context.Background()
	var err error
	if control.Action == "subscribe" {
		err = h.registry.Subscribe(ctx, client.ConnectionID(), control.ChannelID)
	} else {
		err = h.registry.Unsubscribe(ctx, client.ConnectionID(), control.ChannelID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrConnectionNotFound) {
			h.replyError(client, "connection not registered")
		} else {
			logCtx.WithError(err).Error("Registry operation failed")
			h.replyError(client, "internal error")
		}
		return
	}

	reply, _ := json.Marshal(map[string]string{
		"status":     control.Action + "d", // subscribed / unsubscribed
		"channel_id": control.ChannelID,
	})
	h.reply(client, reply)
	logCtx.WithFields(logrus.Fields{
		"action":     control.Action,
		"channel_id": control.ChannelID,
	}).Debug("Control message handled")
}

func (h *Hub) replyError(client *Client, message string) {
	payload, _ := json.Marshal(map[string]string{"status": "error", "message": message})
	h.reply(client, payload)
}

func (h *Hub) reply(client *Client, payload []byte) {
	// 非阻塞发送，慢客户端会丢回执而不是阻塞 Hub
	if err := client.trySend(payload); err != nil {
		logrus.WithField("connection_id", client.ConnectionID()).WithError(err).Warn("Dropping control reply")
	}
}

// PostToConnection 把数据投递到本进程内的连接。
// 连接不在本进程 (或已注销) 时返回 ErrConnectionGone，由广播器触发注册表自愈。
func (h *Hub) PostToConnection(_ context.Context, connectionID string, data []byte) error {
	h.clientsMu.RLock()
	client, ok := h.clients[connectionID]
	h.clientsMu.RUnlock()
	if !ok {
		return ErrConnectionGone
	}
	return client.trySend(data)
}
