package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/NTitterton/agorusta/internal/hub"
	"github.com/NTitterton/agorusta/internal/repository"
)

// WebSocketHandler 负责处理 WebSocket 升级请求和连接登记。
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
	registry repository.ConnectionRegistry
}

func NewWebSocketHandler(h *hub.Hub, registry repository.ConnectionRegistry) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	if registry == nil {
		panic("ConnectionRegistry cannot be nil for WebSocketHandler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// 允许所有来源连接 (生产环境应配置具体的允许来源)
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return &WebSocketHandler{
		upgrader: upgrader,
		hub:      h,
		registry: registry,
	}
}

// HandleConnection 处理 GET /ws：登记连接、升级协议、启动客户端读写循环。
// 订阅关系随后由客户端在连接上用 subscribe/unsubscribe 控制帧维护。
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		logrus.Warn("WS Handler: User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	connectionID := uuid.NewString()
	logCtx := logrus.WithFields(logrus.Fields{
		"user_id":       userID,
		"connection_id": connectionID,
	})

	// 先登记再升级：登记失败时还能返回 HTTP 错误
	if err := h.registry.Connect(c.Request.Context(), connectionID, userID); err != nil {
		logCtx.WithError(err).Error("WS Handler: Failed to register connection")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to establish connection"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写了 HTTP 错误响应，这里只清理登记
		logCtx.WithError(err).Error("WS Handler: Failed to upgrade connection")
		if cleanupErr := h.registry.Disconnect(c.Request.Context(), connectionID); cleanupErr != nil {
			logCtx.WithError(cleanupErr).Warn("WS Handler: Failed to clean up connection record")
		}
		return
	}
	logCtx.Info("WS Handler: Connection upgraded to WebSocket")

	client := hub.NewClient(h.hub, conn, connectionID, userID)
	registerMsg := hub.HubMessage{Type: "register", Client: client}
	if !h.hub.QueueMessage(registerMsg) {
		logCtx.Error("WS Handler: Hub message channel full, failed to register client")
		conn.Close()
		return
	}

	client.Run()
	logCtx.Info("WS Handler: Client read/write pumps started")
}
