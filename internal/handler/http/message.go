package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/NTitterton/agorusta/internal/service"
)

// MessageHandler 封装频道消息相关的 HTTP 处理逻辑。
type MessageHandler struct {
	messageService *service.MessageService
}

func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// SendMessageRequest 定义发消息请求的结构体。
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// SendMessage 处理 POST /servers/:serverId/channels/:channelId/messages。
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.SendMessage: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: content required")
		return
	}

	userID, username := currentUser(c)
	msg, err := h.messageService.SendMessage(
		c.Request.Context(),
		c.Param("serverId"),
		c.Param("channelId"),
		userID,
		username,
		req.Content,
	)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, msg)
}

// ListMessages 处理 GET /servers/:serverId/channels/:channelId/messages。
// 查询参数: limit (默认 50, 上限 100), before (Unix 毫秒游标)。
func (h *MessageHandler) ListMessages(c *gin.Context) {
	userID, _ := currentUser(c)
	limit, before := parsePageQuery(c)

	page, err := h.messageService.ListMessages(
		c.Request.Context(),
		c.Param("serverId"),
		c.Param("channelId"),
		userID,
		limit,
		before,
	)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, page)
}

// parsePageQuery 解析 limit/before 查询参数，非法值按未提供处理。
func parsePageQuery(c *gin.Context) (limit int, before int64) {
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := c.Query("before"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			before = n
		}
	}
	return
}
