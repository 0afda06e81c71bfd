package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/NTitterton/agorusta/internal/service"
)

// DMHandler 封装私聊会话与私信相关的 HTTP 处理逻辑。
type DMHandler struct {
	dmService *service.DMService
}

func NewDMHandler(dmService *service.DMService) *DMHandler {
	return &DMHandler{dmService: dmService}
}

// SearchUsers 处理 GET /users/search?q=...。
func (h *DMHandler) SearchUsers(c *gin.Context) {
	userID, _ := currentUser(c)
	users, err := h.dmService.SearchUsers(c.Request.Context(), c.Query("q"), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"users": users})
}

// ListConversations 处理 GET /dms。
func (h *DMHandler) ListConversations(c *gin.Context) {
	userID, _ := currentUser(c)
	conversations, err := h.dmService.ListConversations(c.Request.Context(), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"conversations": conversations})
}

// StartConversationRequest 定义发起会话请求的结构体。
type StartConversationRequest struct {
	RecipientID string `json:"recipient_id" binding:"required"`
}

// StartConversation 处理 POST /dms。
func (h *DMHandler) StartConversation(c *gin.Context) {
	var req StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.StartConversation: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: recipient_id required")
		return
	}

	userID, username := currentUser(c)
	conv, err := h.dmService.StartConversation(c.Request.Context(), userID, username, req.RecipientID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, conv)
}

// GetConversation 处理 GET /dms/:conversationId。
func (h *DMHandler) GetConversation(c *gin.Context) {
	userID, _ := currentUser(c)
	conv, err := h.dmService.GetConversation(c.Request.Context(), c.Param("conversationId"), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, conv)
}

// SendDirectMessage 处理 POST /dms/:conversationId/messages。
func (h *DMHandler) SendDirectMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.SendDirectMessage: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: content required")
		return
	}

	userID, username := currentUser(c)
	dm, err := h.dmService.SendDirectMessage(c.Request.Context(), c.Param("conversationId"), userID, username, req.Content)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, dm)
}

// ListDirectMessages 处理 GET /dms/:conversationId/messages。
func (h *DMHandler) ListDirectMessages(c *gin.Context) {
	userID, _ := currentUser(c)
	limit, before := parsePageQuery(c)

	page, err := h.dmService.ListDirectMessages(c.Request.Context(), c.Param("conversationId"), userID, limit, before)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, page)
}
