package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/NTitterton/agorusta/internal/service"
)

// ServerHandler 封装服务器、频道与成员相关的 HTTP 处理逻辑。
type ServerHandler struct {
	serverService *service.ServerService
}

func NewServerHandler(serverService *service.ServerService) *ServerHandler {
	return &ServerHandler{serverService: serverService}
}

// CreateServerRequest 定义建服请求的结构体。
type CreateServerRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// CreateServer 处理 POST /servers。
func (h *ServerHandler) CreateServer(c *gin.Context) {
	var req CreateServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.CreateServer: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: name required")
		return
	}

	userID, username := currentUser(c)
	detail, err := h.serverService.CreateServer(c.Request.Context(), userID, username, req.Name)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, detail)
}

// ListServers 处理 GET /servers，返回当前用户加入的服务器。
func (h *ServerHandler) ListServers(c *gin.Context) {
	userID, _ := currentUser(c)
	servers, err := h.serverService.ListUserServers(c.Request.Context(), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"servers": servers})
}

// GetServer 处理 GET /servers/:serverId。
func (h *ServerHandler) GetServer(c *gin.Context) {
	userID, _ := currentUser(c)
	detail, err := h.serverService.GetServer(c.Request.Context(), c.Param("serverId"), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, detail)
}

// CreateChannelRequest 定义建频道请求的结构体。
type CreateChannelRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
	Type string `json:"type" binding:"omitempty,oneof=text voice"`
}

// CreateChannel 处理 POST /servers/:serverId/channels。
func (h *ServerHandler) CreateChannel(c *gin.Context) {
	var req CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.CreateChannel: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: name required, type must be text or voice")
		return
	}

	userID, _ := currentUser(c)
	channel, err := h.serverService.CreateChannel(c.Request.Context(), c.Param("serverId"), userID, req.Name, req.Type)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, channel)
}

// ListChannels 处理 GET /servers/:serverId/channels。
func (h *ServerHandler) ListChannels(c *gin.Context) {
	userID, _ := currentUser(c)
	channels, err := h.serverService.ListChannels(c.Request.Context(), c.Param("serverId"), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"channels": channels})
}

// ListMembers 处理 GET /servers/:serverId/members。
func (h *ServerHandler) ListMembers(c *gin.Context) {
	userID, _ := currentUser(c)
	members, err := h.serverService.ListMembers(c.Request.Context(), c.Param("serverId"), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"members": members})
}
