package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/NTitterton/agorusta/internal/service"
)

// InviteHandler 封装邀请码相关的 HTTP 处理逻辑。
type InviteHandler struct {
	inviteService *service.InviteService
}

func NewInviteHandler(inviteService *service.InviteService) *InviteHandler {
	return &InviteHandler{inviteService: inviteService}
}

// CreateInviteRequest 定义签发邀请请求的结构体。
// 两个字段都可省略，省略表示不限。
type CreateInviteRequest struct {
	ExpiresInHours *int `json:"expires_in_hours" binding:"omitempty,min=1"`
	MaxUses        *int `json:"max_uses" binding:"omitempty,min=1"`
}

// CreateInvite 处理 POST /servers/:serverId/invites。
func (h *InviteHandler) CreateInvite(c *gin.Context) {
	var req CreateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.CreateInvite: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: expires_in_hours and max_uses must be positive")
		return
	}

	userID, _ := currentUser(c)
	invite, err := h.inviteService.CreateInvite(c.Request.Context(), c.Param("serverId"), userID, req.ExpiresInHours, req.MaxUses)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, invite)
}

// ListInvites 处理 GET /servers/:serverId/invites。
func (h *InviteHandler) ListInvites(c *gin.Context) {
	userID, _ := currentUser(c)
	invites, err := h.inviteService.ListInvites(c.Request.Context(), c.Param("serverId"), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"invites": invites})
}

// RevokeInvite 处理 DELETE /servers/:serverId/invites/:code。
func (h *InviteHandler) RevokeInvite(c *gin.Context) {
	userID, _ := currentUser(c)
	if err := h.inviteService.RevokeInvite(c.Request.Context(), c.Param("serverId"), userID, c.Param("code")); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Invite revoked"})
}

// GetInviteInfo 处理 GET /invites/:code，无需成员资格。
func (h *InviteHandler) GetInviteInfo(c *gin.Context) {
	info, err := h.inviteService.GetInviteInfo(c.Request.Context(), c.Param("code"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, info)
}

// JoinByCode 处理 POST /invites/:code/join。
func (h *InviteHandler) JoinByCode(c *gin.Context) {
	userID, username := currentUser(c)
	detail, err := h.inviteService.JoinByCode(c.Request.Context(), c.Param("code"), userID, username)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, detail)
}

// CreatePasswordRequest 定义创建服务器口令请求的结构体。
type CreatePasswordRequest struct {
	Password       string `json:"password" binding:"required,min=4"`
	ExpiresInHours *int   `json:"expires_in_hours" binding:"omitempty,min=1"`
}

// CreateServerPassword 处理 POST /servers/:serverId/passwords。
func (h *InviteHandler) CreateServerPassword(c *gin.Context) {
	var req CreatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.CreateServerPassword: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: password must be at least 4 characters")
		return
	}

	userID, _ := currentUser(c)
	password, err := h.inviteService.CreateServerPassword(c.Request.Context(), c.Param("serverId"), userID, req.Password, req.ExpiresInHours)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, password)
}

// ListServerPasswords 处理 GET /servers/:serverId/passwords。
func (h *InviteHandler) ListServerPasswords(c *gin.Context) {
	userID, _ := currentUser(c)
	passwords, err := h.inviteService.ListServerPasswords(c.Request.Context(), c.Param("serverId"), userID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"passwords": passwords})
}

// DeleteServerPassword 处理 DELETE /servers/:serverId/passwords/:passwordId。
func (h *InviteHandler) DeleteServerPassword(c *gin.Context) {
	userID, _ := currentUser(c)
	if err := h.inviteService.DeleteServerPassword(c.Request.Context(), c.Param("serverId"), userID, c.Param("passwordId")); err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Password deleted"})
}

// JoinByNameRequest 定义凭名称 + 口令入驻请求的结构体。
type JoinByNameRequest struct {
	ServerName string `json:"server_name" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// JoinByName 处理 POST /servers/join。
func (h *InviteHandler) JoinByName(c *gin.Context) {
	var req JoinByNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.JoinByName: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: server_name and password are required")
		return
	}

	userID, username := currentUser(c)
	detail, err := h.inviteService.JoinByName(c.Request.Context(), req.ServerName, req.Password, userID, username)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, detail)
}
