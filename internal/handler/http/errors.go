package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/NTitterton/agorusta/internal/service"
)

// HandleServiceError 把服务层业务错误映射为 HTTP 状态码。
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAuthenticationFailed):
		ErrorResponse(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrNotMember),
		errors.Is(err, service.ErrNotParticipant),
		errors.Is(err, service.ErrForbidden):
		ErrorResponse(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrServerNotFound),
		errors.Is(err, service.ErrChannelNotFound),
		errors.Is(err, service.ErrConversationNotFound),
		errors.Is(err, service.ErrInviteNotFound),
		errors.Is(err, service.ErrPasswordNotFound):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrRegistrationFailed),
		errors.Is(err, service.ErrAlreadyMember):
		ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInviteExpired),
		errors.Is(err, service.ErrInviteExhausted):
		ErrorResponse(c, http.StatusGone, err.Error())
	default:
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

// currentUser 从中间件写入的上下文取出调用者身份。
func currentUser(c *gin.Context) (userID, username string) {
	userID = c.GetString("user_id")
	username = c.GetString("username")
	return
}
