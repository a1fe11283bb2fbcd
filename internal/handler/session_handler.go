package handler

import (
	"docqa-go/internal/service"
	"docqa-go/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SessionHandler 处理会话历史相关的 API 请求。
type SessionHandler struct {
	service service.SessionService
}

// NewSessionHandler 创建一个新的 SessionHandler。
func NewSessionHandler(service service.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

// GetSession 返回会话中保存的对话轮次。
func (h *SessionHandler) GetSession(c *gin.Context) {
	turns, err := h.service.Turns(c.Request.Context(), c.Param("id"))
	if err != nil {
		log.Error("GetSession: failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "Failed to retrieve session history",
			"data":    nil,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    turns,
	})
}

// DeleteSession 清空会话历史。
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.service.Clear(c.Request.Context(), c.Param("id")); err != nil {
		log.Error("DeleteSession: failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "Failed to clear session", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": nil})
}
