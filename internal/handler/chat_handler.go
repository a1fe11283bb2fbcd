// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"docqa-go/internal/model"
	"docqa-go/internal/service"
	"docqa-go/pkg/log"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ChatHandler 负责处理问答请求。
type ChatHandler struct {
	qaService service.QAService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(qaService service.QAService) *ChatHandler {
	return &ChatHandler{qaService: qaService}
}

// Ask 处理一次问答。只接受 POST，其余方法返回 405。
func (h *ChatHandler) Ask(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
		return
	}

	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Warnf("[ChatHandler] 无法解析请求体: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	resp, err := h.qaService.Ask(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"message": service.ErrValidation.Error()})
			return
		}
		log.Errorf("[ChatHandler] 问答失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}
