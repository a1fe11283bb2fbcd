package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Healthz 返回存活状态。
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
