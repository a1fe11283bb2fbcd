package handler

import (
	"docqa-go/internal/service"
	"docqa-go/pkg/log"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// KnowledgeHandler 负责知识库文件的管理接口。
type KnowledgeHandler struct {
	knowledgeService service.KnowledgeService
}

// NewKnowledgeHandler 创建一个新的 KnowledgeHandler 实例。
func NewKnowledgeHandler(knowledgeService service.KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{knowledgeService: knowledgeService}
}

// Upload 处理 multipart 文件上传，字段名为 file。
func (h *KnowledgeHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少上传文件"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无法读取上传文件"})
		return
	}
	defer file.Close()

	result, err := h.knowledgeService.Upload(c.Request.Context(), fileHeader.Filename, file)
	if err != nil {
		log.Error("Upload: failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	status := http.StatusAccepted
	message := "文件已加入导入队列"
	if result.Duplicate {
		status = http.StatusOK
		message = "文件已存在"
	}
	c.JSON(status, gin.H{"code": status, "message": message, "data": result})
}

// List 返回知识库中的全部文件。
func (h *KnowledgeHandler) List(c *gin.Context) {
	files, err := h.knowledgeService.List()
	if err != nil {
		log.Error("List: failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取文件列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": files})
}

// Delete 删除一个文件及其全部分块。
func (h *KnowledgeHandler) Delete(c *gin.Context) {
	err := h.knowledgeService.Delete(c.Request.Context(), c.Param("md5"))
	if err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "文件不存在"})
			return
		}
		log.Error("Delete: failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除文件失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "删除成功", "data": nil})
}

// Download 返回一个预签名下载链接。
func (h *KnowledgeHandler) Download(c *gin.Context) {
	url, err := h.knowledgeService.DownloadURL(c.Request.Context(), c.Param("md5"))
	if err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "文件不存在"})
			return
		}
		log.Error("Download: failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "生成下载链接失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{"downloadUrl": url}})
}
