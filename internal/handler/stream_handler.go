package handler

import (
	"docqa-go/internal/model"
	"docqa-go/internal/service"
	"docqa-go/pkg/log"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// StreamHandler 负责处理 WebSocket 流式问答连接。
type StreamHandler struct {
	qaService service.QAService
}

// NewStreamHandler 创建一个新的 StreamHandler。
func NewStreamHandler(qaService service.QAService) *StreamHandler {
	return &StreamHandler{qaService: qaService}
}

// Handle 处理一个传入的 WebSocket 连接。每条客户端消息是一个 ChatRequest JSON。
func (h *StreamHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()
	log.Infof("WebSocket 连接已建立, remote: %s", c.ClientIP())

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("从 WebSocket 读取消息失败: %v", err)
			}
			return
		}

		var req model.ChatRequest
		if err := json.Unmarshal(message, &req); err != nil {
			writeJSON(conn, gin.H{"error": "Invalid request body"})
			sendCompletion(conn)
			continue
		}

		resp, err := h.qaService.StreamAsk(c.Request.Context(), req, &chunkWriter{conn: conn})
		if err != nil {
			msg := err.Error()
			if !errors.Is(err, service.ErrValidation) {
				log.Errorf("处理流式响应失败: %v", err)
			}
			writeJSON(conn, gin.H{"error": msg})
			sendCompletion(conn)
			continue
		}
		writeJSON(conn, gin.H{"type": "sources", "sourceDocuments": resp.SourceDocuments})
		sendCompletion(conn)
	}
}

// chunkWriter 把模型输出的原始分块包装成 {"chunk":"..."}。
type chunkWriter struct {
	conn *websocket.Conn
}

// WriteMessage 满足 llm.MessageWriter 接口。
func (w *chunkWriter) WriteMessage(messageType int, data []byte) error {
	b, _ := json.Marshal(map[string]string{"chunk": string(data)})
	return w.conn.WriteMessage(messageType, b)
}

func writeJSON(conn *websocket.Conn, v interface{}) {
	b, _ := json.Marshal(v)
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		log.Warnf("写入 WebSocket 消息失败: %v", err)
	}
}

// sendCompletion 发送完成通知 JSON
func sendCompletion(conn *websocket.Conn) {
	writeJSON(conn, gin.H{
		"type":      "completion",
		"status":    "finished",
		"timestamp": time.Now().UnixMilli(),
	})
}
