package handler

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func dialStream(t *testing.T, qa *stubQA) *websocket.Conn {
	t.Helper()
	r := gin.New()
	r.GET("/api/v1/chat/stream", NewStreamHandler(qa).Handle)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/chat/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var frame map[string]interface{}
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("frame is not json: %s", data)
	}
	return frame
}

func TestStream_ChunksSourcesCompletion(t *testing.T) {
	conn := dialStream(t, &stubQA{chunks: []string{"The capital ", "is Paris."}})
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"question":"capital?"}`)); err != nil {
		t.Fatal(err)
	}

	if f := readFrame(t, conn); f["chunk"] != "The capital " {
		t.Errorf("first frame = %v", f)
	}
	if f := readFrame(t, conn); f["chunk"] != "is Paris." {
		t.Errorf("second frame = %v", f)
	}
	sources := readFrame(t, conn)
	if sources["type"] != "sources" {
		t.Fatalf("expected sources frame, got %v", sources)
	}
	docs := sources["sourceDocuments"].([]interface{})
	if len(docs) != 1 || docs[0].(map[string]interface{})["accuracy"] != 0.92 {
		t.Errorf("unexpected sources: %v", docs)
	}
	if f := readFrame(t, conn); f["type"] != "completion" || f["status"] != "finished" {
		t.Errorf("expected completion, got %v", f)
	}
}

func TestStream_ErrorThenCompletion(t *testing.T) {
	conn := dialStream(t, &stubQA{})
	conn.WriteMessage(websocket.TextMessage, []byte(`{"question":"   "}`))

	if f := readFrame(t, conn); f["error"] != "No question in the request" {
		t.Errorf("expected validation error frame, got %v", f)
	}
	if f := readFrame(t, conn); f["type"] != "completion" {
		t.Errorf("expected completion, got %v", f)
	}

	// 连接在错误后仍可继续使用
	conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
	if f := readFrame(t, conn); f["error"] != "Invalid request body" {
		t.Errorf("expected invalid body frame, got %v", f)
	}
}
