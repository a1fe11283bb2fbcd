package llm

import (
	"context"
	"docqa-go/internal/config"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type recordingWriter struct {
	chunks []string
}

func (w *recordingWriter) WriteMessage(_ int, data []byte) error {
	w.chunks = append(w.chunks, string(data))
	return nil
}

func TestGenerate_ReturnsMessageContent(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Paris."}}]}`))
	}))
	defer server.Close()

	client := NewClient(config.LLMConfig{BaseURL: server.URL, Model: "gpt-3.5-turbo", APIKey: "k"})
	answer, err := client.Generate(context.Background(), []Message{{Role: "user", Content: "capital?"}}, WithTemperature(0))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if answer != "Paris." {
		t.Errorf("unexpected answer: %q", answer)
	}
	if got.Stream {
		t.Error("Generate must not request streaming")
	}
	if got.Temperature == nil || *got.Temperature != 0 {
		t.Errorf("explicit zero temperature should be sent, got %v", got.Temperature)
	}
	if got.Model != "gpt-3.5-turbo" {
		t.Errorf("unexpected model: %s", got.Model)
	}
}

func TestGenerate_UsesConfiguredTemperatureWhenUnset(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	cfg := config.LLMConfig{BaseURL: server.URL, Model: "m", Generation: config.LLMGenerationConfig{Temperature: 0.2, MaxTokens: 256}}
	if _, err := NewClient(cfg).Generate(context.Background(), nil, nil); err != nil {
		t.Fatal(err)
	}
	if got.Temperature == nil || *got.Temperature != 0.2 {
		t.Errorf("expected configured temperature 0.2, got %v", got.Temperature)
	}
	if got.MaxTokens == nil || *got.MaxTokens != 256 {
		t.Errorf("expected configured max tokens, got %v", got.MaxTokens)
	}
}

func TestGenerate_Non200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewClient(config.LLMConfig{BaseURL: server.URL}).Generate(context.Background(), nil, nil)
	if err == nil || !strings.Contains(err.Error(), "bad key") {
		t.Fatalf("expected error containing body, got %v", err)
	}
}

func TestStreamChatMessages_WritesDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("missing event-stream accept header")
		}
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n"))
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer server.Close()

	writer := &recordingWriter{}
	err := NewClient(config.LLMConfig{BaseURL: server.URL}).StreamChatMessages(context.Background(), nil, nil, writer)
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}
	if strings.Join(writer.chunks, "") != "Hello" {
		t.Errorf("unexpected chunks: %q", writer.chunks)
	}
}
