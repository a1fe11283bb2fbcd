package chain

import (
	"context"
	"docqa-go/internal/model"
	"docqa-go/pkg/llm"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// stubModel 记录每次调用的提示词，并按提示词类型返回固定结果。
type stubModel struct {
	mu           sync.Mutex
	prompts      []string
	temperatures []float64
	condensed    string
	answer       func(prompt string) string
	err          error
	chunks       []string
}

func (m *stubModel) record(messages []llm.Message, gen *llm.GenerationParams) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := messages[len(messages)-1].Content
	m.prompts = append(m.prompts, p)
	if gen != nil && gen.Temperature != nil {
		m.temperatures = append(m.temperatures, *gen.Temperature)
	}
	return p
}

func (m *stubModel) Generate(_ context.Context, messages []llm.Message, gen *llm.GenerationParams) (string, error) {
	p := m.record(messages, gen)
	if m.err != nil {
		return "", m.err
	}
	if strings.Contains(p, "Standalone question:") {
		return m.condensed, nil
	}
	if m.answer != nil {
		return m.answer(p), nil
	}
	return "answer", nil
}

func (m *stubModel) StreamChatMessages(_ context.Context, messages []llm.Message, gen *llm.GenerationParams, writer llm.MessageWriter) error {
	m.record(messages, gen)
	if m.err != nil {
		return m.err
	}
	for _, c := range m.chunks {
		if err := writer.WriteMessage(websocket.TextMessage, []byte(c)); err != nil {
			return err
		}
	}
	return nil
}

type stubEmbedder struct {
	queries []string
	err     error
}

func (e *stubEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.queries = append(e.queries, text)
	if e.err != nil {
		return nil, e.err
	}
	return []float32{float32(len(text)), 1}, nil
}

type stubSearcher struct {
	docs    []model.ScoredDocument
	err     error
	calls   int
	gotK    int
	gotFilt map[string]any
}

func (s *stubSearcher) SimilaritySearchVectorWithScore(_ context.Context, _ []float32, k int, filter map[string]any) ([]model.ScoredDocument, error) {
	s.calls++
	s.gotK = k
	s.gotFilt = filter
	if s.err != nil {
		return nil, s.err
	}
	return s.docs, nil
}

type chunkRecorder struct {
	chunks []string
}

func (w *chunkRecorder) WriteMessage(_ int, data []byte) error {
	w.chunks = append(w.chunks, string(data))
	return nil
}

func scored(content string, score float64) model.ScoredDocument {
	return model.ScoredDocument{
		Document: model.Document{PageContent: content, Metadata: map[string]any{"source": content + ".txt"}},
		Score:    score,
	}
}
