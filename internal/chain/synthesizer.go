package chain

import (
	"context"
	"docqa-go/internal/prompt"
	"docqa-go/pkg/llm"
	"strings"

	"github.com/tmc/langchaingo/prompts"
)

// AnswerTemperature 允许轻微的措辞变化，同时保持回答基本稳定。
const AnswerTemperature = 0.2

// Synthesizer 基于检索到的上下文与对话历史生成最终回答。
type Synthesizer struct {
	model       ChatModel
	template    prompts.PromptTemplate
	temperature float64
}

// NewSynthesizer 创建一个 Synthesizer。
func NewSynthesizer(model ChatModel, template prompts.PromptTemplate, temperature float64) *Synthesizer {
	return &Synthesizer{model: model, template: template, temperature: temperature}
}

func (s *Synthesizer) messages(question, contextText, chatHistory string) ([]llm.Message, error) {
	text, err := s.template.Format(map[string]any{
		prompt.VarContext:     contextText,
		prompt.VarChatHistory: chatHistory,
		prompt.VarQuestion:    question,
	})
	if err != nil {
		return nil, err
	}
	return []llm.Message{{Role: "user", Content: text}}, nil
}

// Synthesize 调用一次模型并返回完整回答。
func (s *Synthesizer) Synthesize(ctx context.Context, question, contextText, chatHistory string) (string, error) {
	msgs, err := s.messages(question, contextText, chatHistory)
	if err != nil {
		return "", upstream(StageSynthesize, err)
	}
	answer, err := s.model.Generate(ctx, msgs, llm.WithTemperature(s.temperature))
	if err != nil {
		return "", upstream(StageSynthesize, err)
	}
	return answer, nil
}

// Stream 以流式方式生成回答，每个分块写入 writer，并返回拼接后的完整回答。
func (s *Synthesizer) Stream(ctx context.Context, question, contextText, chatHistory string, writer llm.MessageWriter) (string, error) {
	msgs, err := s.messages(question, contextText, chatHistory)
	if err != nil {
		return "", upstream(StageSynthesize, err)
	}
	tee := &teeWriter{next: writer}
	if err := s.model.StreamChatMessages(ctx, msgs, llm.WithTemperature(s.temperature), tee); err != nil {
		return "", upstream(StageSynthesize, err)
	}
	return tee.answer.String(), nil
}

// teeWriter 在转发分块的同时记录完整回答。
type teeWriter struct {
	next   llm.MessageWriter
	answer strings.Builder
}

func (w *teeWriter) WriteMessage(messageType int, data []byte) error {
	w.answer.Write(data)
	if w.next == nil {
		return nil
	}
	return w.next.WriteMessage(messageType, data)
}
