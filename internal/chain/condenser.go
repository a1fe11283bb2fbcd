package chain

import (
	"context"
	"docqa-go/internal/prompt"
	"docqa-go/pkg/llm"
	"docqa-go/pkg/log"
	"strings"

	"github.com/tmc/langchaingo/prompts"
)

// ChatModel 是链使用的语言模型，llm.Client 满足该接口。
type ChatModel interface {
	Generate(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams) (string, error)
	StreamChatMessages(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams, writer llm.MessageWriter) error
}

// Condenser 结合对话历史把追问改写为独立问题。
type Condenser struct {
	model       ChatModel
	template    prompts.PromptTemplate
	temperature float64
}

// NewCondenser 创建一个 Condenser。
func NewCondenser(model ChatModel, template prompts.PromptTemplate, temperature float64) *Condenser {
	return &Condenser{model: model, template: template, temperature: temperature}
}

// Condense 调用一次模型得到独立问题。模型返回空白时沿用原问题。
func (c *Condenser) Condense(ctx context.Context, question, chatHistory string) (string, error) {
	text, err := c.template.Format(map[string]any{
		prompt.VarChatHistory: chatHistory,
		prompt.VarQuestion:    question,
	})
	if err != nil {
		return "", upstream(StageCondense, err)
	}

	out, err := c.model.Generate(ctx, []llm.Message{{Role: "user", Content: text}}, llm.WithTemperature(c.temperature))
	if err != nil {
		return "", upstream(StageCondense, err)
	}
	standalone := strings.TrimSpace(out)
	if standalone == "" {
		log.Warnf("[Condenser] 模型返回了空的独立问题, 使用原问题: '%s'", question)
		return question, nil
	}
	return standalone, nil
}
