package chain

import (
	"context"
	"docqa-go/pkg/llm"
)

// ContextSeparator 分隔上下文中的各个文档。
const ContextSeparator = "\n\n"

// Input 是链的输入：已清洗的问题与序列化后的对话历史。
type Input struct {
	Question    string
	ChatHistory string
}

// Result 是链的输出。
type Result struct {
	StandaloneQuestion string
	Answer             string
}

// ConversationalRetrievalChain 依次执行：改写问题 -> 检索 -> 生成回答。
// 没有分支与循环，改写后的问题同时用于检索与答案生成。
type ConversationalRetrievalChain struct {
	condenser   *Condenser
	retriever   *Retriever
	synthesizer *Synthesizer
}

// New 组装一条问答链。
func New(condenser *Condenser, retriever *Retriever, synthesizer *Synthesizer) *ConversationalRetrievalChain {
	return &ConversationalRetrievalChain{
		condenser:   condenser,
		retriever:   retriever,
		synthesizer: synthesizer,
	}
}

// prepare 执行第一阶段与检索，返回独立问题与上下文文本。
func (c *ConversationalRetrievalChain) prepare(ctx context.Context, in Input) (string, string, error) {
	standalone, err := c.condenser.Condense(ctx, in.Question, in.ChatHistory)
	if err != nil {
		return "", "", err
	}
	docs, err := c.retriever.Retrieve(ctx, standalone)
	if err != nil {
		return "", "", err
	}
	return standalone, CombineDocuments(docs, ContextSeparator), nil
}

// Invoke 运行整条链并返回完整回答。
func (c *ConversationalRetrievalChain) Invoke(ctx context.Context, in Input) (Result, error) {
	standalone, contextText, err := c.prepare(ctx, in)
	if err != nil {
		return Result{}, err
	}
	answer, err := c.synthesizer.Synthesize(ctx, standalone, contextText, in.ChatHistory)
	if err != nil {
		return Result{}, err
	}
	return Result{StandaloneQuestion: standalone, Answer: answer}, nil
}

// Stream 与 Invoke 相同，但以流式方式把回答分块写入 writer。
func (c *ConversationalRetrievalChain) Stream(ctx context.Context, in Input, writer llm.MessageWriter) (Result, error) {
	standalone, contextText, err := c.prepare(ctx, in)
	if err != nil {
		return Result{}, err
	}
	answer, err := c.synthesizer.Stream(ctx, standalone, contextText, in.ChatHistory, writer)
	if err != nil {
		return Result{}, err
	}
	return Result{StandaloneQuestion: standalone, Answer: answer}, nil
}
