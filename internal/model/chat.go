// Package model 包含了应用的数据模型定义。
package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ChatTurn 是一轮已完成的对话：用户提问与助手回答，记录后不再修改。
// 线上格式为二元字符串数组 ["user", "assistant"]。
type ChatTurn struct {
	User      string
	Assistant string
}

// MarshalJSON 将一轮对话编码为 [user, assistant]。
func (t ChatTurn) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{t.User, t.Assistant})
}

// UnmarshalJSON 只接受恰好两个字符串元素的数组。
func (t *ChatTurn) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("chat turn must be a [user, assistant] string pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("chat turn must have exactly 2 elements, got %d", len(pair))
	}
	t.User, t.Assistant = pair[0], pair[1]
	return nil
}

// ChatHistory 按时间从旧到新排列的对话轮次。
type ChatHistory []ChatTurn

// String 将历史序列化为提示词使用的纯文本块，空历史返回空字符串。
func (h ChatHistory) String() string {
	lines := make([]string, 0, len(h))
	for _, turn := range h {
		lines = append(lines, "Human: "+turn.User+"\nAssistant: "+turn.Assistant)
	}
	return strings.Join(lines, "\n")
}

// Document 是向量库中一个已嵌入的文档分块。
type Document struct {
	PageContent string         `json:"pageContent"`
	Metadata    map[string]any `json:"metadata"`
}

// ScoredDocument 是一次相似度检索返回的文档及其得分，按相关度降序排列。
type ScoredDocument struct {
	Document
	Score float64 `json:"score"`
}

// SourceDocument 是返回给调用方的来源文档，Accuracy 即检索得分。
type SourceDocument struct {
	PageContent string         `json:"pageContent"`
	Metadata    map[string]any `json:"metadata"`
	Accuracy    float64        `json:"accuracy"`
}

// ChatRequest 是问答接口的请求体。
type ChatRequest struct {
	Question  string      `json:"question"`
	History   ChatHistory `json:"history"`
	SessionID string      `json:"sessionId"`
}

// ChatResponse 是问答接口的成功响应体。
type ChatResponse struct {
	Text            string           `json:"text"`
	SourceDocuments []SourceDocument `json:"sourceDocuments"`
}

// NewSourceDocuments 按检索顺序把得分转换为 accuracy 字段。
func NewSourceDocuments(scored []ScoredDocument) []SourceDocument {
	sources := make([]SourceDocument, 0, len(scored))
	for _, sd := range scored {
		metadata := sd.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		sources = append(sources, SourceDocument{
			PageContent: sd.PageContent,
			Metadata:    metadata,
			Accuracy:    sd.Score,
		})
	}
	return sources
}

// SanitizeQuestion 去除首尾空白，并把内部的每个换行替换为空格。
func SanitizeQuestion(question string) string {
	return strings.ReplaceAll(strings.TrimSpace(question), "\n", " ")
}
