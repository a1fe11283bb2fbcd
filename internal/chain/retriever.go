// Package chain 实现对话式检索问答链：问题改写、向量检索、答案生成。
package chain

import (
	"context"
	"docqa-go/internal/model"
	"docqa-go/pkg/log"
	"strings"
)

// DefaultTopK 是每次检索返回的文档数量。
const DefaultTopK = 10

// Embedder 把查询文本转换为向量。
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher 是向量库的相似度检索接口。
type Searcher interface {
	SimilaritySearchVectorWithScore(ctx context.Context, vector []float32, k int, filter map[string]any) ([]model.ScoredDocument, error)
}

// RetrievedHook 在检索完成时以带得分的文档列表被调用。
type RetrievedHook func(docs []model.ScoredDocument)

// Retriever 把向量库包装为“按查询取文档”的统一接口。
type Retriever struct {
	embedder Embedder
	searcher Searcher
	topK     int
	filter   map[string]any
	hooks    []RetrievedHook
}

// RetrieverOption 配置 Retriever。
type RetrieverOption func(*Retriever)

// WithTopK 设置返回的文档数量。
func WithTopK(k int) RetrieverOption {
	return func(r *Retriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithFilter 设置元数据过滤条件。
func WithFilter(filter map[string]any) RetrieverOption {
	return func(r *Retriever) {
		r.filter = filter
	}
}

// WithOnRetrieved 注册检索完成回调。
func WithOnRetrieved(hook RetrievedHook) RetrieverOption {
	return func(r *Retriever) {
		r.hooks = append(r.hooks, hook)
	}
}

// NewRetriever 创建一个 Retriever，默认 k=10、无过滤条件。
func NewRetriever(embedder Embedder, searcher Searcher, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		embedder: embedder,
		searcher: searcher,
		topK:     DefaultTopK,
		filter:   map[string]any{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RetrieveWithScores 向量化查询并检索，成功后依次触发回调。
func (r *Retriever) RetrieveWithScores(ctx context.Context, query string) ([]model.ScoredDocument, error) {
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, upstream(StageEmbed, err)
	}
	docs, err := r.searcher.SimilaritySearchVectorWithScore(ctx, vector, r.topK, r.filter)
	if err != nil {
		return nil, upstream(StageSearch, err)
	}
	if len(docs) > r.topK {
		docs = docs[:r.topK]
	}
	log.Infof("[Retriever] 检索完成, query: '%s', 命中: %d", query, len(docs))
	for _, hook := range r.hooks {
		hook(docs)
	}
	return docs, nil
}

// Retrieve 返回与查询最相关的文档。
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]model.Document, error) {
	scored, err := r.RetrieveWithScores(ctx, query)
	if err != nil {
		return nil, err
	}
	docs := make([]model.Document, len(scored))
	for i, sd := range scored {
		docs[i] = sd.Document
	}
	return docs, nil
}

// CombineDocuments 用 separator 拼接文档正文，作为提示词中的上下文。
func CombineDocuments(docs []model.Document, separator string) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.PageContent
	}
	return strings.Join(parts, separator)
}
