// Package vectordb 提供基于 chromem-go 的进程内向量库，用于开发环境与单机部署。
package vectordb

import (
	"context"
	"docqa-go/internal/model"
	"docqa-go/pkg/log"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"
)

// MemoryStore 以 namespace 作为 chromem 集合名。
type MemoryStore struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewMemoryStore 创建向量库；path 非空时持久化到该目录。
func NewMemoryStore(path, namespace string) (*MemoryStore, error) {
	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem db: %w", err)
		}
	}

	// 分块写入前都已向量化，不需要 embedding 函数
	collection, err := db.GetOrCreateCollection(namespace, nil, noEmbedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	log.Infof("[MemoryStore] 集合 '%s' 已就绪, 文档数: %d", namespace, collection.Count())
	return &MemoryStore{db: db, collection: collection}, nil
}

func noEmbedding(_ context.Context, _ string) ([]float32, error) {
	return nil, fmt.Errorf("memory store requires pre-computed embeddings")
}

// SimilaritySearchVectorWithScore 返回余弦相似度最高的 k 个文档。
// filter 中的值按字符串精确匹配元数据。
func (s *MemoryStore) SimilaritySearchVectorWithScore(ctx context.Context, vector []float32, k int, filter map[string]any) ([]model.ScoredDocument, error) {
	// chromem 要求 nResults 不超过集合大小
	if count := s.collection.Count(); k > count {
		k = count
	}
	if k == 0 {
		return []model.ScoredDocument{}, nil
	}

	var where map[string]string
	if len(filter) > 0 {
		where = make(map[string]string, len(filter))
		for key, v := range filter {
			where[key] = fmt.Sprint(v)
		}
	}

	results, err := s.collection.QueryEmbedding(ctx, vector, k, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query failed: %w", err)
	}

	docs := make([]model.ScoredDocument, 0, len(results))
	for _, r := range results {
		metadata := make(map[string]any, len(r.Metadata))
		for key, v := range r.Metadata {
			metadata[key] = v
		}
		docs = append(docs, model.ScoredDocument{
			Document: model.Document{PageContent: r.Content, Metadata: metadata},
			Score:    float64(r.Similarity),
		})
	}
	return docs, nil
}

// AddChunks 写入已向量化的分块。
func (s *MemoryStore) AddChunks(ctx context.Context, chunks []model.IndexedChunk) error {
	docs := make([]chromem.Document, 0, len(chunks))
	for _, c := range chunks {
		metadata := make(map[string]string, len(c.Metadata))
		for key, v := range c.Metadata {
			metadata[key] = fmt.Sprint(v)
		}
		docs = append(docs, chromem.Document{
			ID:        c.ID,
			Content:   c.Text,
			Metadata:  metadata,
			Embedding: c.Vector,
		})
	}
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// DeleteByFile 删除某个源文件的全部分块。
func (s *MemoryStore) DeleteByFile(ctx context.Context, fileMD5 string) error {
	return s.collection.Delete(ctx, map[string]string{"file_md5": fileMD5}, nil)
}
