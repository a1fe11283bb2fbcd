package es

import (
	"bytes"
	"context"
	"docqa-go/internal/model"
	"docqa-go/pkg/log"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// numCandidatesFactor 控制 knn 召回候选数与 k 的比例。
const numCandidatesFactor = 10

// Store 将一个 Elasticsearch 索引的某个 namespace 当作向量库使用。
type Store struct {
	client    *elasticsearch.Client
	indexName string
	namespace string
}

// NewStore 创建一个向量库，client 通常为 ESClient。
func NewStore(client *elasticsearch.Client, indexName, namespace string) *Store {
	return &Store{client: client, indexName: indexName, namespace: namespace}
}

// buildKnnQuery 构建带 namespace 与元数据过滤的 knn 查询。
func buildKnnQuery(vector []float32, k int, namespace string, filter map[string]any) map[string]interface{} {
	filters := []map[string]interface{}{
		{"term": map[string]interface{}{"namespace": namespace}},
	}
	// 固定顺序，保证相同输入生成相同查询
	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"metadata." + key: filter[key]},
		})
	}

	return map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": k * numCandidatesFactor,
			"filter": map[string]interface{}{
				"bool": map[string]interface{}{"filter": filters},
			},
		},
		"size":    k,
		"_source": []string{"text", "metadata"},
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source struct {
				Text     string         `json:"text"`
				Metadata map[string]any `json:"metadata"`
			} `json:"_source"`
			Score float64 `json:"_score"`
		} `json:"hits"`
	} `json:"hits"`
}

// SimilaritySearchVectorWithScore 返回与 vector 最相近的 k 个文档及其得分，按得分降序排列。
// 对于 cosine 相似度，Elasticsearch 的得分为 (1 + cos) / 2，范围 [0, 1]。
func (s *Store) SimilaritySearchVectorWithScore(ctx context.Context, vector []float32, k int, filter map[string]any) ([]model.ScoredDocument, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(buildKnnQuery(vector, k, s.namespace, filter)); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.indexName),
		s.client.Search.WithBody(&buf),
	)
	if err != nil {
		log.Errorf("[ESStore] 向 Elasticsearch 发送搜索请求失败: %v", err)
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		bodyBytes, _ := io.ReadAll(res.Body)
		log.Errorf("[ESStore] Elasticsearch 返回错误, status: %s, body: %s", res.Status(), string(bodyBytes))
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.Status())
	}

	var esResponse searchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	results := make([]model.ScoredDocument, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		metadata := hit.Source.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		results = append(results, model.ScoredDocument{
			Document: model.Document{PageContent: hit.Source.Text, Metadata: metadata},
			Score:    hit.Score,
		})
	}
	log.Infof("[ESStore] knn 检索完成, namespace: %s, k: %d, 命中: %d", s.namespace, k, len(results))
	return results, nil
}

// AddChunks 将分块逐个索引到 Elasticsearch。
func (s *Store) AddChunks(ctx context.Context, chunks []model.IndexedChunk) error {
	for _, chunk := range chunks {
		if chunk.Namespace == "" {
			chunk.Namespace = s.namespace
		}
		docBytes, err := json.Marshal(chunk)
		if err != nil {
			return err
		}

		req := esapi.IndexRequest{
			Index:      s.indexName,
			DocumentID: chunk.ID,
			Body:       bytes.NewReader(docBytes),
			Refresh:    "true",
		}
		res, err := req.Do(ctx, s.client)
		if err != nil {
			return err
		}
		if res.IsError() {
			log.Errorf("索引文档到 Elasticsearch 出错: %s", res.String())
			res.Body.Close()
			return errors.New("failed to index document")
		}
		res.Body.Close()
	}
	return nil
}

// DeleteByFile 删除某个源文件在当前 namespace 下的全部分块。
func (s *Store) DeleteByFile(ctx context.Context, fileMD5 string) error {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []map[string]interface{}{
					{"term": map[string]interface{}{"namespace": s.namespace}},
					{"term": map[string]interface{}{"metadata.file_md5": fileMD5}},
				},
			},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return err
	}
	res, err := s.client.DeleteByQuery(
		[]string{s.indexName},
		&buf,
		s.client.DeleteByQuery.WithContext(ctx),
		s.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete by query failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch delete by query returned an error: %s", res.Status())
	}
	return nil
}
