package es

import (
	"context"
	"docqa-go/internal/config"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBuildKnnQuery_NamespaceAndFilters(t *testing.T) {
	q := buildKnnQuery([]float32{0.1, 0.2}, 10, "docs", map[string]any{"source": "geo.txt"})

	knn := q["knn"].(map[string]interface{})
	if knn["k"] != 10 || knn["num_candidates"] != 100 {
		t.Errorf("unexpected k/num_candidates: %v/%v", knn["k"], knn["num_candidates"])
	}
	if q["size"] != 10 {
		t.Errorf("size = %v", q["size"])
	}
	filters := knn["filter"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]map[string]interface{})
	if len(filters) != 2 {
		t.Fatalf("expected namespace + 1 metadata filter, got %d", len(filters))
	}
	if filters[0]["term"].(map[string]interface{})["namespace"] != "docs" {
		t.Errorf("first filter should pin the namespace: %v", filters[0])
	}
	if filters[1]["term"].(map[string]interface{})["metadata.source"] != "geo.txt" {
		t.Errorf("metadata filter not applied: %v", filters[1])
	}
}

func TestBuildKnnQuery_EmptyFilter(t *testing.T) {
	q := buildKnnQuery([]float32{1}, 10, "docs", map[string]any{})
	filters := q["knn"].(map[string]interface{})["filter"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]map[string]interface{})
	if len(filters) != 1 {
		t.Errorf("empty filter should only constrain namespace, got %d clauses", len(filters))
	}
}

func TestSimilaritySearchVectorWithScore_ParsesHits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if !strings.HasPrefix(r.URL.Path, "/kb/_search") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var q map[string]interface{}
		if err := json.Unmarshal(body, &q); err != nil {
			t.Errorf("query is not json: %v", err)
		}
		if _, ok := q["knn"]; !ok {
			t.Errorf("query has no knn clause: %s", body)
		}
		w.Write([]byte(`{"hits":{"hits":[
			{"_score":0.92,"_source":{"text":"Paris is the capital of France.","metadata":{"source":"geo.txt"}}},
			{"_score":0.41,"_source":{"text":"Berlin is in Germany."}}
		]}}`))
	}))
	defer server.Close()

	client, err := NewClient(config.ElasticsearchConfig{Addresses: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	store := NewStore(client, "kb", "docs")

	docs, err := store.SimilaritySearchVectorWithScore(context.Background(), []float32{0.1}, 10, map[string]any{})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].PageContent != "Paris is the capital of France." || docs[0].Score != 0.92 {
		t.Errorf("unexpected first hit: %+v", docs[0])
	}
	if docs[0].Metadata["source"] != "geo.txt" {
		t.Errorf("metadata not decoded: %v", docs[0].Metadata)
	}
	if docs[1].Metadata == nil {
		t.Error("missing metadata should decode to an empty map")
	}
}

func TestSimilaritySearchVectorWithScore_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"search_phase_execution_exception"}}`))
	}))
	defer server.Close()

	client, _ := NewClient(config.ElasticsearchConfig{Addresses: server.URL})
	_, err := NewStore(client, "kb", "docs").SimilaritySearchVectorWithScore(context.Background(), []float32{0.1}, 10, nil)
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
}
