package vectordb

import (
	"context"
	"docqa-go/internal/model"
	"testing"
)

func seedStore(t *testing.T) *MemoryStore {
	t.Helper()
	store, err := NewMemoryStore("", "docs")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	err = store.AddChunks(context.Background(), []model.IndexedChunk{
		{ID: "a_0", Text: "Paris is the capital of France.", Vector: []float32{1, 0}, Metadata: map[string]any{"source": "geo.txt", "file_md5": "a"}},
		{ID: "b_0", Text: "Rust is a systems language.", Vector: []float32{0, 1}, Metadata: map[string]any{"source": "lang.txt", "file_md5": "b"}},
	})
	if err != nil {
		t.Fatalf("add chunks: %v", err)
	}
	return store
}

func TestMemoryStore_RanksBySimilarity(t *testing.T) {
	store := seedStore(t)

	docs, err := store.SimilaritySearchVectorWithScore(context.Background(), []float32{1, 0.1}, 10, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("k should clamp to collection size, got %d docs", len(docs))
	}
	if docs[0].PageContent != "Paris is the capital of France." {
		t.Errorf("unexpected top document: %q", docs[0].PageContent)
	}
	if docs[0].Score < docs[1].Score {
		t.Errorf("results not in descending score order: %v, %v", docs[0].Score, docs[1].Score)
	}
	if docs[0].Metadata["source"] != "geo.txt" {
		t.Errorf("metadata lost: %v", docs[0].Metadata)
	}
}

func TestMemoryStore_Filter(t *testing.T) {
	store := seedStore(t)

	docs, err := store.SimilaritySearchVectorWithScore(context.Background(), []float32{1, 0}, 10, map[string]any{"source": "lang.txt"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(docs) != 1 || docs[0].Metadata["source"] != "lang.txt" {
		t.Fatalf("filter not applied: %+v", docs)
	}
}

func TestMemoryStore_DeleteByFile(t *testing.T) {
	store := seedStore(t)
	if err := store.DeleteByFile(context.Background(), "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	docs, err := store.SimilaritySearchVectorWithScore(context.Background(), []float32{1, 0}, 10, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(docs) != 1 || docs[0].PageContent != "Rust is a systems language." {
		t.Fatalf("unexpected docs after delete: %+v", docs)
	}
}

func TestMemoryStore_EmptyCollection(t *testing.T) {
	store, err := NewMemoryStore("", "empty")
	if err != nil {
		t.Fatal(err)
	}
	docs, err := store.SimilaritySearchVectorWithScore(context.Background(), []float32{1, 0}, 10, nil)
	if err != nil {
		t.Fatalf("search on empty collection: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected no docs, got %d", len(docs))
	}
}
