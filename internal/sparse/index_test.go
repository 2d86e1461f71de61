package sparse

import (
	"context"
	"path/filepath"
	"testing"
)

func TestIndex_UpsertAndSearch(t *testing.T) {
	idx, err := openIndex(filepath.Join(t.TempDir(), "docs"))
	if err != nil {
		t.Fatalf("openIndex: %v", err)
	}
	defer idx.Close()

	ctx := context.Background()
	docs := []Document{
		{ID: "chunk-1", Content: "goroutines and channels make concurrency easy in Go"},
		{ID: "chunk-2", Content: "Python uses asyncio for cooperative concurrency"},
	}
	if err := idx.Upsert(ctx, docs); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	results, err := idx.Search(ctx, "goroutines channels", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one match")
	}
	if results[0].ID != "chunk-1" {
		t.Errorf("expected chunk-1 ranked first, got %q", results[0].ID)
	}
}

func TestIndex_SearchEmptyQueryReturnsEmpty(t *testing.T) {
	idx, err := openIndex(filepath.Join(t.TempDir(), "docs"))
	if err != nil {
		t.Fatalf("openIndex: %v", err)
	}
	defer idx.Close()

	results, err := idx.Search(context.Background(), "   ", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results for blank query, got %d", len(results))
	}
}

func TestIndex_DeleteRemovesDocument(t *testing.T) {
	idx, err := openIndex(filepath.Join(t.TempDir(), "docs"))
	if err != nil {
		t.Fatalf("openIndex: %v", err)
	}
	defer idx.Close()

	ctx := context.Background()
	if err := idx.Upsert(ctx, []Document{{ID: "chunk-1", Content: "some indexed text"}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	count, err := idx.DocCount()
	if err != nil {
		t.Fatalf("DocCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 doc, got %d", count)
	}

	if err := idx.Delete(ctx, []string{"chunk-1"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	count, err = idx.DocCount()
	if err != nil {
		t.Fatalf("DocCount: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 docs after delete, got %d", count)
	}
}

func TestIndex_OperationsFailAfterClose(t *testing.T) {
	idx, err := openIndex(filepath.Join(t.TempDir(), "docs"))
	if err != nil {
		t.Fatalf("openIndex: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := idx.Upsert(context.Background(), []Document{{ID: "a", Content: "x"}}); err == nil {
		t.Error("expected Upsert to fail on closed index")
	}
	if _, err := idx.Search(context.Background(), "x", 5); err == nil {
		t.Error("expected Search to fail on closed index")
	}
}

func TestIndex_UpsertEmptyIsNoop(t *testing.T) {
	idx, err := openIndex(filepath.Join(t.TempDir(), "docs"))
	if err != nil {
		t.Fatalf("openIndex: %v", err)
	}
	defer idx.Close()

	if err := idx.Upsert(context.Background(), nil); err != nil {
		t.Errorf("expected nil error for empty upsert, got %v", err)
	}
}
