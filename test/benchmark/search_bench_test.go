package benchmark

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hyperjump/shiori/internal/embedding"
	"github.com/hyperjump/shiori/internal/indexer"
	"github.com/hyperjump/shiori/internal/vector"
)

const benchDimensions = 384

func BenchmarkChunkerSplit(b *testing.B) {
	c, err := indexer.NewChunker(2000, 250)
	if err != nil {
		b.Fatal(err)
	}
	text := strings.Repeat("Chunking splits long documents into overlapping windows. ", 2000)
	b.SetBytes(int64(len(text)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Split(text)
	}
}

func BenchmarkTabularToMarkdown(b *testing.B) {
	headers := []string{"region", "quarter", "revenue", "margin"}
	rows := make([][]string, 500)
	for i := range rows {
		rows[i] = []string{"emea", fmt.Sprintf("Q%d", i%4+1), fmt.Sprint(i * 1000), "0.21"}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = indexer.TabularToMarkdown(headers, rows, 50)
	}
}

func benchStore(b *testing.B, n int) (*vector.MemoryStore, []float32) {
	b.Helper()
	ctx := context.Background()
	store := vector.NewMemoryStore()
	if err := store.CreateCollection(ctx, "docs", benchDimensions, vector.DistanceCosine); err != nil {
		b.Fatal(err)
	}
	e := embedding.NewMockEmbedder(benchDimensions)
	texts := make([]string, n)
	for i := range texts {
		texts[i] = fmt.Sprintf("chunk %d of the benchmark corpus", i)
	}
	vecs, err := e.EmbedTexts(ctx, texts)
	if err != nil {
		b.Fatal(err)
	}
	points := make([]vector.Point, n)
	for i := range points {
		points[i] = vector.Point{
			ID:      fmt.Sprintf("p-%d", i),
			Vector:  vecs[i],
			Payload: map[string]any{"text": texts[i], "metadata": map[string]any{"filename": fmt.Sprintf("f%d.txt", i%10)}},
		}
	}
	if err := store.Upsert(ctx, "docs", points, true); err != nil {
		b.Fatal(err)
	}
	query, err := e.EmbedQuery(ctx, "benchmark query")
	if err != nil {
		b.Fatal(err)
	}
	return store, query
}

func BenchmarkMemoryStoreSearch(b *testing.B) {
	store, query := benchStore(b, 1000)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Search(ctx, "docs", query, nil, 10)
	}
}

func BenchmarkMemoryStoreSearch_Filtered(b *testing.B) {
	store, query := benchStore(b, 1000)
	ctx := context.Background()
	filter := vector.MetadataFilter(map[string]any{"filename": "f3.txt"})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Search(ctx, "docs", query, filter, 10)
	}
}

func BenchmarkMockEmbedder_EmbedQuery(b *testing.B) {
	e := embedding.NewMockEmbedder(benchDimensions)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.EmbedQuery(ctx, "benchmark query text for embedding")
	}
}
