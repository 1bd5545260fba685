package semanticsearch

import (
	"context"
	"path/filepath"
	"testing"
	"tender-agent-backend/service/vectorstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder 按关键词返回固定方向的单位向量
type fakeEmbedder struct {
	direction int
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, 8)
	v[f.direction] = 1
	return v, nil
}

func unit(hot int) []float32 {
	v := make([]float32, 8)
	v[hot] = 1
	return v
}

func newTestEngine(t *testing.T, docs []*vectorstore.Document, direction int) *Engine {
	t.Helper()
	store, err := vectorstore.Open(filepath.Join(t.TempDir(), "vs"), vectorstore.IndexFlat, 8)
	require.NoError(t, err)
	require.NoError(t, store.AddDocuments(docs))
	return New(&fakeEmbedder{direction: direction}, store)
}

func TestSearchEmptyStore(t *testing.T) {
	store, err := vectorstore.Open(filepath.Join(t.TempDir(), "vs"), vectorstore.IndexFlat, 8)
	require.NoError(t, err)
	e := New(&fakeEmbedder{}, store)

	hits, err := e.Search(context.Background(), SearchQuery{Query: "高并发", TopK: 5, Threshold: 0.5})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchRankAndExplanation(t *testing.T) {
	docs := []*vectorstore.Document{
		{ID: "a", Content: "系统支持高并发处理。性能指标优秀。", Vector: unit(0)},
		{ID: "b", Content: "常规售后服务说明。", Vector: unit(1)},
	}
	e := newTestEngine(t, docs, 0)

	hits, err := e.Search(context.Background(), SearchQuery{Query: "高并发", TopK: 5, Threshold: 0.5})
	require.NoError(t, err)
	require.Len(t, hits, 1)

	h := hits[0]
	assert.Equal(t, "a", h.Document.ID)
	assert.Equal(t, 1, h.Rank)
	assert.Equal(t, "高度相关", h.Explanation)
	require.NotEmpty(t, h.MatchedSegments)
	assert.Contains(t, h.MatchedSegments[0], "高并发")
}

func TestSearchMetadataBoostClamped(t *testing.T) {
	docs := []*vectorstore.Document{
		{ID: "plain", Content: "内容甲", Vector: unit(0)},
		{ID: "boosted", Content: "内容乙", Vector: unit(0),
			Metadata: map[string]any{"is_title": true, "important": true}},
	}
	e := newTestEngine(t, docs, 0)

	hits, err := e.Search(context.Background(), SearchQuery{Query: "内容", TopK: 5, Threshold: 0.5})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.LessOrEqual(t, h.Score, 1.0)
	}
}

func TestMatchedSegmentsCapped(t *testing.T) {
	content := "高并发处理一。高并发处理二。高并发处理三。高并发处理四。高并发处理五。"
	segments := matchedSegments(content, queryTerms("高并发"))
	assert.Len(t, segments, maxSegmentsPerDoc)
}

func TestQueryTermsCJKBigrams(t *testing.T) {
	terms := queryTerms("高并发 realtime")
	assert.Contains(t, terms, "高并")
	assert.Contains(t, terms, "并发")
	assert.Contains(t, terms, "realtime")
}

func TestExplainBuckets(t *testing.T) {
	assert.Equal(t, "高度相关", explain(0.9))
	assert.Equal(t, "相关", explain(0.75))
	assert.Equal(t, "部分相关", explain(0.6))
	assert.Equal(t, "低相关", explain(0.3))
}

func TestSimilarDocumentsExcludesSelf(t *testing.T) {
	docs := []*vectorstore.Document{
		{ID: "a", Content: "甲", Vector: unit(0)},
		{ID: "a2", Content: "甲二", Vector: unit(0)},
		{ID: "b", Content: "乙", Vector: unit(1)},
	}
	e := newTestEngine(t, docs, 0)

	hits, err := e.SimilarDocuments("a", 5, 0.5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a2", hits[0].Document.ID)
	assert.Equal(t, 1, hits[0].Rank)
}
