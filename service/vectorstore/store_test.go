package vectorstore

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unit(dim, hot int) []float32 {
	v := make([]float32, dim)
	v[hot] = 1
	return v
}

// blend 归一化的两分量混合向量
func blend(dim, a, b int, wa float64) []float32 {
	wb := math.Sqrt(1 - wa*wa)
	v := make([]float32, dim)
	v[a] = float32(wa)
	v[b] = float32(wb)
	return v
}

func newTestStore(t *testing.T, indexType string) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "vs"), indexType, 8)
	require.NoError(t, err)
	return s
}

func TestSearchEmptyStore(t *testing.T) {
	s := newTestStore(t, IndexFlat)
	results, err := s.Search(unit(8, 0), 5, 0.0, nil)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestAddAndSearchFlat(t *testing.T) {
	s := newTestStore(t, IndexFlat)
	require.NoError(t, s.AddDocuments([]*Document{
		{ID: "a", Content: "甲", Vector: unit(8, 0)},
		{ID: "b", Content: "乙", Vector: unit(8, 1)},
		{ID: "c", Content: "近甲", Vector: blend(8, 0, 1, 0.9)},
	}))

	results, err := s.Search(unit(8, 0), 2, 0.5, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Document.ID)
	assert.Equal(t, "c", results[1].Document.ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestAddDimMismatch(t *testing.T) {
	s := newTestStore(t, IndexFlat)
	err := s.AddDocuments([]*Document{{ID: "a", Vector: unit(4, 0)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dim mismatch")
	assert.Zero(t, s.Size())
}

func TestSearchThresholdAndFilter(t *testing.T) {
	s := newTestStore(t, IndexFlat)
	require.NoError(t, s.AddDocuments([]*Document{
		{ID: "a", Vector: unit(8, 0), Metadata: map[string]any{"doc_type": "tender"}},
		{ID: "b", Vector: blend(8, 0, 1, 0.95), Metadata: map[string]any{"doc_type": "proposal"}},
		{ID: "c", Vector: unit(8, 2), Metadata: map[string]any{"doc_type": "tender"}},
	}))

	results, err := s.Search(unit(8, 0), 10, 0.3, map[string]any{"doc_type": "tender"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Document.ID)

	// 列表过滤为 in 语义
	results, err = s.Search(unit(8, 0), 10, 0.3,
		map[string]any{"doc_type": []any{"tender", "proposal"}})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestDeleteAndRebuildBijection(t *testing.T) {
	for _, indexType := range []string{IndexFlat, IndexHNSW} {
		t.Run(indexType, func(t *testing.T) {
			s := newTestStore(t, indexType)
			docs := make([]*Document, 10)
			for i := range docs {
				docs[i] = &Document{ID: string(rune('a' + i)), Vector: unit(8, i%8)}
			}
			require.NoError(t, s.AddDocuments(docs))

			require.NoError(t, s.Delete("a"))
			require.NoError(t, s.Delete("b"))
			assert.Equal(t, 8, s.Size())
			assert.Len(t, s.idMapping, len(s.documents))

			// 软删除的向量不再出现在结果中
			results, err := s.Search(unit(8, 0), 10, 0.5, nil)
			require.NoError(t, err)
			for _, r := range results {
				assert.NotContains(t, []string{"a", "b"}, r.Document.ID)
			}

			require.NoError(t, s.RebuildIndex())
			assert.Equal(t, 8, s.index.size())
			assert.Len(t, s.idMapping, len(s.documents))

			results, err = s.Search(unit(8, 2), 3, 0.5, nil)
			require.NoError(t, err)
			require.NotEmpty(t, results)
			assert.Equal(t, "c", results[0].Document.ID)
		})
	}
}

func TestDeleteMissing(t *testing.T) {
	s := newTestStore(t, IndexFlat)
	assert.Error(t, s.Delete("nope"))
}

func TestPersistReload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "vs")

	s, err := Open(dir, IndexFlat, 8)
	require.NoError(t, err)
	require.NoError(t, s.AddDocuments([]*Document{
		{ID: "a", Content: "甲", Vector: unit(8, 0), Metadata: map[string]any{"k": "v"}},
		{ID: "b", Content: "乙", Vector: unit(8, 1)},
	}))

	reopened, err := Open(dir, IndexFlat, 8)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Size())

	results, err := reopened.Search(unit(8, 1), 1, 0.5, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].Document.ID)
	assert.Equal(t, "乙", results[0].Document.Content)
}

func TestIVFTrainsAtThreshold(t *testing.T) {
	s := newTestStore(t, IndexIVF)

	docs := make([]*Document, ivfTrainThreshold+20)
	for i := range docs {
		docs[i] = &Document{ID: "d" + string(rune('0'+i%10)) + string(rune('a'+i/10)), Vector: blend(8, i%8, (i+1)%8, 0.9)}
	}
	require.NoError(t, s.AddDocuments(docs))

	ivf, ok := s.index.(*ivfIndex)
	require.True(t, ok)
	assert.True(t, ivf.trained())

	results, err := s.Search(blend(8, 0, 1, 0.9), 5, 0.1, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestHNSWSearchFindsNearest(t *testing.T) {
	s := newTestStore(t, IndexHNSW)
	docs := make([]*Document, 50)
	for i := range docs {
		docs[i] = &Document{ID: "h" + string(rune('0'+i/10)) + string(rune('0'+i%10)), Vector: blend(8, i%8, (i+3)%8, 0.8)}
	}
	docs = append(docs, &Document{ID: "target", Vector: unit(8, 5)})
	require.NoError(t, s.AddDocuments(docs))

	results, err := s.Search(unit(8, 5), 3, 0.0, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "target", results[0].Document.ID)
}

func TestOverwriteSameID(t *testing.T) {
	s := newTestStore(t, IndexFlat)
	require.NoError(t, s.AddDocuments([]*Document{{ID: "a", Vector: unit(8, 0)}}))
	require.NoError(t, s.AddDocuments([]*Document{{ID: "a", Vector: unit(8, 1)}}))

	assert.Equal(t, 1, s.Size())
	assert.Len(t, s.idMapping, 1)

	results, err := s.Search(unit(8, 1), 1, 0.5, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Document.ID)
}
