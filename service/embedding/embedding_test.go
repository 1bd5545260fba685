package embedding

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	dim     int
	batches [][]string
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	f.batches = append(f.batches, append([]string(nil), texts...))
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, f.dim)
		vectors[i][0] = float32(len(texts[i]))
	}
	return vectors, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, f.dim)
	v[0] = float32(len(text))
	return v, nil
}

func TestEmbedTextsBatching(t *testing.T) {
	fake := &fakeEmbedder{dim: 4}
	s := NewWithEmbedder(fake, 4, 3)

	texts := []string{"一", "二", "三", "四", "五", "六", "七"}
	vectors, err := s.EmbedTexts(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 7)
	assert.Len(t, fake.batches, 3)
	assert.Len(t, fake.batches[0], 3)
	assert.Len(t, fake.batches[2], 1)

	texts2, calls := s.Stats()
	assert.Equal(t, int64(7), texts2)
	assert.Equal(t, int64(3), calls)
}

func TestEmbedTextsEmptyInput(t *testing.T) {
	s := NewWithEmbedder(&fakeEmbedder{dim: 4}, 4, 0)
	vectors, err := s.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestPrepare(t *testing.T) {
	assert.Equal(t, " ", prepare(""))
	assert.Equal(t, "正常文本", prepare("正常文本"))

	long := strings.Repeat("长", maxTextChars+100)
	assert.Equal(t, maxTextChars, len([]rune(prepare(long))))
}

func TestEmbedQuery(t *testing.T) {
	s := NewWithEmbedder(&fakeEmbedder{dim: 4}, 4, 10)
	v, err := s.EmbedQuery(context.Background(), "查询")
	require.NoError(t, err)
	assert.Len(t, v, 4)
}
