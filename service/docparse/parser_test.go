package docparse

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"tender-agent-backend/apperr"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseUnsupportedFormat(t *testing.T) {
	p := NewParser(nil)
	path := writeTestFile(t, "bid.xyz", "内容")
	_, err := p.Parse(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestParseMissingFile(t *testing.T) {
	p := NewParser(nil)
	_, err := p.Parse(context.Background(), filepath.Join(t.TempDir(), "不存在.pdf"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindParse, apperr.KindOf(err))
}

// 用稀疏文件触发大小上限，txt 上限 50MB
func TestParseSizeLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.txt")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(maxTextSize+1))
	require.NoError(t, f.Close())

	p := NewParser(nil)
	_, err = p.Parse(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "document too large")
}

func TestParseTXTUTF8(t *testing.T) {
	content := "第一章 招标公告\n本项目面向社会公开招标。\n截止时间：2025年8月28日"
	path := writeTestFile(t, "tender.txt", content)

	p := NewParser(nil)
	result, err := p.Parse(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, content, result.Content)
	assert.Equal(t, "UTF-8", result.Metadata.Encoding)
	assert.Equal(t, 3, result.Metadata.Lines)
	assert.Equal(t, len([]rune(content)), result.Metadata.Chars)
}

func TestDecodeGBKDetection(t *testing.T) {
	plain := strings.Repeat("招标文件规定投标人应当在开标前递交投标保证金。", 50)
	gbk, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(plain))
	require.NoError(t, err)
	require.False(t, utf8.Valid(gbk))

	var meta Metadata
	content, _ := decodeWithDetection(gbk, &meta)
	assert.True(t, utf8.ValidString(content))
	assert.Contains(t, content, "投标保证金")
}

func TestInferHeadingsLevels(t *testing.T) {
	pages := []string{"第一章 招标公告\n正文第一行\n" + strings.Repeat("超长的行不是标题", 10)}
	headings := inferHeadings(pages)
	require.Len(t, headings, 1)
	assert.Equal(t, "第一章 招标公告", headings[0].Text)
	assert.Equal(t, 1, headings[0].Level)
	assert.Equal(t, 0, headings[0].Position)
}

func TestSelectKeyPagesCap(t *testing.T) {
	pages := make([]string, 15)
	for i := range pages {
		pages[i] = "审计报告 审计意见"
	}
	key := selectKeyPages(pages)
	assert.Len(t, key, maxKeyPages)
	for i := 1; i < len(key); i++ {
		assert.Greater(t, key[i], key[i-1])
	}
}
