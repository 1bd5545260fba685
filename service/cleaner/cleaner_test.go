package cleaner

import (
	"testing"
	"tender-agent-backend/model"

	"github.com/stretchr/testify/assert"
)

func TestCleanIdempotent(t *testing.T) {
	raw := "\uFEFF投标文件\r\n--- 第1页 ---\r\n正文内容IllllIII噪声\n\n\n\n结尾　全角１２３"
	once := Clean(raw, model.FileTypePDF)
	twice := Clean(once, model.FileTypePDF)
	assert.Equal(t, once, twice)
	assert.NotContains(t, once, "\uFEFF")
}

func TestCleanRemovesNoise(t *testing.T) {
	raw := "正文\n--- 第3页 ---\n***\n更多正文"
	cleaned := Clean(raw, model.FileTypePDF)
	assert.NotContains(t, cleaned, "第3页")
	assert.NotContains(t, cleaned, "***")
	assert.Contains(t, cleaned, "正文")
	assert.Contains(t, cleaned, "更多正文")
}

func TestCleanPreservesDatesAndURLs(t *testing.T) {
	raw := "截止日期：2025年8月28日\nhttps://example.com/tender\ncontact@example.com\n版本 v1.2.3"
	cleaned := Clean(raw, model.FileTypeText)
	assert.Contains(t, cleaned, "2025年8月28日")
	assert.Contains(t, cleaned, "https://example.com/tender")
	assert.Contains(t, cleaned, "contact@example.com")
	assert.Contains(t, cleaned, "v1.2.3")
}

func TestCleanFullWidthConversion(t *testing.T) {
	cleaned := Clean("编号ＡＢ１２３", model.FileTypeText)
	assert.Contains(t, cleaned, "AB123")
}

func TestCleanPDFHyphenJoin(t *testing.T) {
	cleaned := Clean("the require-\nment is clear", model.FileTypePDF)
	assert.Contains(t, cleaned, "requirement")
}

func TestCleanMergesBlankLines(t *testing.T) {
	cleaned := Clean("a\n\n\n\n\nb", model.FileTypeText)
	assert.Equal(t, "a\n\nb", cleaned)
}

func TestQualityScoreRange(t *testing.T) {
	raw := "投标方必须具有建筑工程施工总承包一级及以上资质。项目工期为365天。"
	cleaned := Clean(raw, model.FileTypeText)
	score := QualityScore(raw, cleaned)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
	assert.Greater(t, score, 0.5)
}

func TestQualityScoreEmpty(t *testing.T) {
	assert.Equal(t, 0.0, QualityScore("", ""))
}
