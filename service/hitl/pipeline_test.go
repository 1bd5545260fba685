package hitl

import (
	"strings"
	"testing"
	"tender-agent-backend/model"
	"tender-agent-backend/service/chunker"
	"tender-agent-backend/service/cleaner"
	"tender-agent-backend/service/docparse"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tocDocument() string {
	var b strings.Builder
	b.WriteString("目录\n")
	b.WriteString("第一章 招标公告\n")
	b.WriteString("第二章 投标人须知\n")
	b.WriteString("第三章 合同条款及格式\n")
	b.WriteString("第四章 技术要求\n")
	// 目录检测只扫描开头区域，正文用空白推到区域之外
	b.WriteString(strings.Repeat("　", 1700))
	b.WriteString("\n第一章 招标公告\n")
	b.WriteString(strings.Repeat("本项目面向社会公开招标。", 20))
	b.WriteString("\n第二章 投标人须知\n")
	b.WriteString(strings.Repeat("投标人应当仔细阅读招标文件。", 20))
	b.WriteString("\n第三章 合同条款及格式\n")
	b.WriteString(strings.Repeat("合同条款内容。", 20))
	b.WriteString("\n第四章 技术要求\n")
	b.WriteString(strings.Repeat("系统应支持高并发访问。", 20))
	return b.String()
}

func TestChaptersFromTOCSelection(t *testing.T) {
	text := tocDocument()
	entries := chunker.DetectTOC(text)
	require.NotEmpty(t, entries)

	chapters := chaptersFromTOC("proj-1", text, entries)
	require.Len(t, chapters, 4)

	byTitle := make(map[string]int)
	for i, ch := range chapters {
		byTitle[ch.Title] = i
		assert.Equal(t, "proj-1", ch.ProjectID)
		assert.NotEmpty(t, ch.ChapterID)
		assert.Greater(t, ch.WordCount, 0)
		assert.LessOrEqual(t, ch.ParaStartIdx, ch.ParaEndIdx)
	}

	needs := chapters[byTitle["第二章 投标人须知"]]
	assert.True(t, needs.AutoSelected)
	assert.True(t, needs.IsSelected)

	contract := chapters[byTitle["第三章 合同条款及格式"]]
	assert.False(t, contract.AutoSelected)
	assert.True(t, contract.SkipRecommended)

	tech := chapters[byTitle["第四章 技术要求"]]
	assert.True(t, tech.AutoSelected)
}

func TestChaptersAreOrderedAndDisjoint(t *testing.T) {
	text := tocDocument()
	chapters := chaptersFromTOC("proj-1", text, chunker.DetectTOC(text))
	for i := 1; i < len(chapters); i++ {
		assert.GreaterOrEqual(t, chapters[i].ParaStartIdx, chapters[i-1].ParaEndIdx)
	}
}

func TestChaptersFromHeadingsFallback(t *testing.T) {
	text := "投标人须知\n" + strings.Repeat("须知正文。", 30) +
		"\n附件清单\n" + strings.Repeat("附件正文。", 10)
	headings := []docparse.Heading{
		{Text: "投标人须知", Level: 1, Position: 0},
		{Text: "附件清单", Level: 1, Position: strings.Index(text, "附件清单")},
	}

	chapters := chaptersFromHeadings("proj-2", text, headings)
	require.Len(t, chapters, 2)
	assert.True(t, chapters[0].AutoSelected)
	assert.False(t, chapters[1].AutoSelected)
	assert.True(t, chapters[1].SkipRecommended)
	assert.Equal(t, chapters[1].ParaStartIdx, chapters[0].ParaEndIdx)
}

// 解析器的标题偏移基于清洗前的原文；清洗会删掉页标记并改变字节位置，
// 章节切分必须按清洗后的文本重新定位，不能沿用旧偏移。
func TestChaptersFromHeadingsRelocatesAfterClean(t *testing.T) {
	raw := "--- 第1页 ---\n第一章 招标公告\n" + strings.Repeat("公告正文。", 30) +
		"\n--- 第2页 ---\n第二章 投标人须知\n" + strings.Repeat("须知正文。", 30)
	headings := []docparse.Heading{
		{Text: "第一章 招标公告", Level: 1, Position: strings.Index(raw, "第一章")},
		{Text: "第二章 投标人须知", Level: 1, Position: strings.Index(raw, "第二章")},
	}

	cleaned := cleaner.Clean(raw, model.FileTypePDF)
	require.NotContains(t, cleaned, "第1页")

	chapters := chaptersFromHeadings("proj-3", cleaned, headings)
	require.Len(t, chapters, 2)
	for i, ch := range chapters {
		assert.True(t, strings.HasPrefix(ch.PreviewText, headings[i].Text),
			"chapter %d preview %q", i, preview(ch.PreviewText, 20))
		assert.True(t, utf8.ValidString(ch.PreviewText))
	}
	assert.Equal(t, chapters[1].ParaStartIdx, chapters[0].ParaEndIdx)
}

func TestFileTypeOf(t *testing.T) {
	assert.Equal(t, model.FileTypePDF, fileTypeOf("data/uploads/p1.PDF"))
	assert.Equal(t, model.FileTypeWord, fileTypeOf("p2.docx"))
	assert.Equal(t, model.FileTypeText, fileTypeOf("p3.txt"))
}

func TestPreviewTruncates(t *testing.T) {
	long := strings.Repeat("字", 300)
	assert.Equal(t, 200, len([]rune(preview(long, 200))))
	assert.Equal(t, "短文本", preview("短文本", 200))
}
