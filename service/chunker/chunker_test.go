package chunker

import (
	"strings"
	"testing"
	"tender-agent-backend/model"
	"tender-agent-backend/service/docparse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkIndexContiguous(t *testing.T) {
	text := strings.Repeat("投标人应当具备相应的资质条件。采购人有权要求补充说明。\n\n", 50)
	c := New(DefaultConfig())
	chunks := c.Chunk(text, nil)
	require.NotEmpty(t, chunks)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
	}
}

func TestChunkTokenBudget(t *testing.T) {
	text := strings.Repeat("投标文件应当对招标文件提出的实质性要求和条件作出响应。", 200)
	c := New(DefaultConfig())
	chunks := c.Chunk(text, nil)
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		if ch.Type == model.ChunkTypeTable {
			continue
		}
		assert.LessOrEqual(t, ch.Tokens, DefaultMaxChunkSize,
			"chunk %d exceeds budget", ch.Index)
	}
}

func TestChunkHierarchicalCarriesSection(t *testing.T) {
	text := "第一章 投标人须知\n" + strings.Repeat("投标人必须仔细阅读本须知。", 30) +
		"\n第二章 评标办法\n" + strings.Repeat("评标委员会按综合评分法评审。", 30)
	headings := []docparse.Heading{
		{Text: "第一章 投标人须知", Level: 1},
		{Text: "第二章 评标办法", Level: 1},
	}
	c := New(Config{Strategy: StrategyHierarchical})
	chunks := c.Chunk(text, headings)
	require.NotEmpty(t, chunks)

	var sawTitle, sawSection bool
	for _, ch := range chunks {
		if ch.Type == model.ChunkTypeTitle {
			sawTitle = true
		}
		if ch.SectionTitle == "第一章 投标人须知" && ch.Type == model.ChunkTypeSection {
			sawSection = true
		}
	}
	assert.True(t, sawTitle)
	assert.True(t, sawSection)
}

func TestChunkTableAware(t *testing.T) {
	text := "前置说明文字。\n[表格 1]\n名称 | 数量 | 单价\n服务器 | 2 | 50000\n\n后续说明文字。"
	c := New(Config{Strategy: StrategyTableAware})
	chunks := c.Chunk(text, nil)

	var tableChunk *Chunk
	for i := range chunks {
		if chunks[i].Type == model.ChunkTypeTable {
			tableChunk = &chunks[i]
		}
	}
	require.NotNil(t, tableChunk)
	assert.Contains(t, tableChunk.Content, "[表格 1]")
	assert.Contains(t, tableChunk.Content, "服务器")
}

func TestHybridPicksHierarchicalWithHeadings(t *testing.T) {
	c := New(DefaultConfig())
	strategy := c.pickStrategy("text", []docparse.Heading{{Text: "第一章", Level: 1}})
	assert.Equal(t, StrategyHierarchical, strategy)

	strategy = c.pickStrategy("含[表格 1]的文本", nil)
	assert.Equal(t, StrategyTableAware, strategy)

	strategy = c.pickStrategy("普通文本", nil)
	assert.Equal(t, StrategySemantic, strategy)
}

func TestMergeSmallChunks(t *testing.T) {
	c := New(DefaultConfig())
	chunks := []Chunk{
		{Type: model.ChunkTypeParagraph, Content: strings.Repeat("内容充实的段落。", 30), Tokens: 300},
		{Type: model.ChunkTypeParagraph, Content: "短块", Tokens: 3},
	}
	merged := c.mergeSmallChunks(chunks)
	require.Len(t, merged, 1)
	assert.Contains(t, merged[0].Content, "短块")
}

func TestDetectTOC(t *testing.T) {
	text := "封面\n目录\n第一部分 招标公告\n第二部分 投标人须知\n第三部分 合同条款\n" +
		strings.Repeat("填充", 100) + "\n第一部分 招标公告\n公告正文。\n第二部分 投标人须知\n须知正文。\n第三部分 合同条款\n合同正文。"
	entries := DetectTOC(text)
	require.Len(t, entries, 3)

	assert.False(t, entries[0].Relevant)
	assert.True(t, entries[1].Relevant, "投标人须知 should be relevant")
	assert.True(t, entries[2].Skip, "合同条款 should be skipped")

	// 锚点指向正文中的再次出现，且保持原文顺序
	for i, e := range entries {
		assert.GreaterOrEqual(t, e.Anchor, 0, "entry %d", i)
		if i > 0 {
			assert.Greater(t, e.Anchor, entries[i-1].Anchor)
		}
	}
	assert.Equal(t, "第一部分", text[entries[0].Anchor:entries[0].Anchor+len("第一部分")])
}

func TestChunkWithTOCOnlyRelevant(t *testing.T) {
	text := "目录\n第一部分 投标人须知\n第二部分 合同条款\n" +
		strings.Repeat("填充", 50) + "\n第一部分 投标人须知\n" +
		strings.Repeat("投标人须知正文内容。", 20) +
		"\n第二部分 合同条款\n合同条款正文。"
	entries := DetectTOC(text)
	require.NotEmpty(t, entries)

	c := New(DefaultConfig())
	chunks := c.ChunkWithTOC(text, entries)
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.True(t, ch.IsFromTOC)
		assert.NotContains(t, ch.SectionTitle, "合同条款")
	}
}

func TestSkipPriorityOverRelevant(t *testing.T) {
	// 同时命中两个清单时跳过优先
	relevant, skip := IsSectionRelevant("投标人须知附件")
	assert.True(t, skip)
	assert.False(t, relevant)
}

func TestTokenEstimateFallback(t *testing.T) {
	// 中文约1.5 token/字
	n := estimateTokens("招标文件")
	assert.Equal(t, 6, n)

	// 拉丁语按词计
	n = estimateTokens("hello world foo")
	assert.Equal(t, 3, n)
}
