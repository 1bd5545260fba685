package outline

import (
	"context"
	"testing"
	"tender-agent-backend/service/llmclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	respond func(prompt string) string
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var prompt string
	for _, m := range messages {
		for _, p := range m.Parts {
			if t, ok := p.(llms.TextContent); ok {
				prompt += t.Text
			}
		}
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.respond(prompt)}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return f.respond(prompt), nil
}

func fakeClient(respond func(prompt string) string) *llmclient.Client {
	return llmclient.NewWithModel(&fakeModel{respond: respond}, "fake")
}

func TestChapterLabel(t *testing.T) {
	assert.Equal(t, "一、", ChapterLabel(1, 1))
	assert.Equal(t, "十、", ChapterLabel(1, 10))
	assert.Equal(t, "十二、", ChapterLabel(1, 12))
	assert.Equal(t, "二十、", ChapterLabel(1, 20))
	assert.Equal(t, "21、", ChapterLabel(1, 21))
	assert.Equal(t, "（一）", ChapterLabel(2, 1))
	assert.Equal(t, "（十五）", ChapterLabel(2, 15))
	assert.Equal(t, "1、", ChapterLabel(3, 1))
	assert.Equal(t, "7、", ChapterLabel(3, 7))
}

func TestNormalizeOverridesModelNumbering(t *testing.T) {
	chapters := []*Chapter{
		{Number: "3.", Title: "项目理解", Subsections: []*Chapter{
			{Number: "a)", Title: "背景"},
			{Number: "b)", Title: "目标", Subsections: []*Chapter{
				{Number: "x", Title: "近期目标"},
			}},
		}},
		{Number: "第2章", Title: "技术方案"},
	}

	Normalize(chapters)
	assert.Equal(t, "一、", chapters[0].Number)
	assert.Equal(t, "二、", chapters[1].Number)
	assert.Equal(t, "（一）", chapters[0].Subsections[0].Number)
	assert.Equal(t, "（二）", chapters[0].Subsections[1].Number)
	assert.Equal(t, "1、", chapters[0].Subsections[1].Subsections[0].Number)
	assert.Equal(t, 2, chapters[0].Subsections[0].Level)
}

func TestNormalizeIdempotent(t *testing.T) {
	chapters := []*Chapter{
		{Title: "甲", Subsections: []*Chapter{{Title: "甲一"}}},
		{Title: "乙"},
	}
	Normalize(chapters)
	first := []string{chapters[0].Number, chapters[1].Number, chapters[0].Subsections[0].Number}
	Normalize(chapters)
	second := []string{chapters[0].Number, chapters[1].Number, chapters[0].Subsections[0].Number}
	assert.Equal(t, first, second)
}

func TestEstimatePages(t *testing.T) {
	assert.Equal(t, minEstimatedPages, estimatePages(0))
	assert.Equal(t, minEstimatedPages, estimatePages(2))
	assert.Equal(t, 50, estimatePages(5))
	assert.Equal(t, 120, estimatePages(12))
}

func TestAnalyzeDefaults(t *testing.T) {
	a := NewAnalyzer(fakeClient(func(string) string { return "{}" }))
	analysis, err := a.Analyze(context.Background(), "招标文件内容")
	require.NoError(t, err)
	assert.NotEmpty(t, analysis.DocumentSummary)
	assert.NotEmpty(t, analysis.RequirementCategories)
	assert.NotEmpty(t, analysis.SuggestedOutlineStructure)
}

func TestGenerateCanonicalNumbering(t *testing.T) {
	g := NewGenerator(fakeClient(func(string) string {
		return `{"title": "方案", "chapters": [
			{"title": "项目理解", "chapter_number": "第1章"},
			{"title": "技术方案", "chapter_number": "II", "subsections": [{"title": "架构"}]}
		], "total_chapters": 99, "estimated_pages": 1}`
	}))

	outline, err := g.Generate(context.Background(), &Analysis{DocumentSummary: "x"})
	require.NoError(t, err)
	assert.Equal(t, 2, outline.TotalChapters)
	assert.Equal(t, minEstimatedPages, outline.EstimatedPages)
	assert.Equal(t, "一、", outline.Chapters[0].Number)
	assert.Equal(t, "二、", outline.Chapters[1].Number)
	assert.Equal(t, "（一）", outline.Chapters[1].Subsections[0].Number)
}

func TestKeywordScore(t *testing.T) {
	score := keywordScore("风控产品白皮书", "支持实时风控与反欺诈。", []string{"风控", "反欺诈"})
	// 风控命中标题+正文，反欺诈只命中正文
	assert.Equal(t, titleHitWeight+2*contentHitWeight, score)
}
