package filter

import (
	"context"
	"strings"
	"testing"
	"tender-agent-backend/model"
	"tender-agent-backend/service/llmclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel 按内容关键词返回固定判定
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

func newFakeAgent(respond func(prompt string) string) *Agent {
	client := llmclient.NewWithModel(&fakeModel{respond: respond}, "fake-small")
	return NewAgent(client)
}

func TestFilterEmpty(t *testing.T) {
	a := newFakeAgent(func(string) string { return "NO|无价值" })
	results, err := a.Filter(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFilterStructuralOverride(t *testing.T) {
	a := newFakeAgent(func(string) string { return "NO|无价值" })
	chunks := []Input{
		{ChunkID: "c0", Index: 0, Type: model.ChunkTypeTitle, Content: "第一章 投标人须知"},
		{ChunkID: "c1", Index: 1, Type: model.ChunkTypeTable, Content: "[表格 1]\n报价 | 100"},
		{ChunkID: "c2", Index: 2, Type: model.ChunkTypeParagraph, Content: "与招标无关的内容"},
	}

	results, err := a.Filter(context.Background(), chunks)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].IsValuable)
	assert.Equal(t, 1.0, results[0].Confidence)
	assert.Equal(t, "title默认保留", results[0].Reason)

	assert.True(t, results[1].IsValuable)
	assert.Equal(t, 1.0, results[1].Confidence)
	assert.Equal(t, "table默认保留", results[1].Reason)

	assert.False(t, results[2].IsValuable)
}

func TestFilterSortedByIndex(t *testing.T) {
	a := newFakeAgent(func(prompt string) string {
		if strings.Contains(prompt, "资质") {
			return "YES|资质要求"
		}
		return "NO|无价值"
	})

	var chunks []Input
	for i := 0; i < 20; i++ {
		content := "普通内容"
		if i%3 == 0 {
			content = "投标人资质要求"
		}
		chunks = append(chunks, Input{
			ChunkID: string(rune('a' + i)),
			Index:   i,
			Type:    model.ChunkTypeParagraph,
			Content: content,
		})
	}

	results, err := a.Filter(context.Background(), chunks)
	require.NoError(t, err)
	require.Len(t, results, 20)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
	}
}

func TestParseDecisionVariants(t *testing.T) {
	chunk := Input{ChunkID: "c", Index: 0}
	cases := []struct {
		resp     string
		valuable bool
		conf     float64
	}{
		{"YES|含资质要求", true, 0.9},
		{"yes|含资质要求", true, 0.9},
		{"是|有价值", true, 0.9},
		{"有价值信息", true, 0.9},
		{"NO|页眉噪声", false, 0.9},
		{"否|无关内容", false, 0.9},
		{"无实质内容", false, 0.9},
		{"嗯，我觉得可能有点用", true, 0.5},
		{"", true, 0.5},
	}

	for _, tc := range cases {
		res := parseDecision(chunk, tc.resp)
		assert.Equal(t, tc.valuable, res.IsValuable, "resp=%q", tc.resp)
		assert.Equal(t, tc.conf, res.Confidence, "resp=%q", tc.resp)
	}
}

func TestParseDecisionReasonTruncated(t *testing.T) {
	res := parseDecision(Input{}, "YES|"+strings.Repeat("长", 40))
	assert.LessOrEqual(t, len([]rune(res.Reason)), 20)
}
