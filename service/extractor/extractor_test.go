package extractor

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
	return NewAgent(llmclient.NewWithModel(&fakeModel{respond: respond}, "fake-strong"))
}

func TestExtractDefaults(t *testing.T) {
	a := newFakeAgent(func(string) string {
		return `{"requirements": [{"detail": "投标人须具备ISO9001认证"}]}`
	})

	reqs, err := a.Extract(context.Background(), "p1", []Input{
		{ChunkID: "c1", Index: 0, Content: "资质要求"},
	})
	require.NoError(t, err)
	require.Len(t, reqs, 1)

	r := reqs[0]
	assert.Equal(t, "p1", r.ProjectID)
	assert.Equal(t, "c1", r.ChunkID)
	assert.NotEmpty(t, r.RequirementID)
	assert.Equal(t, model.ConstraintOptional, r.ConstraintType)
	assert.Equal(t, model.CategoryTechnical, r.Category)
	assert.Equal(t, model.PriorityMedium, r.Priority)
	assert.Equal(t, 0.8, r.ExtractionConfidence)
}

func TestExtractDropsDetailless(t *testing.T) {
	a := newFakeAgent(func(string) string {
		return `{"requirements": [
			{"detail": "", "summary": "空条目"},
			{"summary": "无detail字段"},
			{"detail": "响应时间不超过2小时", "category": "service", "constraint_type": "mandatory", "priority": "high"}
		]}`
	})

	reqs, err := a.Extract(context.Background(), "p1", []Input{
		{ChunkID: "c1", Index: 0, Content: "服务要求"},
	})
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, model.CategoryService, reqs[0].Category)
	assert.Equal(t, model.ConstraintMandatory, reqs[0].ConstraintType)
	assert.Equal(t, model.PriorityHigh, reqs[0].Priority)
}

func TestExtractTolerantShapes(t *testing.T) {
	cases := []string{
		"```json\n[{\"detail\": \"质保期3年\"}]\n```",
		`{"items": [{"detail": "质保期3年"}]}`,
		`{"result": [{"detail": "质保期3年"}]}`,
		`{"detail": "质保期3年"}`,
	}
	for _, resp := range cases {
		resp := resp
		a := newFakeAgent(func(string) string { return resp })
		reqs, err := a.Extract(context.Background(), "p1", []Input{
			{ChunkID: "c1", Index: 0, Content: "x"},
		})
		require.NoError(t, err, "resp=%q", resp)
		require.Len(t, reqs, 1, "resp=%q", resp)
		assert.Equal(t, "质保期3年", reqs[0].Detail)
	}
}

func TestExtractOrderAcrossChunks(t *testing.T) {
	a := newFakeAgent(func(prompt string) string {
		switch {
		case strings.Contains(prompt, "甲块"):
			return `{"requirements": [{"detail": "甲1"}, {"detail": "甲2"}]}`
		case strings.Contains(prompt, "乙块"):
			return `{"requirements": [{"detail": "乙1"}]}`
		default:
			return `{"requirements": []}`
		}
	})

	reqs, err := a.Extract(context.Background(), "p1", []Input{
		{ChunkID: "c0", Index: 0, Content: "甲块"},
		{ChunkID: "c1", Index: 1, Content: "丙块"},
		{ChunkID: "c2", Index: 2, Content: "乙块"},
	})
	require.NoError(t, err)
	require.Len(t, reqs, 3)
	assert.Equal(t, []string{"甲1", "甲2", "乙1"},
		[]string{reqs[0].Detail, reqs[1].Detail, reqs[2].Detail})
}

func TestExtractSkipsBadChunk(t *testing.T) {
	a := newFakeAgent(func(prompt string) string {
		if strings.Contains(prompt, "坏块") {
			return "这不是JSON"
		}
		return `{"requirements": [{"detail": "有效需求"}]}`
	})

	reqs, err := a.Extract(context.Background(), "p1", []Input{
		{ChunkID: "c0", Index: 0, Content: "坏块"},
		{ChunkID: "c1", Index: 1, Content: "好块"},
	})
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "有效需求", reqs[0].Detail)
}
