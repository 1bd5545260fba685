package proposal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"tender-agent-backend/service/llmclient"
	"tender-agent-backend/service/outline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel 支持流式回调的假模型
type fakeModel struct {
	respond func(prompt string) (string, error)
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
	content, err := f.respond(prompt)
	if err != nil {
		return nil, err
	}

	opts := llms.CallOptions{}
	for _, o := range options {
		o(&opts)
	}
	if opts.StreamingFunc != nil {
		// 按两段推送，模拟流式输出
		half := len(content) / 2
		_ = opts.StreamingFunc(ctx, []byte(content[:half]))
		_ = opts.StreamingFunc(ctx, []byte(content[half:]))
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return f.respond(prompt)
}

func fakeAssembler(mode Mode, respond func(prompt string) (string, error)) *Assembler {
	return NewAssembler(llmclient.NewWithModel(&fakeModel{respond: respond}, "fake"), mode)
}

func twoChapterOutline() *outline.Outline {
	o := &outline.Outline{
		Title: "测试方案",
		Chapters: []*outline.Chapter{
			{Title: "项目理解", KeyPoints: []string{"背景", "目标"}},
			{Title: "技术方案", KeyPoints: []string{"架构"}},
		},
	}
	outline.Normalize(o.Chapters)
	return o
}

func TestAssembleZeroChapters(t *testing.T) {
	called := false
	a := fakeAssembler(ModeBasic, func(string) (string, error) {
		called = true
		return "正文", nil
	})

	p, err := a.Assemble(context.Background(), &outline.Outline{Title: "空"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, p.Chapters)
	assert.Empty(t, p.Chapters)
	assert.False(t, called)
}

func TestAssembleConcurrentFillsAll(t *testing.T) {
	a := fakeAssembler(ModeBasic, func(prompt string) (string, error) {
		if strings.Contains(prompt, "项目理解") {
			return "项目理解正文", nil
		}
		return "技术方案正文", nil
	})

	o := twoChapterOutline()
	p, err := a.Assemble(context.Background(), o, nil)
	require.NoError(t, err)
	require.Len(t, p.Chapters, 2)
	assert.Equal(t, "项目理解正文", p.Chapters[0].Content)
	assert.Equal(t, "技术方案正文", p.Chapters[1].Content)
}

func TestAssembleBatchMissingChapterFallback(t *testing.T) {
	batchCalls := 0
	a := fakeAssembler(ModeBasic, func(prompt string) (string, error) {
		if strings.Contains(prompt, "章节列表") {
			batchCalls++
			// 批量结果漏掉第三章
			return `{"一、": "第一章正文", "二、": "第二章正文"}`, nil
		}
		return "补齐的第三章正文", nil
	})

	o := &outline.Outline{
		Title: "方案",
		Chapters: []*outline.Chapter{
			{Title: "甲"}, {Title: "乙"}, {Title: "丙"},
		},
	}
	outline.Normalize(o.Chapters)

	p, err := a.Assemble(context.Background(), o, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, batchCalls)
	assert.Equal(t, "第一章正文", p.Chapters[0].Content)
	assert.Equal(t, "第二章正文", p.Chapters[1].Content)
	assert.Equal(t, "补齐的第三章正文", p.Chapters[2].Content)
}

func TestGenerateChapterDegradesToStub(t *testing.T) {
	a := fakeAssembler(ModeBasic, func(string) (string, error) {
		return "", errors.New("server exploded")
	})

	ch := &outline.Chapter{Number: "一、", Title: "项目理解", KeyPoints: []string{"背景", "目标"}}
	content := a.generateChapter(context.Background(), ch, nil, nil)
	assert.Contains(t, content, fallbackMarker)
	assert.Contains(t, content, "背景")
	assert.Contains(t, content, "项目理解")
}

func TestStreamEventOrdering(t *testing.T) {
	a := fakeAssembler(ModeBasic, func(string) (string, error) {
		return "章节正文内容", nil
	})

	o := twoChapterOutline()
	var events []Event
	for e := range a.AssembleStream(context.Background(), o, nil) {
		events = append(events, e)
	}

	require.NotEmpty(t, events)
	assert.Equal(t, EventCompleted, events[len(events)-1].Type)
	require.NotNil(t, events[len(events)-1].Proposal)
	assert.Len(t, events[len(events)-1].Proposal.Chapters, 2)

	// 第一章的全部事件先于第二章
	var order []string
	for _, e := range events {
		if e.Type == EventChapterStart || e.Type == EventChapterEnd {
			order = append(order, string(e.Type)+":"+e.Chapter)
		}
	}
	assert.Equal(t, []string{
		"chapter_start:一、", "chapter_end:一、",
		"chapter_start:二、", "chapter_end:二、",
	}, order)

	// 每个 content_chunk 落在所属章节的 start/end 之间
	open := ""
	chunks := 0
	for _, e := range events {
		switch e.Type {
		case EventChapterStart:
			open = e.Chapter
		case EventChapterEnd:
			open = ""
		case EventContentChunk:
			chunks++
			assert.Equal(t, open, e.Chapter)
		}
	}
	assert.GreaterOrEqual(t, chunks, 4)
}

func TestStreamZeroChapters(t *testing.T) {
	a := fakeAssembler(ModeBasic, func(string) (string, error) { return "x", nil })

	var events []Event
	for e := range a.AssembleStream(context.Background(), &outline.Outline{Title: "空"}, nil) {
		events = append(events, e)
	}
	require.Len(t, events, 1)
	assert.Equal(t, EventCompleted, events[0].Type)
	assert.Empty(t, events[0].Proposal.Chapters)
}

func TestTemplateStub(t *testing.T) {
	stub := templateStub(&outline.Chapter{Title: "服务保障", Summary: "售后体系", KeyPoints: []string{"响应时效"}})
	assert.Contains(t, stub, "服务保障")
	assert.Contains(t, stub, "售后体系")
	assert.Contains(t, stub, "1. 响应时效")
	assert.True(t, strings.HasSuffix(stub, fallbackMarker))
}
