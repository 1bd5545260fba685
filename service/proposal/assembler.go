package proposal

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"tender-agent-backend/service/llmclient"
	"tender-agent-backend/service/outline"
	"text/template"
	"time"

	"golang.org/x/sync/errgroup"
)

type Mode string

const (
	ModeBasic    Mode = "basic"
	ModeAdvanced Mode = "advanced"

	chapterWorkers   = 5
	chapterTimeout   = 150 * time.Second
	batchMinChapters = 3

	chapterMaxTokens  = 1500
	batchTokensPerCh  = 2000
	batchMaxTokens    = 12000
	fullPromptRetries = 2
	simpleRetries     = 1

	fallbackMarker = "【请在此处补充详细内容】"
)

//go:embed prompts/chapter_basic.txt
var chapterBasicPrompt string

//go:embed prompts/chapter_advanced.txt
var chapterAdvancedPrompt string

//go:embed prompts/chapter_simple.txt
var chapterSimplePrompt string

//go:embed prompts/batch.txt
var batchPrompt string

// Proposal 组装完成的方案
type Proposal struct {
	Title       string             `json:"title"`
	Chapters    []*outline.Chapter `json:"chapters"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// Assembler 方案正文组装。
// 章节数≥3且无产品资料命中时走批量模式，否则并发逐章生成；
// 单章生成按 完整提示词→精简提示词→模板兜底 三级降级，整体从不失败。
type Assembler struct {
	client    *llmclient.Client
	mode      Mode
	kbMatches map[string][]outline.MatchedDoc

	basicTmpl    *template.Template
	advancedTmpl *template.Template
	simpleTmpl   *template.Template
	batchTmpl    *template.Template
}

func NewAssembler(client *llmclient.Client, mode Mode) *Assembler {
	if mode != ModeAdvanced {
		mode = ModeBasic
	}
	return &Assembler{
		client:       client,
		mode:         mode,
		basicTmpl:    template.Must(template.New("basic").Parse(chapterBasicPrompt)),
		advancedTmpl: template.Must(template.New("advanced").Parse(chapterAdvancedPrompt)),
		simpleTmpl:   template.Must(template.New("simple").Parse(chapterSimplePrompt)),
		batchTmpl:    template.Must(template.New("batch").Parse(batchPrompt)),
	}
}

// WithKBMatches 注入产品资料命中结果，advanced模式的章节提示词会引用
func (a *Assembler) WithKBMatches(matches map[string][]outline.MatchedDoc) *Assembler {
	a.kbMatches = matches
	return a
}

// Assemble 生成全部章节正文。0章直接返回空方案。
func (a *Assembler) Assemble(ctx context.Context, o *outline.Outline, analysis *outline.Analysis) (*Proposal, error) {
	p := &Proposal{
		Title:       o.Title,
		Chapters:    o.Chapters,
		GeneratedAt: time.Now(),
	}
	if p.Chapters == nil {
		p.Chapters = []*outline.Chapter{}
	}
	if len(p.Chapters) == 0 {
		return p, nil
	}

	if len(p.Chapters) >= batchMinChapters && len(a.kbMatches) == 0 {
		a.assembleBatch(ctx, p.Chapters, analysis)
	} else {
		a.assembleConcurrent(ctx, p.Chapters, analysis)
	}

	a.fillSubsections(ctx, p.Chapters, analysis)

	slog.Info("方案组装完成", "chapters", len(p.Chapters), "mode", a.mode)
	return p, nil
}

// assembleBatch 单次调用生成全部章节，缺章回退到逐章生成
func (a *Assembler) assembleBatch(ctx context.Context, chapters []*outline.Chapter, analysis *outline.Analysis) {
	var list strings.Builder
	for _, ch := range chapters {
		fmt.Fprintf(&list, "%s %s：%s 要点：%s\n",
			ch.Number, ch.Title, ch.Summary, strings.Join(ch.KeyPoints, "；"))
	}

	var sb strings.Builder
	if err := a.batchTmpl.Execute(&sb, map[string]string{"Chapters": list.String()}); err != nil {
		a.assembleConcurrent(ctx, chapters, analysis)
		return
	}

	maxTokens := batchTokensPerCh * len(chapters)
	if maxTokens > batchMaxTokens {
		maxTokens = batchMaxTokens
	}

	resp, err := a.client.Call(ctx, sb.String(), llmclient.Options{
		Temperature: 0.7,
		MaxTokens:   maxTokens,
		JSONMode:    true,
		Purpose:     "proposal_batch",
	})
	if err != nil {
		slog.Warn("批量生成失败，回退到逐章生成", "error", err)
		a.assembleConcurrent(ctx, chapters, analysis)
		return
	}

	var contents map[string]string
	if err := llmclient.DecodeJSON(resp, &contents); err != nil {
		slog.Warn("批量生成结果不可解析，回退到逐章生成", "error", err)
		a.assembleConcurrent(ctx, chapters, analysis)
		return
	}

	var missing []*outline.Chapter
	for _, ch := range chapters {
		if content, ok := contents[ch.Number]; ok && strings.TrimSpace(content) != "" {
			ch.Content = strings.TrimSpace(content)
		} else {
			missing = append(missing, ch)
		}
	}
	if len(missing) > 0 {
		slog.Warn("批量生成缺章，逐章补齐", "missing", len(missing))
		a.assembleConcurrent(ctx, missing, analysis)
	}
}

// assembleConcurrent 并发逐章生成，写回原章节指针保持顺序
func (a *Assembler) assembleConcurrent(ctx context.Context, chapters []*outline.Chapter, analysis *outline.Analysis) {
	eg := errgroup.Group{}
	eg.SetLimit(chapterWorkers)
	for _, ch := range chapters {
		ch := ch
		eg.Go(func() error {
			taskCtx, cancel := context.WithTimeout(ctx, chapterTimeout)
			defer cancel()
			ch.Content = a.generateChapter(taskCtx, ch, analysis, nil)
			return nil
		})
	}
	_ = eg.Wait()
}

func (a *Assembler) fillSubsections(ctx context.Context, chapters []*outline.Chapter, analysis *outline.Analysis) {
	var pending []*outline.Chapter
	for _, ch := range chapters {
		pending = append(pending, ch.Subsections...)
	}
	if len(pending) == 0 {
		return
	}
	a.assembleConcurrent(ctx, pending, analysis)
}

// generateChapter 三级降级的单章生成，永不返回空内容。
// streamFn 非nil时完整提示词路径走流式输出。
func (a *Assembler) generateChapter(ctx context.Context, ch *outline.Chapter, analysis *outline.Analysis, streamFn func(chunk string)) string {
	prompt, err := a.fullPrompt(ch, analysis)
	if err == nil {
		opts := llmclient.Options{
			Temperature: 0.7,
			MaxTokens:   chapterMaxTokens,
			MaxRetries:  fullPromptRetries,
			Purpose:     "proposal_chapter",
		}
		var content string
		if streamFn != nil {
			content, err = a.client.CallStream(ctx, prompt, opts, streamFn)
		} else {
			content, err = a.client.Call(ctx, prompt, opts)
		}
		if err == nil && strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content)
		}
		slog.Warn("完整提示词生成失败，降级到精简提示词",
			"chapter", ch.Title, "error", err)
	}

	if content := a.generateSimple(ctx, ch); content != "" {
		if streamFn != nil {
			streamFn(content)
		}
		return content
	}

	stub := templateStub(ch)
	if streamFn != nil {
		streamFn(stub)
	}
	return stub
}

func (a *Assembler) generateSimple(ctx context.Context, ch *outline.Chapter) string {
	hints := ch.KeyPoints
	if len(hints) > 3 {
		hints = hints[:3]
	}
	var sb strings.Builder
	if err := a.simpleTmpl.Execute(&sb, map[string]string{
		"Title":     ch.Title,
		"KeyPoints": bulletList(hints),
	}); err != nil {
		return ""
	}

	content, err := a.client.Call(ctx, sb.String(), llmclient.Options{
		Temperature: 0.7,
		MaxTokens:   chapterMaxTokens,
		MaxRetries:  simpleRetries,
		Purpose:     "proposal_chapter_simple",
	})
	if err != nil {
		slog.Warn("精简提示词生成失败，使用模板兜底", "chapter", ch.Title, "error", err)
		return ""
	}
	return strings.TrimSpace(content)
}

// templateStub 固定兜底模板，列举要点并留待人工补充
func templateStub(ch *outline.Chapter) string {
	var sb strings.Builder
	sb.WriteString("本章围绕" + ch.Title + "展开")
	if ch.Summary != "" {
		sb.WriteString("，" + ch.Summary)
	}
	sb.WriteString("。主要内容包括：\n")
	for i, point := range ch.KeyPoints {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, point)
	}
	sb.WriteString(fallbackMarker)
	return sb.String()
}

func (a *Assembler) fullPrompt(ch *outline.Chapter, analysis *outline.Analysis) (string, error) {
	var sb strings.Builder
	if a.mode == ModeAdvanced {
		err := a.advancedTmpl.Execute(&sb, map[string]string{
			"ProjectTitle":    analysisSummaryTitle(analysis),
			"Overview":        analysisOverview(analysis),
			"Number":          ch.Number,
			"Title":           ch.Title,
			"Summary":         ch.Summary,
			"KeyPoints":       bulletList(ch.KeyPoints),
			"KeyRequirements": keyRequirements(analysis),
			"Reference":       a.reference(ch),
		})
		return sb.String(), err
	}
	err := a.basicTmpl.Execute(&sb, map[string]string{
		"Number":    ch.Number,
		"Title":     ch.Title,
		"Summary":   ch.Summary,
		"KeyPoints": bulletList(ch.KeyPoints),
	})
	return sb.String(), err
}

// reference 拼接该章可引用的产品资料摘录
func (a *Assembler) reference(ch *outline.Chapter) string {
	var sb strings.Builder
	for category, docs := range a.kbMatches {
		if !strings.Contains(ch.Title, category) && !strings.Contains(ch.Summary, category) {
			continue
		}
		for _, d := range docs {
			preview := d.Content
			if runes := []rune(preview); len(runes) > 300 {
				preview = string(runes[:300])
			}
			sb.WriteString("- " + d.Title + "：" + preview + "\n")
		}
	}
	return sb.String()
}

func bulletList(points []string) string {
	if len(points) == 0 {
		return "- （无）"
	}
	var sb strings.Builder
	for _, p := range points {
		sb.WriteString("- " + p + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func analysisSummaryTitle(analysis *outline.Analysis) string {
	if analysis == nil {
		return "投标项目"
	}
	if runes := []rune(analysis.DocumentSummary); len(runes) > 30 {
		return string(runes[:30])
	}
	return analysis.DocumentSummary
}

func analysisOverview(analysis *outline.Analysis) string {
	if analysis == nil {
		return ""
	}
	return analysis.DocumentSummary
}

func keyRequirements(analysis *outline.Analysis) string {
	if analysis == nil {
		return "- （无）"
	}
	var points []string
	for _, c := range analysis.RequirementCategories {
		points = append(points, c.Name+"："+c.Description)
	}
	return bulletList(points)
}
