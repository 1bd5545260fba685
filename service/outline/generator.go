package outline

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"tender-agent-backend/service/llmclient"
	"text/template"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	minEstimatedPages = 30
	pagesPerChapter   = 10
	suggestionWorkers = 5
	suggestionTimeout = 120 * time.Second
)

//go:embed prompts/generate.txt
var generatePrompt string

//go:embed prompts/suggestion.txt
var suggestionPrompt string

// Chapter 方案章节树节点。Number 由 Normalize 统一赋值。
type Chapter struct {
	Number      string     `json:"chapter_number"`
	Level       int        `json:"level"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	KeyPoints   []string   `json:"key_points"`
	Subsections []*Chapter `json:"subsections,omitempty"`
	Content     string     `json:"content,omitempty"`
}

type Outline struct {
	Title          string     `json:"title"`
	Chapters       []*Chapter `json:"chapters"`
	TotalChapters  int        `json:"total_chapters"`
	EstimatedPages int        `json:"estimated_pages"`

	// 每个需求类别的响应建议，可选
	Suggestions map[string][]string `json:"suggestions,omitempty"`
}

// Generator 大纲生成。编号、章节数、页数估算在后处理中重算，不信任模型输出。
type Generator struct {
	client *llmclient.Client
	tmpl   *template.Template
	sgTmpl *template.Template

	// 按类别生成响应建议，默认关闭
	WithSuggestions bool
}

func NewGenerator(client *llmclient.Client) *Generator {
	return &Generator{
		client: client,
		tmpl:   template.Must(template.New("generate").Parse(generatePrompt)),
		sgTmpl: template.Must(template.New("suggestion").Parse(suggestionPrompt)),
	}
}

func (g *Generator) Generate(ctx context.Context, analysis *Analysis) (*Outline, error) {
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("序列化需求分析失败: %w", err)
	}

	var sb strings.Builder
	if err := g.tmpl.Execute(&sb, map[string]string{"Analysis": string(analysisJSON)}); err != nil {
		return nil, fmt.Errorf("渲染大纲提示词失败: %w", err)
	}

	resp, err := g.client.Call(ctx, sb.String(), llmclient.Options{
		Temperature: 0.5,
		JSONMode:    true,
		Purpose:     "outline_generate",
	})
	if err != nil {
		return nil, err
	}

	var outline Outline
	if err := llmclient.DecodeJSON(resp, &outline); err != nil {
		return nil, err
	}
	g.postProcess(&outline)

	if g.WithSuggestions {
		outline.Suggestions = g.generateSuggestions(ctx, analysis.RequirementCategories)
	}

	slog.Info("方案大纲生成完成",
		"chapters", outline.TotalChapters, "estimated_pages", outline.EstimatedPages)
	return &outline, nil
}

func (g *Generator) postProcess(o *Outline) {
	if o.Title == "" {
		o.Title = "投标技术方案"
	}
	Normalize(o.Chapters)
	o.TotalChapters = len(o.Chapters)
	o.EstimatedPages = estimatePages(len(o.Chapters))
}

func estimatePages(chapters int) int {
	pages := pagesPerChapter * chapters
	if pages < minEstimatedPages {
		return minEstimatedPages
	}
	return pages
}

// generateSuggestions 并发生成各类别响应建议。
// 单类别失败只跳过，不影响大纲本身。
func (g *Generator) generateSuggestions(ctx context.Context, categories []Category) map[string][]string {
	var mu sync.Mutex
	suggestions := make(map[string][]string, len(categories))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(suggestionWorkers)
	for _, category := range categories {
		category := category
		eg.Go(func() error {
			taskCtx, cancel := context.WithTimeout(gctx, suggestionTimeout)
			defer cancel()

			lines, err := g.suggestOne(taskCtx, category)
			if err != nil {
				slog.Warn("响应建议生成失败", "category", category.Name, "error", err)
				return nil
			}
			mu.Lock()
			suggestions[category.Name] = lines
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()
	return suggestions
}

func (g *Generator) suggestOne(ctx context.Context, category Category) ([]string, error) {
	var sb strings.Builder
	if err := g.sgTmpl.Execute(&sb, map[string]string{
		"Category":    category.Name,
		"Description": category.Description,
	}); err != nil {
		return nil, err
	}

	resp, err := g.client.Call(ctx, sb.String(), llmclient.Options{
		Temperature: 0.5,
		MaxTokens:   300,
		Purpose:     "response_suggestion",
	})
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, line := range strings.Split(resp, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
