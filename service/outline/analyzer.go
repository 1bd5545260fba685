package outline

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"tender-agent-backend/service/llmclient"
	"text/template"
)

const analyzerMaxChars = 15000

//go:embed prompts/analyze.txt
var analyzePrompt string

type Category struct {
	Name        string   `json:"name"`
	Keywords    []string `json:"keywords"`
	Description string   `json:"description"`
}

// Analysis 需求分析结果，字段缺失时填默认值
type Analysis struct {
	DocumentSummary           string     `json:"document_summary"`
	RequirementCategories     []Category `json:"requirement_categories"`
	SuggestedOutlineStructure []string   `json:"suggested_outline_structure"`
}

// Analyzer 招标需求文本分析
type Analyzer struct {
	client *llmclient.Client
	tmpl   *template.Template
}

func NewAnalyzer(client *llmclient.Client) *Analyzer {
	tmpl := template.Must(template.New("analyze").Parse(analyzePrompt))
	return &Analyzer{client: client, tmpl: tmpl}
}

// Analyze 分析需求文本，超长文本截断到15k字符
func (a *Analyzer) Analyze(ctx context.Context, text string) (*Analysis, error) {
	runes := []rune(text)
	if len(runes) > analyzerMaxChars {
		text = string(runes[:analyzerMaxChars])
	}

	var sb strings.Builder
	if err := a.tmpl.Execute(&sb, map[string]string{"Content": text}); err != nil {
		return nil, fmt.Errorf("渲染需求分析提示词失败: %w", err)
	}

	resp, err := a.client.Call(ctx, sb.String(), llmclient.Options{
		Temperature: 0.3,
		JSONMode:    true,
		Purpose:     "requirement_analyze",
	})
	if err != nil {
		return nil, err
	}

	var analysis Analysis
	if err := llmclient.DecodeJSON(resp, &analysis); err != nil {
		return nil, err
	}
	applyAnalysisDefaults(&analysis)
	return &analysis, nil
}

// 下游只拿到完整对象，缺失键在这里补齐
func applyAnalysisDefaults(a *Analysis) {
	if a.DocumentSummary == "" {
		a.DocumentSummary = "招标需求文档"
	}
	if len(a.RequirementCategories) == 0 {
		a.RequirementCategories = []Category{
			{Name: "技术要求", Keywords: []string{"技术", "性能"}, Description: "技术与性能类要求"},
			{Name: "商务要求", Keywords: []string{"商务", "报价"}, Description: "商务与报价类要求"},
		}
	}
	if len(a.SuggestedOutlineStructure) == 0 {
		a.SuggestedOutlineStructure = []string{
			"项目理解", "总体方案", "技术方案", "实施方案", "服务保障",
		}
	}
}
