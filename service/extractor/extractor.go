package extractor

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"tender-agent-backend/model"
	"tender-agent-backend/service/llmclient"
	"text/template"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultWorkerNum = 3

//go:embed prompts/extract.txt
var extractPrompt string

// Input 待抽取的有价值分块
type Input struct {
	ChunkID string
	Index   int
	Content string
}

// Agent 强模型JSON模式需求抽取器，逐块并发抽取
type Agent struct {
	client  *llmclient.Client
	workers int
	tmpl    *template.Template
}

func NewAgent(client *llmclient.Client) *Agent {
	tmpl := template.Must(template.New("extract").Parse(extractPrompt))
	return &Agent{client: client, workers: defaultWorkerNum, tmpl: tmpl}
}

// Extract 抽取全部分块中的需求条目。
// 单块失败只记日志跳过，不中断整批；结果按分块顺序拼接。
func (a *Agent) Extract(ctx context.Context, projectID string, chunks []Input) ([]model.TenderRequirement, error) {
	type batch struct {
		index int
		items []model.TenderRequirement
	}

	var mu sync.Mutex
	var batches []batch

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for _, chunk := range chunks {
		chunk := chunk
		g.Go(func() error {
			items, err := a.extractOne(gctx, projectID, chunk)
			if err != nil {
				slog.Warn("需求抽取失败，跳过该块",
					"chunk_id", chunk.ChunkID, "error", err)
				return nil
			}
			mu.Lock()
			batches = append(batches, batch{index: chunk.Index, items: items})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(batches, func(i, j int) bool { return batches[i].index < batches[j].index })

	var requirements []model.TenderRequirement
	for _, b := range batches {
		requirements = append(requirements, b.items...)
	}
	return requirements, nil
}

func (a *Agent) extractOne(ctx context.Context, projectID string, chunk Input) ([]model.TenderRequirement, error) {
	var sb strings.Builder
	if err := a.tmpl.Execute(&sb, map[string]string{"Content": chunk.Content}); err != nil {
		return nil, fmt.Errorf("渲染抽取提示词失败: %w", err)
	}

	resp, err := a.client.Call(ctx, sb.String(), llmclient.Options{
		Temperature: 0.1,
		JSONMode:    true,
		Purpose:     "requirement_extract",
	})
	if err != nil {
		return nil, err
	}

	objects, err := llmclient.DecodeObjectList(resp)
	if err != nil {
		return nil, err
	}

	var items []model.TenderRequirement
	for _, obj := range objects {
		detail := strings.TrimSpace(llmclient.StringField(obj, "detail", ""))
		if detail == "" {
			// 无具体内容的条目不可核对，直接丢弃
			continue
		}
		items = append(items, model.TenderRequirement{
			RequirementID:        uuid.NewString(),
			ProjectID:            projectID,
			ChunkID:              chunk.ChunkID,
			ConstraintType:       normalizeConstraint(llmclient.StringField(obj, "constraint_type", "")),
			Category:             normalizeCategory(llmclient.StringField(obj, "category", "")),
			Subcategory:          llmclient.StringField(obj, "subcategory", ""),
			Detail:               detail,
			Summary:              llmclient.StringField(obj, "summary", ""),
			SourceLocation:       llmclient.StringField(obj, "source_location", ""),
			Priority:             normalizePriority(llmclient.StringField(obj, "priority", "")),
			ExtractionConfidence: llmclient.FloatField(obj, "confidence", 0.8),
		})
	}
	return items, nil
}

func normalizeConstraint(s string) model.ConstraintType {
	switch model.ConstraintType(strings.ToLower(strings.TrimSpace(s))) {
	case model.ConstraintMandatory:
		return model.ConstraintMandatory
	case model.ConstraintScoring:
		return model.ConstraintScoring
	default:
		return model.ConstraintOptional
	}
}

func normalizeCategory(s string) model.RequirementCategory {
	switch model.RequirementCategory(strings.ToLower(strings.TrimSpace(s))) {
	case model.CategoryQualification:
		return model.CategoryQualification
	case model.CategoryCommercial:
		return model.CategoryCommercial
	case model.CategoryService:
		return model.CategoryService
	default:
		return model.CategoryTechnical
	}
}

func normalizePriority(s string) model.Priority {
	switch model.Priority(strings.ToLower(strings.TrimSpace(s))) {
	case model.PriorityHigh:
		return model.PriorityHigh
	case model.PriorityLow:
		return model.PriorityLow
	default:
		return model.PriorityMedium
	}
}

// Stats 透出底层客户端的 (calls, cost) 计数
func (a *Agent) Stats() (int64, float64) {
	return a.client.Stats()
}
