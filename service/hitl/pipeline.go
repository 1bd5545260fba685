package hitl

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"tender-agent-backend/dao"
	"tender-agent-backend/model"
	"tender-agent-backend/service/chunker"
	"tender-agent-backend/service/cleaner"
	"tender-agent-backend/service/docparse"
	"tender-agent-backend/service/extractor"
	"tender-agent-backend/service/filter"
	"tender-agent-backend/service/infoextract"

	"github.com/google/uuid"
)

// Pipeline 三步人工复核流程的编排器。
// 步骤快照与推进统一走 dao.CompleteProjectStep，current_step 只前进。
type Pipeline struct {
	parser       *docparse.Parser
	filterAgent  *filter.Agent
	extractAgent *extractor.Agent
	info         *infoextract.Extractor
	chunkCfg     chunker.Config

	// 每千字的处理成本估算系数
	costRate float64

	mu     sync.Mutex
	parsed map[string]*docparse.Result
}

func NewPipeline(parser *docparse.Parser, filterAgent *filter.Agent,
	extractAgent *extractor.Agent, info *infoextract.Extractor, costRate float64) *Pipeline {
	return &Pipeline{
		parser:       parser,
		filterAgent:  filterAgent,
		extractAgent: extractAgent,
		info:         info,
		chunkCfg:     chunker.DefaultConfig(),
		costRate:     costRate,
		parsed:       make(map[string]*docparse.Result),
	}
}

// parseProject 解析并清洗项目文档，同一项目只解析一次
func (p *Pipeline) parseProject(ctx context.Context, project *model.TenderProject) (*docparse.Result, error) {
	p.mu.Lock()
	if cached, ok := p.parsed[project.ProjectID]; ok {
		p.mu.Unlock()
		return cached, nil
	}
	p.mu.Unlock()

	result, err := p.parser.Parse(ctx, project.TenderDocumentPath)
	if err != nil {
		return nil, err
	}
	result.Content = cleaner.Clean(result.Content, fileTypeOf(project.TenderDocumentPath))

	p.mu.Lock()
	p.parsed[project.ProjectID] = result
	p.mu.Unlock()
	return result, nil
}

// Step1View 章节确认视图
type Step1View struct {
	Chapters       []model.TenderChapter `json:"chapters"`
	EstimatedWords int64                 `json:"estimated_words"`
	EstimatedCost  float64               `json:"estimated_cost"`
}

// PrepareStep1 解析文档并构建章节树，目录跳过清单驱动 auto_selected。
// 章节快照整组替换，重复调用得到相同结果。
func (p *Pipeline) PrepareStep1(ctx context.Context, projectID string) (*Step1View, error) {
	project, err := dao.GetProjectByID(projectID)
	if err != nil {
		return nil, err
	}
	if err := dao.MarkStepInProgress(projectID, 1); err != nil {
		return nil, err
	}

	parsed, err := p.parseProject(ctx, project)
	if err != nil {
		return nil, err
	}

	chapters := buildChapters(projectID, parsed)
	if err := dao.ReplaceProjectChapters(projectID, chapters); err != nil {
		return nil, err
	}

	view := &Step1View{Chapters: chapters}
	for _, ch := range chapters {
		if ch.IsSelected {
			view.EstimatedWords += int64(ch.WordCount)
		}
	}
	view.EstimatedCost = float64(view.EstimatedWords) / 1000 * p.costRate

	slog.Info("步骤1章节树就绪", "project_id", projectID,
		"chapters", len(chapters), "estimated_words", view.EstimatedWords)
	return view, nil
}

// buildChapters 目录优先，无目录时退化为解析器识别的标题
func buildChapters(projectID string, parsed *docparse.Result) []model.TenderChapter {
	entries := chunker.DetectTOC(parsed.Content)
	if len(entries) > 0 {
		return chaptersFromTOC(projectID, parsed.Content, entries)
	}
	return chaptersFromHeadings(projectID, parsed.Content, parsed.Metadata.Headings)
}

func chaptersFromTOC(projectID, text string, entries []chunker.TOCEntry) []model.TenderChapter {
	var chapters []model.TenderChapter
	for i, entry := range entries {
		if entry.Anchor < 0 {
			continue
		}
		end := len(text)
		for j := i + 1; j < len(entries); j++ {
			if entries[j].Anchor > entry.Anchor {
				end = entries[j].Anchor
				break
			}
		}

		section := text[entry.Anchor:end]
		auto := entry.Relevant && !entry.Skip
		chapters = append(chapters, model.TenderChapter{
			ChapterID:       uuid.NewString(),
			ProjectID:       projectID,
			ChapterNodeID:   entry.Number,
			Level:           1,
			Title:           entry.Number + " " + entry.Title,
			ParaStartIdx:    entry.Anchor,
			ParaEndIdx:      end,
			WordCount:       len([]rune(section)),
			PreviewText:     preview(section, 200),
			IsSelected:      auto,
			AutoSelected:    auto,
			SkipRecommended: entry.Skip,
		})
	}
	return chapters
}

// chaptersFromHeadings 解析器给出的 Position 基于清洗前的原文，
// 这里按顺序在清洗后的文本中重新定位标题再切分。
func chaptersFromHeadings(projectID, text string, headings []docparse.Heading) []model.TenderChapter {
	type located struct {
		heading docparse.Heading
		pos     int
	}
	var tops []located
	searchFrom := 0
	for _, h := range headings {
		if h.Level > 1 {
			continue
		}
		idx := strings.Index(text[searchFrom:], h.Text)
		if idx < 0 {
			continue
		}
		pos := searchFrom + idx
		tops = append(tops, located{heading: h, pos: pos})
		searchFrom = pos + len(h.Text)
	}

	var chapters []model.TenderChapter
	for i, lh := range tops {
		end := len(text)
		if i+1 < len(tops) {
			end = tops[i+1].pos
		}

		section := text[lh.pos:end]
		relevant, skip := chunker.IsSectionRelevant(lh.heading.Text)
		auto := relevant && !skip
		chapters = append(chapters, model.TenderChapter{
			ChapterID:       uuid.NewString(),
			ProjectID:       projectID,
			ChapterNodeID:   lh.heading.Text,
			Level:           lh.heading.Level,
			Title:           lh.heading.Text,
			ParaStartIdx:    lh.pos,
			ParaEndIdx:      end,
			WordCount:       len([]rune(section)),
			PreviewText:     preview(section, 200),
			IsSelected:      auto,
			AutoSelected:    auto,
			SkipRecommended: skip,
		})
	}
	return chapters
}

func fileTypeOf(path string) model.FileType {
	switch strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".") {
	case "pdf":
		return model.FileTypePDF
	case "doc", "docx":
		return model.FileTypeWord
	default:
		return model.FileTypeText
	}
}

func preview(s string, limit int) string {
	runes := []rune(s)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return s
}

// ConfirmStep1 用户确认章节选择，更新成本估算并完成步骤1
func (p *Pipeline) ConfirmStep1(projectID string, selected map[string]bool) error {
	if err := dao.UpdateChapterSelection(projectID, selected); err != nil {
		return err
	}

	chapters, err := dao.GetProjectChapters(projectID)
	if err != nil {
		return err
	}
	var words int64
	for _, ch := range chapters {
		if ch.IsSelected {
			words += int64(ch.WordCount)
		}
	}
	cost := float64(words) / 1000 * p.costRate

	if err := dao.UpdateProjectBasicInfo(projectID, map[string]any{
		"hitl_estimated_words": words,
		"hitl_estimated_cost":  cost,
	}); err != nil {
		return err
	}

	snapshot, _ := json.Marshal(map[string]any{
		"selected":        selected,
		"estimated_words": words,
		"estimated_cost":  cost,
	})
	if err := dao.CompleteProjectStep(projectID, 1, snapshot); err != nil {
		return err
	}
	return p.recordAction(projectID, 1, "confirm_chapters", snapshot)
}

func (p *Pipeline) recordAction(projectID string, step int, actionType string, data json.RawMessage) error {
	return dao.AppendUserAction(&model.UserAction{
		ProjectID:  projectID,
		ActionType: actionType,
		ActionStep: step,
		ActionData: data,
	})
}
