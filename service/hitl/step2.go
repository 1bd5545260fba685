package hitl

import (
	"context"
	"encoding/json"
	"log/slog"
	"tender-agent-backend/dao"
	"tender-agent-backend/model"
	"tender-agent-backend/service/chunker"
	"tender-agent-backend/service/filter"

	"github.com/google/uuid"
)

// Step2View 过滤复核视图：分块及其过滤结论
type Step2View struct {
	Chunks   []model.TenderChunk `json:"chunks"`
	Kept     int                 `json:"kept"`
	Filtered int                 `json:"filtered"`
}

// PrepareStep2 对已选章节切分并跑过滤，分块整组替换后按 chunk_index 返回
func (p *Pipeline) PrepareStep2(ctx context.Context, projectID string) (*Step2View, error) {
	project, err := dao.GetProjectByID(projectID)
	if err != nil {
		return nil, err
	}
	if err := dao.MarkStepInProgress(projectID, 2); err != nil {
		return nil, err
	}

	parsed, err := p.parseProject(ctx, project)
	if err != nil {
		return nil, err
	}
	chapters, err := dao.GetProjectChapters(projectID)
	if err != nil {
		return nil, err
	}

	ck := chunker.New(p.chunkCfg)
	var rows []model.TenderChunk
	index := 0
	for _, chapter := range chapters {
		if !chapter.IsSelected {
			continue
		}
		start, end := chapter.ParaStartIdx, chapter.ParaEndIdx
		if start < 0 || end > len(parsed.Content) || start >= end {
			continue
		}

		meta, _ := json.Marshal(map[string]any{
			"chapter_node_id": chapter.ChapterNodeID,
			"section_title":   chapter.Title,
		})
		for _, chunk := range ck.Chunk(parsed.Content[start:end], nil) {
			rows = append(rows, model.TenderChunk{
				ChunkID:    uuid.NewString(),
				ProjectID:  projectID,
				ChunkIndex: index,
				Content:    chunk.Content,
				ChunkType:  chunk.Type,
				Metadata:   meta,
			})
			index++
		}
	}

	if err := dao.ReplaceProjectChunks(projectID, rows); err != nil {
		return nil, err
	}

	inputs := make([]filter.Input, len(rows))
	for i, row := range rows {
		inputs[i] = filter.Input{
			ChunkID: row.ChunkID,
			Index:   row.ChunkIndex,
			Type:    row.ChunkType,
			Content: row.Content,
		}
	}
	results, err := p.filterAgent.Filter(ctx, inputs)
	if err != nil {
		return nil, err
	}

	view := &Step2View{}
	for i, result := range results {
		if err := dao.UpdateChunkFilterResult(result.ChunkID, result.IsValuable, result.Confidence); err != nil {
			return nil, err
		}
		valuable := result.IsValuable
		confidence := result.Confidence
		rows[i].IsValuable = &valuable
		rows[i].FilterConfidence = &confidence
		if valuable {
			view.Kept++
		} else {
			view.Filtered++
		}
	}
	view.Chunks = rows

	slog.Info("步骤2过滤完成", "project_id", projectID,
		"chunks", len(rows), "kept", view.Kept, "filtered", view.Filtered)
	return view, nil
}

// ChunkReview 用户对单个分块的复核决定
type ChunkReview struct {
	ChunkID      string  `json:"chunk_id"`
	UserDecision string  `json:"user_decision"`
	AIDecision   bool    `json:"ai_decision"`
	AIConfidence float64 `json:"ai_confidence"`
	AIReasoning  string  `json:"ai_reasoning"`
}

// ReviewStep2 记录过滤复核：restore 恢复被滤掉的分块，
// deselect 整章取消后该章分块不再进入抽取。
func (p *Pipeline) ReviewStep2(projectID string, reviews []ChunkReview, deselect []string) error {
	for _, review := range reviews {
		if err := dao.SaveFilterReview(&model.FilterReview{
			ChunkID:      review.ChunkID,
			ProjectID:    projectID,
			AIDecision:   review.AIDecision,
			AIConfidence: review.AIConfidence,
			AIReasoning:  review.AIReasoning,
			UserDecision: review.UserDecision,
		}); err != nil {
			return err
		}
	}

	if len(deselect) > 0 {
		selection := make(map[string]bool, len(deselect))
		for _, nodeID := range deselect {
			selection[nodeID] = false
		}
		if err := dao.UpdateChapterSelection(projectID, selection); err != nil {
			return err
		}
	}

	snapshot, _ := json.Marshal(map[string]any{
		"reviews":    reviews,
		"deselected": deselect,
	})
	if err := dao.CompleteProjectStep(projectID, 2, snapshot); err != nil {
		return err
	}
	return p.recordAction(projectID, 2, "review_filter", snapshot)
}
