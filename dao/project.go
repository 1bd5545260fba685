package dao

import (
	"encoding/json"
	"errors"
	"tender-agent-backend/apperr"
	"tender-agent-backend/model"
	"time"

	"gorm.io/gorm"
)

func CreateProject(project *model.TenderProject) error {
	return DB.Create(project).Error
}

func GetProjectByID(projectID string) (*model.TenderProject, error) {
	var project model.TenderProject
	if err := DB.Where("project_id = ?", projectID).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("project not found: " + projectID)
		}
		return nil, err
	}
	return &project, nil
}

func GetProjectsByCompany(companyID string) ([]model.TenderProject, error) {
	var projects []model.TenderProject
	if err := DB.Where("company_id = ?", companyID).
		Order("created_at DESC").
		Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// CompleteProjectStep 步骤完成的唯一入口：写入步骤快照并单调推进 current_step
func CompleteProjectStep(projectID string, step int, data json.RawMessage) error {
	if step < 1 || step > 3 {
		return apperr.Validation("invalid step", nil)
	}

	return DB.Transaction(func(tx *gorm.DB) error {
		var project model.TenderProject
		if err := tx.Where("project_id = ?", projectID).First(&project).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("project not found: " + projectID)
			}
			return err
		}

		// 步骤1..N-1必须已完成
		statuses := []model.StepStatus{project.Step1Status, project.Step2Status, project.Step3Status}
		for i := 0; i < step-1; i++ {
			if statuses[i] != model.StepStatusCompleted {
				return apperr.State("cannot complete step before prior steps")
			}
		}

		now := time.Now()
		updates := map[string]any{
			"overall_status": "in_progress",
			"updated_at":     now,
		}
		switch step {
		case 1:
			updates["step1_status"] = model.StepStatusCompleted
			updates["step1_data"] = data
			updates["step1_completed_at"] = now
		case 2:
			updates["step2_status"] = model.StepStatusCompleted
			updates["step2_data"] = data
			updates["step2_completed_at"] = now
		case 3:
			updates["step3_status"] = model.StepStatusCompleted
			updates["step3_data"] = data
			updates["step3_completed_at"] = now
			updates["overall_status"] = "completed"
		}

		// current_step 只前进
		if step+1 > project.CurrentStep && step < 3 {
			updates["current_step"] = step + 1
		}

		return tx.Model(&model.TenderProject{}).
			Where("project_id = ?", projectID).
			Updates(updates).Error
	})
}

func MarkStepInProgress(projectID string, step int) error {
	col := map[int]string{1: "step1_status", 2: "step2_status", 3: "step3_status"}[step]
	if col == "" {
		return apperr.Validation("invalid step", nil)
	}
	return DB.Model(&model.TenderProject{}).
		Where("project_id = ? AND "+col+" <> ?", projectID, model.StepStatusCompleted).
		Update(col, model.StepStatusInProgress).Error
}

func UpdateProjectBasicInfo(projectID string, updates map[string]any) error {
	return DB.Model(&model.TenderProject{}).
		Where("project_id = ?", projectID).
		Updates(updates).Error
}

func ReplaceProjectChapters(projectID string, chapters []model.TenderChapter) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).
			Delete(&model.TenderChapter{}).Error; err != nil {
			return err
		}
		if len(chapters) > 0 {
			if err := tx.CreateInBatches(chapters, 100).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func GetProjectChapters(projectID string) ([]model.TenderChapter, error) {
	var chapters []model.TenderChapter
	if err := DB.Where("project_id = ?", projectID).
		Order("para_start_idx ASC").
		Find(&chapters).Error; err != nil {
		return nil, err
	}
	return chapters, nil
}

func UpdateChapterSelection(projectID string, selected map[string]bool) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		for nodeID, isSelected := range selected {
			if err := tx.Model(&model.TenderChapter{}).
				Where("project_id = ? AND chapter_node_id = ?", projectID, nodeID).
				Update("is_selected", isSelected).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func ReplaceProjectChunks(projectID string, chunks []model.TenderChunk) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).
			Delete(&model.TenderChunk{}).Error; err != nil {
			return err
		}
		if len(chunks) > 0 {
			if err := tx.CreateInBatches(chunks, 100).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func GetProjectChunks(projectID string) ([]model.TenderChunk, error) {
	var chunks []model.TenderChunk
	if err := DB.Where("project_id = ?", projectID).
		Order("chunk_index ASC").
		Find(&chunks).Error; err != nil {
		return nil, err
	}
	return chunks, nil
}

func GetValuableProjectChunks(projectID string) ([]model.TenderChunk, error) {
	var chunks []model.TenderChunk
	if err := DB.Where("project_id = ? AND is_valuable = ?", projectID, true).
		Order("chunk_index ASC").
		Find(&chunks).Error; err != nil {
		return nil, err
	}
	return chunks, nil
}

func UpdateChunkFilterResult(chunkID string, isValuable bool, confidence float64) error {
	return DB.Model(&model.TenderChunk{}).
		Where("chunk_id = ?", chunkID).
		Updates(map[string]any{
			"is_valuable":       isValuable,
			"filter_confidence": confidence,
		}).Error
}

// SaveFilterReview 记录用户的过滤复核决定，chunk 恢复时同时翻转 is_valuable
func SaveFilterReview(review *model.FilterReview) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(review).Error; err != nil {
			return err
		}
		if review.UserDecision == "restore" {
			return tx.Model(&model.TenderChunk{}).
				Where("chunk_id = ?", review.ChunkID).
				Update("is_valuable", true).Error
		}
		return nil
	})
}

func AppendUserAction(action *model.UserAction) error {
	return DB.Create(action).Error
}
