package dao

import (
	"encoding/json"
	"errors"
	"tender-agent-backend/apperr"
	"tender-agent-backend/model"
	"time"

	"gorm.io/gorm"
)

func CreateCheckTask(task *model.ResponseCheckTask) error {
	return DB.Create(task).Error
}

func GetCheckTaskByID(taskID string) (*model.ResponseCheckTask, error) {
	var task model.ResponseCheckTask
	if err := DB.Where("task_id = ?", taskID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("check task not found: " + taskID)
		}
		return nil, err
	}
	return &task, nil
}

// UpdateCheckTaskStatus 状态迁移的唯一入口，非法迁移返回 StateError
func UpdateCheckTaskStatus(taskID string, next model.CheckTaskStatus, errMsg string) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		var task model.ResponseCheckTask
		if err := tx.Where("task_id = ?", taskID).First(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("check task not found: " + taskID)
			}
			return err
		}

		if !task.Status.CanTransition(next) {
			return apperr.State("illegal check task transition: " +
				string(task.Status) + " -> " + string(next))
		}

		now := time.Now()
		updates := map[string]any{"status": next}
		switch next {
		case model.CheckStatusParsing:
			updates["started_at"] = now
		case model.CheckStatusCompleted:
			updates["completed_at"] = now
			updates["progress"] = 100
		case model.CheckStatusFailed:
			updates["error_message"] = errMsg
		}

		return tx.Model(&model.ResponseCheckTask{}).
			Where("task_id = ?", taskID).
			Updates(updates).Error
	})
}

// UpdateCheckTaskProgress 进度与已完成类别随检查推进增量持久化
func UpdateCheckTaskProgress(taskID string, progress int, currentCategory string, categories json.RawMessage) error {
	updates := map[string]any{
		"progress":         progress,
		"current_category": currentCategory,
	}
	if categories != nil {
		updates["check_categories"] = categories
	}
	return DB.Model(&model.ResponseCheckTask{}).
		Where("task_id = ?", taskID).
		Updates(updates).Error
}

func SaveCheckTaskResult(taskID string, extractedInfo, categories json.RawMessage,
	totalItems, passCount, failCount, unknownCount, totalPages int, analysisTime float64) error {
	return DB.Model(&model.ResponseCheckTask{}).
		Where("task_id = ?", taskID).
		Updates(map[string]any{
			"extracted_info":   extractedInfo,
			"check_categories": categories,
			"total_items":      totalItems,
			"pass_count":       passCount,
			"fail_count":       failCount,
			"unknown_count":    unknownCount,
			"total_pages":      totalPages,
			"analysis_time":    analysisTime,
		}).Error
}

func GetCheckTasksByUser(userID string) ([]model.ResponseCheckTask, error) {
	var tasks []model.ResponseCheckTask
	if err := DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}
