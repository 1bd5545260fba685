package model

import (
	"encoding/json"
	"time"
)

type CheckTaskStatus string

const (
	CheckStatusPending   CheckTaskStatus = "pending"
	CheckStatusParsing   CheckTaskStatus = "parsing"
	CheckStatusChecking  CheckTaskStatus = "checking"
	CheckStatusCompleted CheckTaskStatus = "completed"
	CheckStatusFailed    CheckTaskStatus = "failed"
)

// CanTransition 自检任务状态只允许单调前进，failed 可从任意非终态进入
func (s CheckTaskStatus) CanTransition(next CheckTaskStatus) bool {
	if s == CheckStatusCompleted || s == CheckStatusFailed {
		return false
	}
	if next == CheckStatusFailed {
		return true
	}
	order := map[CheckTaskStatus]int{
		CheckStatusPending:   0,
		CheckStatusParsing:   1,
		CheckStatusChecking:  2,
		CheckStatusCompleted: 3,
	}
	cur, ok1 := order[s]
	nxt, ok2 := order[next]
	return ok1 && ok2 && nxt > cur
}

// ResponseCheckTask 应答文件自检任务
// 中间检查结果随进度持久化，崩溃后保留已完成类别
type ResponseCheckTask struct {
	ID     uint   `gorm:"primarykey" json:"id"`
	TaskID string `gorm:"not null;uniqueIndex;size:64" json:"task_id"`
	OpenID string `gorm:"index" json:"openid"`
	UserID string `gorm:"index" json:"user_id"`

	FileID           string `json:"file_id"`
	FilePath         string `json:"file_path"`
	OriginalFilename string `json:"original_filename"`
	FileSize         int64  `json:"file_size"`

	Status          CheckTaskStatus `gorm:"not null;default:pending" json:"status"`
	Progress        int             `gorm:"not null;default:0" json:"progress"`
	CurrentStep     string          `json:"current_step"`
	CurrentCategory string          `json:"current_category"`
	ErrorMessage    string          `gorm:"type:text" json:"error_message"`

	ExtractedInfo   json.RawMessage `gorm:"type:json" json:"extracted_info"`
	CheckCategories json.RawMessage `gorm:"type:json" json:"check_categories"`

	TotalItems   int `json:"total_items"`
	PassCount    int `json:"pass_count"`
	FailCount    int `json:"fail_count"`
	UnknownCount int `json:"unknown_count"`
	TotalPages   int `json:"total_pages"`

	AnalysisTime float64 `json:"analysis_time"`
	ModelName    string  `json:"model_name"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

func (ResponseCheckTask) TableName() string {
	return "response_check_tasks"
}
