package response

import (
	"encoding/json"
	"time"
)

type ProjectResponse struct {
	ProjectID     string `json:"project_id"`
	ProjectName   string `json:"project_name"`
	ProjectNumber string `json:"project_number"`
	CurrentStep   int    `json:"current_step"`
	OverallStatus string `json:"overall_status"`

	Step1Status string `json:"step1_status"`
	Step2Status string `json:"step2_status"`
	Step3Status string `json:"step3_status"`

	EstimatedWords int64     `json:"hitl_estimated_words"`
	EstimatedCost  float64   `json:"hitl_estimated_cost"`
	CreatedAt      time.Time `json:"created_at"`
}

type GetProjectsResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

type UploadDocumentResponse struct {
	DocID      string `json:"doc_id"`
	ObjectName string `json:"object_name"`
}

type CheckTaskResponse struct {
	TaskID          string          `json:"task_id"`
	Status          string          `json:"status"`
	Progress        int             `json:"progress"`
	CurrentCategory string          `json:"current_category"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	TotalItems      int             `json:"total_items"`
	PassCount       int             `json:"pass_count"`
	FailCount       int             `json:"fail_count"`
	UnknownCount    int             `json:"unknown_count"`
	TotalPages      int             `json:"total_pages"`
	AnalysisTime    float64         `json:"analysis_time"`
	ExtractedInfo   json.RawMessage `json:"extracted_info,omitempty"`
	CheckCategories json.RawMessage `json:"check_categories,omitempty"`
}
