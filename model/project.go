package model

import (
	"encoding/json"
	"time"
)

type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusInProgress StepStatus = "in_progress"
	StepStatusCompleted  StepStatus = "completed"
)

// TenderProject 招标项目聚合根，持有章节/分块/需求的生命周期
type TenderProject struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	ProjectID string    `gorm:"not null;uniqueIndex;size:64" json:"project_id"`
	CompanyID string    `gorm:"not null;index" json:"company_id"`

	ProjectName     string `json:"project_name"`
	ProjectNumber   string `json:"project_number"`
	Tenderer        string `json:"tenderer"`
	Agency          string `json:"agency"`
	BiddingMethod   string `json:"bidding_method"`
	BiddingLocation string `json:"bidding_location"`
	BiddingTime     string `json:"bidding_time"`
	WinnerCount     string `json:"winner_count"`
	Budget          string `json:"budget"`

	AuthorizedPersonName  string `json:"authorized_person_name"`
	AuthorizedPersonPhone string `json:"authorized_person_phone"`

	ProductCategoryName string          `json:"product_category_name"`
	ProductCategoryCode string          `json:"product_category_code"`
	ProductItems        json.RawMessage `gorm:"type:json" json:"product_items"`

	// 资质清单匹配结果，key为资质项编码
	QualificationsData json.RawMessage `gorm:"type:json" json:"qualifications_data"`

	Step1Status      StepStatus      `gorm:"not null;default:pending" json:"step1_status"`
	Step1Data        json.RawMessage `gorm:"type:json" json:"step1_data"`
	Step1CompletedAt *time.Time      `json:"step1_completed_at"`
	Step2Status      StepStatus      `gorm:"not null;default:pending" json:"step2_status"`
	Step2Data        json.RawMessage `gorm:"type:json" json:"step2_data"`
	Step2CompletedAt *time.Time      `json:"step2_completed_at"`
	Step3Status      StepStatus      `gorm:"not null;default:pending" json:"step3_status"`
	Step3Data        json.RawMessage `gorm:"type:json" json:"step3_data"`
	Step3CompletedAt *time.Time      `json:"step3_completed_at"`

	// 当前步骤只允许前进
	CurrentStep   int    `gorm:"not null;default:1" json:"current_step"`
	OverallStatus string `gorm:"not null;default:pending" json:"overall_status"`

	TenderDocumentPath       string `json:"tender_document_path"`
	OriginalFilename         string `json:"original_filename"`
	ResponseTemplatePath     string `json:"response_template_path"`
	TechnicalRequirementPath string `json:"technical_requirement_path"`

	HITLEstimatedWords int64   `json:"hitl_estimated_words"`
	HITLEstimatedCost  float64 `json:"hitl_estimated_cost"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TenderProject) TableName() string {
	return "tender_projects"
}

// TenderChapter 章节树节点，兄弟节点段落区间互不相交且有序
type TenderChapter struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	ChapterID string `gorm:"not null;uniqueIndex;size:64" json:"chapter_id"`
	ProjectID string `gorm:"not null;index" json:"project_id"`

	ChapterNodeID   string `gorm:"not null" json:"chapter_node_id"`
	ParentChapterID string `json:"parent_chapter_id"`
	Level           int    `gorm:"not null" json:"level"`
	Title           string `gorm:"not null" json:"title"`

	ParaStartIdx int    `json:"para_start_idx"`
	ParaEndIdx   int    `json:"para_end_idx"`
	WordCount    int    `json:"word_count"`
	PreviewText  string `gorm:"type:text" json:"preview_text"`

	IsSelected      bool `gorm:"not null;default:false" json:"is_selected"`
	AutoSelected    bool `gorm:"not null;default:false" json:"auto_selected"`
	SkipRecommended bool `gorm:"not null;default:false" json:"skip_recommended"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (TenderChapter) TableName() string {
	return "tender_document_chapters"
}

// TenderChunk 项目维度的分块，携带过滤结论
type TenderChunk struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	ChunkID    string    `gorm:"not null;uniqueIndex;size:64" json:"chunk_id"`
	ProjectID  string    `gorm:"not null;index:idx_project_chunk" json:"project_id"`
	ChunkIndex int       `gorm:"not null;index:idx_project_chunk" json:"chunk_index"`
	Content    string    `gorm:"type:text" json:"content"`
	ChunkType  ChunkType `gorm:"not null" json:"chunk_type"`

	Metadata json.RawMessage `gorm:"type:json" json:"metadata"`

	IsValuable       *bool    `json:"is_valuable"`
	FilterConfidence *float64 `json:"filter_confidence"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (TenderChunk) TableName() string {
	return "tender_document_chunks"
}

// FilterReview 过滤复核记录，user_decision: keep / restore / drop
type FilterReview struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	ChunkID   string `gorm:"not null;uniqueIndex;size:64" json:"chunk_id"`
	ProjectID string `gorm:"not null;index" json:"project_id"`

	AIDecision   bool    `json:"ai_decision"`
	AIConfidence float64 `json:"ai_confidence"`
	AIReasoning  string  `json:"ai_reasoning"`
	UserDecision string  `gorm:"not null" json:"user_decision"`

	ReviewedAt time.Time `json:"reviewed_at"`
}

func (FilterReview) TableName() string {
	return "tender_filter_review"
}

// UserAction HITL用户操作审计，只追加
type UserAction struct {
	ID         uint            `gorm:"primarykey" json:"id"`
	ProjectID  string          `gorm:"not null;index" json:"project_id"`
	ActionType string          `gorm:"not null" json:"action_type"`
	ActionStep int             `gorm:"not null" json:"action_step"`
	ActionData json.RawMessage `gorm:"type:json" json:"action_data"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (UserAction) TableName() string {
	return "tender_user_actions"
}
