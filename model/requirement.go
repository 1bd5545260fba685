package model

import "time"

type ConstraintType string

const (
	ConstraintMandatory ConstraintType = "mandatory"
	ConstraintOptional  ConstraintType = "optional"
	ConstraintScoring   ConstraintType = "scoring"
)

type RequirementCategory string

const (
	CategoryQualification RequirementCategory = "qualification"
	CategoryTechnical     RequirementCategory = "technical"
	CategoryCommercial    RequirementCategory = "commercial"
	CategoryService       RequirementCategory = "service"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// TenderRequirement 从招标文件抽取的结构化需求
type TenderRequirement struct {
	ID            uint   `gorm:"primarykey" json:"id"`
	RequirementID string `gorm:"not null;uniqueIndex;size:64" json:"requirement_id"`
	ProjectID     string `gorm:"not null;index" json:"project_id"`
	ChunkID       string `json:"chunk_id"`

	ConstraintType ConstraintType      `gorm:"not null;default:optional" json:"constraint_type"`
	Category       RequirementCategory `gorm:"not null;default:technical" json:"category"`
	Subcategory    string              `json:"subcategory"`

	Detail         string `gorm:"type:text;not null" json:"detail"`
	Summary        string `gorm:"size:255" json:"summary"`
	SourceLocation string `json:"source_location"`

	Priority             Priority `gorm:"not null;default:medium" json:"priority"`
	ExtractionConfidence float64  `json:"extraction_confidence"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TenderRequirement) TableName() string {
	return "tender_requirements"
}

// TenderRequirementDraft 需求编辑审计影子表，只追加
// operation: create / update / delete
type TenderRequirementDraft struct {
	ID            uint   `gorm:"primarykey" json:"id"`
	RequirementID string `gorm:"not null;index" json:"requirement_id"`
	ProjectID     string `gorm:"not null;index" json:"project_id"`
	ChunkID       string `json:"chunk_id"`

	ConstraintType       ConstraintType      `gorm:"not null" json:"constraint_type"`
	Category             RequirementCategory `gorm:"not null" json:"category"`
	Subcategory          string              `json:"subcategory"`
	Detail               string              `gorm:"type:text" json:"detail"`
	Summary              string              `gorm:"size:255" json:"summary"`
	SourceLocation       string              `json:"source_location"`
	Priority             Priority            `gorm:"not null" json:"priority"`
	ExtractionConfidence float64             `json:"extraction_confidence"`

	Operation string    `gorm:"not null" json:"operation"`
	EditedBy  string    `json:"edited_by"`
	EditedAt  time.Time `json:"edited_at"`
}

func (TenderRequirementDraft) TableName() string {
	return "tender_requirements_draft"
}
