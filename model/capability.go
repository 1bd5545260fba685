package model

import (
	"encoding/json"
	"time"
)

// CapabilityTag 企业维度的能力标签，(company_id, tag_code) 唯一
type CapabilityTag struct {
	ID        uint   `gorm:"primarykey" json:"tag_id"`
	CompanyID string `gorm:"not null;uniqueIndex:uk_company_tag_code" json:"company_id"`
	TagName   string `gorm:"not null" json:"tag_name"`
	TagCode   string `gorm:"not null;uniqueIndex:uk_company_tag_code" json:"tag_code"`

	ParentTagID uint   `json:"parent_tag_id"`
	TagLevel    int    `gorm:"not null;default:1" json:"tag_level"`
	Description string `gorm:"type:text" json:"description"`

	ExampleKeywords json.RawMessage `gorm:"type:json" json:"example_keywords"`

	TagOrder int  `gorm:"not null;default:0" json:"tag_order"`
	IsActive bool `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CapabilityTag) TableName() string {
	return "product_capability_tags"
}

type CapabilityType string

const (
	CapabilityFunction    CapabilityType = "function"
	CapabilityInterface   CapabilityType = "interface"
	CapabilityService     CapabilityType = "service"
	CapabilityPerformance CapabilityType = "performance"
)

// Capability 产品能力索引项，embedding 以 BLOB 存储
type Capability struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	CapabilityID string `gorm:"not null;uniqueIndex;size:64" json:"capability_id"`
	CompanyID    string `gorm:"not null;index" json:"company_id"`
	DocID        string `json:"doc_id"`
	ChunkID      string `json:"chunk_id"`

	CapabilityName        string         `gorm:"not null" json:"capability_name"`
	CapabilityType        CapabilityType `gorm:"not null;default:function" json:"capability_type"`
	CapabilityDescription string         `gorm:"type:text" json:"capability_description"`
	OriginalText          string         `gorm:"type:text" json:"original_text"`

	Metrics json.RawMessage `gorm:"type:json" json:"metrics"`
	TagID   uint            `json:"tag_id"`

	ExtractionModel string  `json:"extraction_model"`
	ConfidenceScore float64 `json:"confidence_score"`

	ExtractedAt time.Time `json:"extracted_at"`

	CapabilityEmbedding []byte `gorm:"type:blob" json:"-"`
	EmbeddingModel      string `json:"embedding_model"`

	Verified bool `gorm:"not null;default:false" json:"verified"`
	IsActive bool `gorm:"not null;default:true" json:"is_active"`
}

func (Capability) TableName() string {
	return "product_capabilities_index"
}

// CapabilityKeyword 能力关键词侧表
// keyword_type: name / metric; source: extraction
type CapabilityKeyword struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	CapabilityID string `gorm:"not null;index" json:"capability_id"`
	Keyword      string `gorm:"not null;index" json:"keyword"`
	KeywordType  string `gorm:"not null" json:"keyword_type"`
	Source       string `json:"source"`
}

func (CapabilityKeyword) TableName() string {
	return "capability_keywords"
}

// CapabilityMatchHistory 需求-能力匹配历史，rank 1..3
type CapabilityMatchHistory struct {
	ID              uint   `gorm:"primarykey" json:"id"`
	CompanyID       string `gorm:"not null;index" json:"company_id"`
	TenderProjectID string `gorm:"index" json:"tender_project_id"`
	SessionID       string `json:"session_id"`

	RequirementText     string  `gorm:"type:text" json:"requirement_text"`
	MatchedCapabilityID string  `gorm:"not null" json:"matched_capability_id"`
	MatchScore          float64 `json:"match_score"`
	MatchMethod         string  `json:"match_method"`
	MatchRank           int     `json:"match_rank"`

	CreatedAt time.Time `json:"created_at"`
}

func (CapabilityMatchHistory) TableName() string {
	return "capability_match_history"
}
