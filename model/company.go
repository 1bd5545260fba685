package model

import (
	"encoding/json"
	"time"
)

// Company 企业档案，核心流程只读
type Company struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	CompanyID string `gorm:"not null;uniqueIndex;size:64" json:"company_id"`

	CompanyName string `gorm:"not null" json:"company_name"`
	CreditCode  string `json:"credit_code"`
	LegalPerson string `json:"legal_person"`
	Address     string `json:"address"`

	// qualifications[key] = {required, description, file_info?}
	Qualifications json.RawMessage `gorm:"type:json" json:"qualifications"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Company) TableName() string {
	return "companies"
}

// CompanyQualification qualifications JSON 中单个资质项的结构
type CompanyQualification struct {
	Required    bool            `json:"required"`
	Description string          `json:"description"`
	FileInfo    json.RawMessage `json:"file_info,omitempty"`
}
