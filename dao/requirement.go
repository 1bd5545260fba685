package dao

import (
	"errors"
	"tender-agent-backend/apperr"
	"tender-agent-backend/model"
	"time"

	"gorm.io/gorm"
)

func CreateRequirements(reqs []model.TenderRequirement) error {
	if len(reqs) == 0 {
		return nil
	}
	return DB.CreateInBatches(reqs, 100).Error
}

func GetProjectRequirements(projectID string) ([]model.TenderRequirement, error) {
	var reqs []model.TenderRequirement
	if err := DB.Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

func GetRequirementByID(requirementID string) (*model.TenderRequirement, error) {
	var req model.TenderRequirement
	if err := DB.Where("requirement_id = ?", requirementID).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("requirement not found: " + requirementID)
		}
		return nil, err
	}
	return &req, nil
}

// SaveRequirementEdit 写主表并追加审计行，同一事务内完成
func SaveRequirementEdit(req *model.TenderRequirement, operation, editedBy string) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		switch operation {
		case "create":
			if err := tx.Create(req).Error; err != nil {
				return err
			}
		case "update":
			if err := tx.Model(&model.TenderRequirement{}).
				Where("requirement_id = ?", req.RequirementID).
				Updates(map[string]any{
					"constraint_type":       req.ConstraintType,
					"category":              req.Category,
					"subcategory":           req.Subcategory,
					"detail":                req.Detail,
					"summary":               req.Summary,
					"source_location":       req.SourceLocation,
					"priority":              req.Priority,
					"extraction_confidence": req.ExtractionConfidence,
				}).Error; err != nil {
				return err
			}
		case "delete":
			if err := tx.Where("requirement_id = ?", req.RequirementID).
				Delete(&model.TenderRequirement{}).Error; err != nil {
				return err
			}
		default:
			return apperr.Validation("unknown requirement operation: "+operation, nil)
		}

		draft := model.TenderRequirementDraft{
			RequirementID:        req.RequirementID,
			ProjectID:            req.ProjectID,
			ChunkID:              req.ChunkID,
			ConstraintType:       req.ConstraintType,
			Category:             req.Category,
			Subcategory:          req.Subcategory,
			Detail:               req.Detail,
			Summary:              req.Summary,
			SourceLocation:       req.SourceLocation,
			Priority:             req.Priority,
			ExtractionConfidence: req.ExtractionConfidence,
			Operation:            operation,
			EditedBy:             editedBy,
			EditedAt:             time.Now(),
		}
		return tx.Create(&draft).Error
	})
}

func GetRequirementDrafts(projectID string) ([]model.TenderRequirementDraft, error) {
	var drafts []model.TenderRequirementDraft
	if err := DB.Where("project_id = ?", projectID).
		Order("edited_at ASC").
		Find(&drafts).Error; err != nil {
		return nil, err
	}
	return drafts, nil
}
