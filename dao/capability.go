package dao

import (
	"errors"
	"tender-agent-backend/apperr"
	"tender-agent-backend/model"

	"gorm.io/gorm"
)

func CreateCapabilityTag(tag *model.CapabilityTag) error {
	return DB.Create(tag).Error
}

func GetCapabilityTags(companyID string) ([]model.CapabilityTag, error) {
	var tags []model.CapabilityTag
	if err := DB.Where("company_id = ? AND is_active = ?", companyID, true).
		Order("tag_order ASC").
		Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func GetCapabilityTagByCode(companyID, tagCode string) (*model.CapabilityTag, error) {
	var tag model.CapabilityTag
	if err := DB.Where("company_id = ? AND tag_code = ?", companyID, tagCode).
		First(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tag, nil
}

func GetCapabilityTagByID(tagID uint) (*model.CapabilityTag, error) {
	var tag model.CapabilityTag
	if err := DB.Where("id = ?", tagID).First(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("capability tag not found")
		}
		return nil, err
	}
	return &tag, nil
}

func DeactivateCapabilityTag(companyID, tagCode string) error {
	return DB.Model(&model.CapabilityTag{}).
		Where("company_id = ? AND tag_code = ?", companyID, tagCode).
		Update("is_active", false).Error
}

// CreateCapabilityWithKeywords 能力主表与关键词侧表在同一事务写入
func CreateCapabilityWithKeywords(capability *model.Capability, keywords []model.CapabilityKeyword) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(capability).Error; err != nil {
			return err
		}
		for i := range keywords {
			keywords[i].CapabilityID = capability.CapabilityID
		}
		if len(keywords) > 0 {
			if err := tx.CreateInBatches(keywords, 100).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func GetCompanyCapabilities(companyID string) ([]model.Capability, error) {
	var capabilities []model.Capability
	if err := DB.Where("company_id = ? AND is_active = ?", companyID, true).
		Find(&capabilities).Error; err != nil {
		return nil, err
	}
	return capabilities, nil
}

func GetCapabilityByID(capabilityID string) (*model.Capability, error) {
	var capability model.Capability
	if err := DB.Where("capability_id = ?", capabilityID).First(&capability).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("capability not found: " + capabilityID)
		}
		return nil, err
	}
	return &capability, nil
}

// SearchCapabilitiesByKeyword 关键词命中能力，经侧表联查
func SearchCapabilitiesByKeyword(companyID, keyword string) ([]model.Capability, error) {
	var capabilities []model.Capability
	err := DB.Model(&model.Capability{}).
		Joins("JOIN capability_keywords ck ON ck.capability_id = product_capabilities_index.capability_id").
		Where("product_capabilities_index.company_id = ? AND product_capabilities_index.is_active = ?", companyID, true).
		Where("ck.keyword LIKE ?", "%"+keyword+"%").
		Group("product_capabilities_index.capability_id").
		Find(&capabilities).Error
	if err != nil {
		return nil, err
	}
	return capabilities, nil
}

func AppendMatchHistory(rows []model.CapabilityMatchHistory) error {
	if len(rows) == 0 {
		return nil
	}
	return DB.CreateInBatches(rows, 100).Error
}

func GetCompanyByID(companyID string) (*model.Company, error) {
	var company model.Company
	if err := DB.Where("company_id = ?", companyID).First(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("company not found: " + companyID)
		}
		return nil, err
	}
	return &company, nil
}
